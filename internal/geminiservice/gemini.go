package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"VitalSage_V0.1/internal/advisory"
	"github.com/rs/zerolog/log"
)

// --- Gemini API Configuration ---
const (
	geminiAPIURL       = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-preview-09-2025:generateContent?key="
	maxRetries         = 2
	initialBackoff     = 250 * time.Millisecond
	structuredMimeType = "application/json"
)

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents          []GeminiContent   `json:"contents"`
	SystemInstruction *GeminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

type GenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *GeminiSchema `json:"response_schema,omitempty"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generator calls the Gemini API with structured-output enforcement. It
// implements advisory.TextGenerator; the orchestrator still treats its
// output as untrusted bytes.
type Generator struct {
	apiKey string
	client *http.Client
}

// NewGenerator reads the API key from the environment. A missing key is not
// fatal here; calls will fail and the orchestrator degrades through cache.
func NewGenerator() *Generator {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; analysis will run on cache and static fallback only")
	}
	return &Generator{
		apiKey: apiKey,
		client: &http.Client{},
	}
}

// Generate sends the prompt with the advisory response schema attached and
// returns the raw JSON text from the first candidate. The caller's context
// carries the timeout; retries stop as soon as it expires.
func (g *Generator) Generate(ctx context.Context, prompt advisory.Prompt) ([]byte, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini: api key not configured")
	}

	payload := GeminiPayload{
		SystemInstruction: &GeminiContent{
			Parts: []GeminiPart{{Text: prompt.System}},
		},
		Contents: []GeminiContent{
			{Parts: []GeminiPart{{Text: prompt.User}}},
		},
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: structuredMimeType,
			ResponseSchema:   AnalysisSchema,
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			// Exponential backoff between attempts, abandoned when the
			// caller's deadline hits first.
			backoff := initialBackoff << (i - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := g.call(ctx, payloadBytes)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Msgf("Gemini attempt %d failed", i+1)
	}

	return nil, fmt.Errorf("failed to call Gemini API after %d attempts: %w", maxRetries, lastErr)
}

func (g *Generator) call(ctx context.Context, payloadBytes []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", geminiAPIURL+g.apiKey, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned non-200 status: %s, Body: %s", resp.Status, string(body))
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return []byte(geminiResp.Candidates[0].Content.Parts[0].Text), nil
	}

	return nil, fmt.Errorf("no content found in Gemini response")
}
