package advisory

import (
	"encoding/json"
	"strings"
)

/* =================================================================================
							RESPONSE VALIDATOR
	The generator's output is untrusted bytes. Validation parses, repairs and
	scores it; it never panics and never returns an error, only (result, ok).
	Every repaired or dropped field costs confidence.
=================================================================================*/

const (
	// repairPenalty is subtracted from confidence per repaired/dropped field.
	repairPenalty = 0.1

	// minValidatedConfidence is the floor after repairs.
	minValidatedConfidence = 0.05

	// generalInsightTag marks advice not bound to a specific focus tag,
	// e.g. the single rest message produced under the safety override.
	generalInsightTag = "general"
)

// generatedPayload mirrors the structured-output schema the generator is
// asked to produce. Field-level validation happens after decoding.
type generatedPayload struct {
	UnifiedPersona        string                 `json:"unified_persona"`
	AnalysisSummary       string                 `json:"analysis_summary"`
	TagInsights           []generatedInsight     `json:"tag_insights"`
	EnvironmentalInsights []EnvironmentalInsight `json:"environmental_insights"`
	HealthAlerts          []string               `json:"health_alerts"`
	ConfidenceScore       float64                `json:"confidence_score"`
}

type generatedInsight struct {
	Tag        string   `json:"tag"`
	Persona    string   `json:"persona"`
	Headline   string   `json:"headline"`
	Advice     []string `json:"advice"`
	Confidence float64  `json:"confidence"`
}

// ResponseValidator parses and repairs raw generation output.
type ResponseValidator struct{}

// NewResponseValidator returns a validator. Stateless; safe for concurrent use.
func NewResponseValidator() *ResponseValidator {
	return &ResponseValidator{}
}

// Validate turns raw generator bytes into an AnalysisResult. ok is false only
// when no usable core content (at least one valid tag insight) survives.
func (rv *ResponseValidator) Validate(raw []byte) (AnalysisResult, bool) {
	payload, repairs, parsed := rv.parse(raw)
	if !parsed {
		return AnalysisResult{}, false
	}

	var insights []TagInsight
	for _, gi := range payload.TagInsights {
		insight, ok := rv.validateInsight(gi)
		if !ok {
			repairs++
			continue
		}
		insights = append(insights, insight)
	}
	if len(insights) == 0 {
		return AnalysisResult{}, false
	}

	var envInsights []EnvironmentalInsight
	for _, ei := range payload.EnvironmentalInsights {
		if ei.Message == "" {
			repairs++
			continue
		}
		envInsights = append(envInsights, ei)
	}

	confidence := payload.ConfidenceScore
	if confidence <= 0 || confidence > 1 {
		if payload.ConfidenceScore != 0 {
			repairs++
		}
		confidence = 1.0
	}
	confidence -= repairPenalty * float64(repairs)
	if confidence < minValidatedConfidence {
		confidence = minValidatedConfidence
	}

	result := AnalysisResult{
		TagInsights:           insights,
		EnvironmentalInsights: envInsights,
		HealthAlerts:          payload.HealthAlerts,
		Confidence:            confidence,
		Source:                SourceFresh,
	}
	if payload.UnifiedPersona != "" || payload.AnalysisSummary != "" {
		result.Synthesis = &SynthesisSummary{
			Persona: payload.UnifiedPersona,
			Message: payload.AnalysisSummary,
		}
	}
	return result, true
}

// parse attempts a direct decode, then a repaired decode (markdown fences and
// surrounding prose stripped), then partial field extraction. repairs counts
// how much fixing was needed.
func (rv *ResponseValidator) parse(raw []byte) (generatedPayload, int, bool) {
	var payload generatedPayload
	if len(raw) == 0 {
		return payload, 0, false
	}

	if err := json.Unmarshal(raw, &payload); err == nil {
		return payload, 0, true
	}

	cleaned := extractJSONObject(raw)
	if cleaned != nil {
		if err := json.Unmarshal(cleaned, &payload); err == nil {
			return payload, 1, true
		}
	}

	// Partial extraction: decode the top level loosely, then each known
	// field independently so one malformed field cannot sink the rest.
	target := raw
	if cleaned != nil {
		target = cleaned
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(target, &fields); err != nil {
		return generatedPayload{}, 0, false
	}

	repairs := 1
	usable := 0
	if tryField(fields, "unified_persona", &payload.UnifiedPersona) {
		usable++
	}
	if tryField(fields, "analysis_summary", &payload.AnalysisSummary) {
		usable++
	}
	if tryField(fields, "tag_insights", &payload.TagInsights) {
		usable++
	}
	if tryField(fields, "environmental_insights", &payload.EnvironmentalInsights) {
		usable++
	}
	if tryField(fields, "health_alerts", &payload.HealthAlerts) {
		usable++
	}
	if tryField(fields, "confidence_score", &payload.ConfidenceScore) {
		usable++
	}
	if usable == 0 {
		return generatedPayload{}, 0, false
	}
	repairs += len(fields) - usable
	return payload, repairs, true
}

func (rv *ResponseValidator) validateInsight(gi generatedInsight) (TagInsight, bool) {
	tagName := strings.ToLower(strings.TrimSpace(gi.Tag))
	var tag FocusTag
	if tagName == generalInsightTag || tagName == "" {
		tag = FocusTag(generalInsightTag)
	} else {
		parsed, err := ParseFocusTag(tagName)
		if err != nil {
			return TagInsight{}, false
		}
		tag = parsed
	}

	if gi.Headline == "" && len(gi.Advice) == 0 {
		return TagInsight{}, false
	}

	confidence := gi.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0
	}

	return TagInsight{
		Tag:        tag,
		Persona:    gi.Persona,
		Headline:   gi.Headline,
		Advice:     gi.Advice,
		Confidence: confidence,
	}, true
}

func tryField[T any](fields map[string]json.RawMessage, name string, dst *T) bool {
	raw, ok := fields[name]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// extractJSONObject strips markdown code fences and surrounding prose,
// returning the bytes between the first '{' and the last '}' if any.
func extractJSONObject(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return nil
	}
	return []byte(s[start : end+1])
}
