package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"VitalSage_V0.1/internal/advisory"
	"VitalSage_V0.1/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

/* =================================================================================
							DTOs (Data Transfer Objects)
=================================================================================*/

// AnalyzeRequest defines the payload expected from the client.
type AnalyzeRequest struct {
	EnergyLevel          *int               `json:"energy_level,omitempty"`
	ActiveTags           []string           `json:"active_tags"`
	Lifestyle            string             `json:"lifestyle,omitempty"` // 'standard', 'athlete'
	Language             string             `json:"language,omitempty"`  // 'ja', 'en'
	Location             string             `json:"location,omitempty"`
	BiologicalContext    map[string]float64 `json:"biological_context,omitempty"`
	EnvironmentalContext map[string]float64 `json:"environmental_context,omitempty"`
}

// AnalyzeResponse is the standard JSON response sent back to the client.
type AnalyzeResponse struct {
	RequestID string                  `json:"request_id"`
	Result    advisory.AnalysisResult `json:"result"`
	CreatedAt time.Time               `json:"created_at"`
}

/* =================================================================================
							HANDLERS
=================================================================================*/

// AnalyzeHandler runs one analysis: Validation -> Orchestration -> Response.
// Degraded conditions come back as results with a source marker, never as
// HTTP errors; only a contract violation produces a 400.
func (s *Server) AnalyzeHandler(c echo.Context) error {
	ctx := c.Request().Context()

	// 1. Get UserID from JWT
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user ID from context")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	// 2. Parse Request Body
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		log.Error().Err(err).Msg("Failed to bind request body")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	tags := make([]advisory.FocusTag, 0, len(req.ActiveTags))
	for _, raw := range req.ActiveTags {
		tag, err := advisory.ParseFocusTag(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		tags = append(tags, tag)
	}

	input := advisory.AnalyzeInput{
		UserID:      userID,
		EnergyLevel: req.EnergyLevel,
		Preferences: advisory.PreferenceModel{
			ActiveTags: tags,
			Lifestyle:  advisory.LifestyleMode(req.Lifestyle),
			Language:   advisory.Language(req.Language),
		},
		BiologicalContext:    req.BiologicalContext,
		EnvironmentalContext: req.EnvironmentalContext,
		Location:             req.Location,
	}

	// 3. Run the engine
	result, err := s.engine.Analyze(ctx, input)
	if err != nil {
		if errors.Is(err, advisory.ErrInvalidRequest) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Caller went away; nothing left to write.
			return nil
		}
		log.Error().Err(err).Msg("Analysis failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Analysis failed"})
	}

	// 4. Nudge any connected client that a new advisory exists
	if result.Source == advisory.SourceFresh {
		utility.NotifyAnalysisReady(userID)
	}

	requestID, _ := c.Get("request_id").(string)
	return c.JSON(http.StatusOK, AnalyzeResponse{
		RequestID: requestID,
		Result:    result,
		CreatedAt: time.Now(),
	})
}

// TrendsHandler returns the 7-day trend projection for the caller.
func (s *Server) TrendsHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	report, err := s.engine.Trends(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute trends")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to compute trends"})
	}
	return c.JSON(http.StatusOK, report)
}

// UsageHandler returns the caller's current-day usage ledger.
func (s *Server) UsageHandler(c echo.Context) error {
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
	return c.JSON(http.StatusOK, s.governor.Ledger(userID))
}

// SocketHandler upgrades the connection and parks it in the hub until the
// client disconnects.
func (s *Server) SocketHandler(c echo.Context) error {
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	conn, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("Websocket upgrade failed")
		return err
	}

	utility.RegisterClient(userID, conn)
	defer utility.UnregisterClient(userID)

	// Read loop: we only care about the close signal.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	return nil
}
