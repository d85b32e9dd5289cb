package advisory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

/* =================================================================================
							CONTEXT ASSEMBLER
	Merges the client-supplied snapshot, the biometric and environmental
	sources, and the user's preferences into one normalized AnalysisRequest.
	Source failures are tolerated: the engine proceeds with whatever partial
	context it has. Only a contract violation by the caller is a hard error.
=================================================================================*/

// ErrInvalidRequest marks a programmer-error request: no energy level and no
// biological context to derive one from. This is the only error class the
// engine surfaces to callers.
var ErrInvalidRequest = errors.New("invalid analysis request")

// energyMetricKey is the biometric field the energy level is read from when
// the caller does not pass one explicitly.
const energyMetricKey = "energy_level"

// BiometricSource supplies the latest biometric snapshot for a user.
// Implemented elsewhere (device/HealthKit bridge); may fail.
type BiometricSource interface {
	GetLatestSnapshot(ctx context.Context, userID string) (map[string]float64, error)
}

// EnvironmentalSource supplies current weather/environment conditions.
// Implemented elsewhere; may fail.
type EnvironmentalSource interface {
	GetCurrentConditions(ctx context.Context, location string) (map[string]float64, error)
}

// AnalyzeInput is the raw, pre-normalization input handed to the engine.
type AnalyzeInput struct {
	UserID               string             `json:"user_id"`
	EnergyLevel          *int               `json:"energy_level,omitempty"`
	Preferences          PreferenceModel    `json:"preferences"`
	BiologicalContext    map[string]float64 `json:"biological_context,omitempty"`
	EnvironmentalContext map[string]float64 `json:"environmental_context,omitempty"`
	Location             string             `json:"location,omitempty"`
}

// ContextAssembler builds normalized requests. Either source may be nil when
// the deployment has no live feed; the client snapshot then stands alone.
type ContextAssembler struct {
	bio BiometricSource
	env EnvironmentalSource
	now func() time.Time
}

// NewContextAssembler wires the collaborator sources.
func NewContextAssembler(bio BiometricSource, env EnvironmentalSource) *ContextAssembler {
	return &ContextAssembler{bio: bio, env: env, now: time.Now}
}

// Assemble produces the immutable AnalysisRequest for one analysis run.
func (ca *ContextAssembler) Assemble(ctx context.Context, input AnalyzeInput) (AnalysisRequest, error) {
	if input.UserID == "" {
		return AnalysisRequest{}, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	}

	biological := make(map[string]float64)
	environmental := make(map[string]float64)

	// Fetch both sources concurrently; a failing source downgrades to an
	// empty snapshot instead of aborting the analysis.
	g, grpCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	if ca.bio != nil {
		g.Go(func() error {
			snapshot, err := ca.bio.GetLatestSnapshot(grpCtx, input.UserID)
			if err != nil {
				log.Warn().Err(err).Str("user_id", input.UserID).Msg("Biometric source unavailable, proceeding with partial context")
				return nil
			}
			mu.Lock()
			for k, v := range snapshot {
				biological[k] = v
			}
			mu.Unlock()
			return nil
		})
	}

	if ca.env != nil {
		g.Go(func() error {
			conditions, err := ca.env.GetCurrentConditions(grpCtx, input.Location)
			if err != nil {
				log.Warn().Err(err).Str("location", input.Location).Msg("Environmental source unavailable, proceeding with partial context")
				return nil
			}
			mu.Lock()
			for k, v := range conditions {
				environmental[k] = v
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Subtasks always return nil; keep the guard for future tasks.
		return AnalysisRequest{}, err
	}

	// The client snapshot is the freshest reading and wins on key conflicts.
	for k, v := range input.BiologicalContext {
		biological[k] = v
	}
	for k, v := range input.EnvironmentalContext {
		environmental[k] = v
	}

	energy, err := resolveEnergy(input, biological)
	if err != nil {
		return AnalysisRequest{}, err
	}

	prefs := input.Preferences.Normalize()

	return AnalysisRequest{
		UserID:               input.UserID,
		EnergyLevel:          energy,
		ActiveTags:           prefs.ActiveTags,
		TimeOfDay:            TimeOfDayFromHour(ca.now().Hour()),
		BiologicalContext:    biological,
		EnvironmentalContext: environmental,
		Language:             prefs.Language,
		Lifestyle:            prefs.Lifestyle,
	}, nil
}

// resolveEnergy takes the explicit energy level when given, otherwise reads
// it from the biometric snapshot. A request with neither is a contract
// violation, not a runtime condition.
func resolveEnergy(input AnalyzeInput, biological map[string]float64) (int, error) {
	if input.EnergyLevel != nil {
		return ClampEnergy(*input.EnergyLevel), nil
	}
	if v, ok := biological[energyMetricKey]; ok {
		return ClampEnergy(int(v)), nil
	}
	if len(biological) == 0 {
		return 0, fmt.Errorf("%w: no energy level and empty biological context", ErrInvalidRequest)
	}
	return 0, fmt.Errorf("%w: biological context lacks %s", ErrInvalidRequest, energyMetricKey)
}
