package advisory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBioSource struct {
	snapshot map[string]float64
	err      error
}

func (s stubBioSource) GetLatestSnapshot(_ context.Context, _ string) (map[string]float64, error) {
	return s.snapshot, s.err
}

type stubEnvSource struct {
	conditions map[string]float64
	err        error
}

func (s stubEnvSource) GetCurrentConditions(_ context.Context, _ string) (map[string]float64, error) {
	return s.conditions, s.err
}

func assemblerAt(bio BiometricSource, env EnvironmentalSource, hour int) *ContextAssembler {
	ca := NewContextAssembler(bio, env)
	ca.now = func() time.Time { return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC) }
	return ca
}

func TestAssemble_MergesSourcesWithClientPriority(t *testing.T) {
	bio := stubBioSource{snapshot: map[string]float64{"hrv": 48, "sleep_hours": 7}}
	env := stubEnvSource{conditions: map[string]float64{"temperature": 22, "uv_index": 3}}
	ca := assemblerAt(bio, env, 9)

	energy := 65
	req, err := ca.Assemble(context.Background(), AnalyzeInput{
		UserID:      "u1",
		EnergyLevel: &energy,
		Preferences: PreferenceModel{ActiveTags: []FocusTag{TagWork, TagBeauty, TagWork}},
		// Client-side reading for hrv is fresher and must win.
		BiologicalContext:    map[string]float64{"hrv": 55},
		EnvironmentalContext: map[string]float64{"humidity": 80},
	})
	require.NoError(t, err)

	assert.Equal(t, 55.0, req.BiologicalContext["hrv"])
	assert.Equal(t, 7.0, req.BiologicalContext["sleep_hours"])
	assert.Equal(t, 22.0, req.EnvironmentalContext["temperature"])
	assert.Equal(t, 80.0, req.EnvironmentalContext["humidity"])

	assert.Equal(t, []FocusTag{TagBeauty, TagWork}, req.ActiveTags, "tags must be deduplicated and canonically ordered")
	assert.Equal(t, Morning, req.TimeOfDay)
	assert.Equal(t, LangEnglish, req.Language, "language must default to English")
	assert.Equal(t, ModeStandard, req.Lifestyle, "lifestyle must default to standard")
}

func TestAssemble_ToleratesSourceFailures(t *testing.T) {
	bio := stubBioSource{err: errors.New("healthkit bridge down")}
	env := stubEnvSource{err: errors.New("weather api 500")}
	ca := assemblerAt(bio, env, 14)

	energy := 50
	req, err := ca.Assemble(context.Background(), AnalyzeInput{
		UserID:            "u1",
		EnergyLevel:       &energy,
		BiologicalContext: map[string]float64{"heart_rate": 62},
	})
	require.NoError(t, err, "source failures must downgrade to partial context")
	assert.Equal(t, 62.0, req.BiologicalContext["heart_rate"])
	assert.Empty(t, req.EnvironmentalContext)
	assert.Equal(t, Afternoon, req.TimeOfDay)
}

func TestAssemble_EnergyResolution(t *testing.T) {
	ca := assemblerAt(nil, nil, 9)

	t.Run("explicit energy is clamped", func(t *testing.T) {
		energy := 140
		req, err := ca.Assemble(context.Background(), AnalyzeInput{UserID: "u1", EnergyLevel: &energy})
		require.NoError(t, err)
		assert.Equal(t, 100, req.EnergyLevel)

		negative := -5
		req, err = ca.Assemble(context.Background(), AnalyzeInput{UserID: "u1", EnergyLevel: &negative})
		require.NoError(t, err)
		assert.Equal(t, 0, req.EnergyLevel)
	})

	t.Run("derived from biometric snapshot", func(t *testing.T) {
		req, err := ca.Assemble(context.Background(), AnalyzeInput{
			UserID:            "u1",
			BiologicalContext: map[string]float64{"energy_level": 63.7},
		})
		require.NoError(t, err)
		assert.Equal(t, 63, req.EnergyLevel)
	})

	t.Run("missing everywhere is a contract violation", func(t *testing.T) {
		_, err := ca.Assemble(context.Background(), AnalyzeInput{UserID: "u1"})
		require.ErrorIs(t, err, ErrInvalidRequest)

		_, err = ca.Assemble(context.Background(), AnalyzeInput{
			UserID:            "u1",
			BiologicalContext: map[string]float64{"heart_rate": 60},
		})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("missing user id", func(t *testing.T) {
		energy := 50
		_, err := ca.Assemble(context.Background(), AnalyzeInput{EnergyLevel: &energy})
		require.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestTimeOfDayFromHour_Buckets(t *testing.T) {
	cases := map[int]TimeOfDay{
		0: Night, 4: Night, 5: Morning, 11: Morning,
		12: Afternoon, 16: Afternoon, 17: Evening, 21: Evening,
		22: Night, 23: Night,
	}
	for hour, want := range cases {
		if got := TimeOfDayFromHour(hour); got != want {
			t.Fatalf("hour %d: expected %s, got %s", hour, want, got)
		}
	}
}
