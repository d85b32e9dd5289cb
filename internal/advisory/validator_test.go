package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedPayload = `{
	"unified_persona": "High-Performance Wellness Expert",
	"analysis_summary": "Solid recovery, lean into focused work.",
	"tag_insights": [
		{"tag": "work", "persona": "Productivity Strategist", "headline": "Front-load deep work", "advice": ["Block 90 minutes before lunch."], "confidence": 0.9},
		{"tag": "beauty", "persona": "Skin & Radiance Coach", "headline": "Hydration is on track", "advice": ["Keep SPF on, UV is high."], "confidence": 0.85}
	],
	"environmental_insights": [{"metric": "uv_index", "message": "UV index 7, reapply sunscreen midday."}],
	"health_alerts": [],
	"confidence_score": 0.88
}`

func TestValidate_WellFormedResponse(t *testing.T) {
	rv := NewResponseValidator()
	result, ok := rv.Validate([]byte(wellFormedPayload))
	require.True(t, ok)

	assert.Len(t, result.TagInsights, 2)
	assert.Equal(t, TagWork, result.TagInsights[0].Tag)
	require.NotNil(t, result.Synthesis)
	assert.Equal(t, "High-Performance Wellness Expert", result.Synthesis.Persona)
	assert.InDelta(t, 0.88, result.Confidence, 1e-9)
	assert.Equal(t, SourceFresh, result.Source)
}

func TestValidate_StripsMarkdownFences(t *testing.T) {
	rv := NewResponseValidator()
	fenced := "Here is your analysis:\n```json\n" + wellFormedPayload + "\n```\nLet me know if you need more."

	result, ok := rv.Validate([]byte(fenced))
	require.True(t, ok)
	assert.Len(t, result.TagInsights, 2)
	// One repair was needed, so confidence takes one penalty.
	assert.InDelta(t, 0.88-repairPenalty, result.Confidence, 1e-9)
}

func TestValidate_DropsUnknownTags(t *testing.T) {
	rv := NewResponseValidator()
	raw := `{
		"tag_insights": [
			{"tag": "work", "headline": "ok", "advice": ["fine"]},
			{"tag": "astrology", "headline": "mercury retrograde", "advice": ["n/a"]}
		],
		"confidence_score": 1.0
	}`

	result, ok := rv.Validate([]byte(raw))
	require.True(t, ok)
	require.Len(t, result.TagInsights, 1)
	assert.Equal(t, TagWork, result.TagInsights[0].Tag)
	assert.InDelta(t, 1.0-repairPenalty, result.Confidence, 1e-9)
}

func TestValidate_AcceptsGeneralInsight(t *testing.T) {
	rv := NewResponseValidator()
	raw := `{"tag_insights": [{"tag": "general", "headline": "Rest today", "advice": ["Sleep early."]}], "confidence_score": 0.9}`

	result, ok := rv.Validate([]byte(raw))
	require.True(t, ok)
	assert.Equal(t, FocusTag("general"), result.TagInsights[0].Tag)
}

func TestValidate_RejectsWhenNoUsableInsights(t *testing.T) {
	rv := NewResponseValidator()

	for name, raw := range map[string]string{
		"empty input":      ``,
		"plain prose":      `I cannot produce an analysis right now.`,
		"truncated json":   `{"unified_persona": "Coach", "tag_insights": [{"tag": "wo`,
		"empty insights":   `{"tag_insights": [], "confidence_score": 0.9}`,
		"all tags invalid": `{"tag_insights": [{"tag": "unknown", "headline": "x"}, {"tag": "work"}]}`,
		"json array":       `[1, 2, 3]`,
	} {
		_, ok := rv.Validate([]byte(raw))
		assert.False(t, ok, "case %q must be rejected", name)
	}
}

func TestValidate_PartialFieldExtraction(t *testing.T) {
	rv := NewResponseValidator()
	// confidence_score is a string here; the field is unparseable but the
	// rest of the payload must survive.
	raw := `{
		"tag_insights": [{"tag": "chill", "headline": "Unwind tonight", "advice": ["Ten minutes of breathing."]}],
		"confidence_score": "very high"
	}`

	result, ok := rv.Validate([]byte(raw))
	require.True(t, ok)
	require.Len(t, result.TagInsights, 1)
	assert.Equal(t, TagChill, result.TagInsights[0].Tag)
	assert.Less(t, result.Confidence, 1.0)
}

func TestValidate_ConfidenceFloor(t *testing.T) {
	rv := NewResponseValidator()
	// Low reported confidence plus several repairs must never go below the floor.
	raw := "```json\n" + `{
		"tag_insights": [
			{"tag": "diet", "headline": "Eat light", "advice": ["Soup."]},
			{"tag": "bogus1", "headline": "x"},
			{"tag": "bogus2", "headline": "x"},
			{"tag": "bogus3", "headline": "x"}
		],
		"confidence_score": 0.1
	}` + "\n```"

	result, ok := rv.Validate([]byte(raw))
	require.True(t, ok)
	assert.InDelta(t, minValidatedConfidence, result.Confidence, 1e-9)
}

func TestValidate_RepairsOutOfRangeConfidence(t *testing.T) {
	rv := NewResponseValidator()
	raw := `{"tag_insights": [{"tag": "work", "headline": "ok", "advice": ["fine"]}], "confidence_score": 7.5}`

	result, ok := rv.Validate([]byte(raw))
	require.True(t, ok)
	assert.InDelta(t, 1.0-repairPenalty, result.Confidence, 1e-9)
}

func TestValidate_NeverPanicsOnGarbage(t *testing.T) {
	rv := NewResponseValidator()
	inputs := [][]byte{
		nil,
		[]byte("{"),
		[]byte("}{"),
		[]byte("```json```"),
		[]byte(`{"tag_insights": null}`),
		[]byte(`{"tag_insights": [null]}`),
		{0xff, 0xfe, 0x00},
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() { rv.Validate(raw) })
	}
}
