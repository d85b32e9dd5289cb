package advisory

import (
	"testing"

	"VitalSage_V0.1/internal/locale"
)

func TestSynthesize_OverrideSuppressesTagAdvice(t *testing.T) {
	ss := NewStaticSynthesizer(locale.NewCatalog())
	cr := NewConflictResolver()

	req := testRequest()
	req.EnergyLevel = 10
	strategy := cr.Resolve(req.ActiveTags, req.EnergyLevel)

	result := ss.Synthesize(req, strategy)
	if result.Source != SourceStaticFallback {
		t.Fatalf("expected static fallback source, got %s", result.Source)
	}
	if result.Confidence > 0.5 {
		t.Fatalf("static confidence must stay at or below 0.5, got %f", result.Confidence)
	}
	if len(result.TagInsights) != 1 {
		t.Fatalf("override must keep only the general rest insight, got %d", len(result.TagInsights))
	}
	if result.TagInsights[0].Tag != FocusTag("general") {
		t.Fatalf("expected a general insight, got %s", result.TagInsights[0].Tag)
	}
}

func TestSynthesize_IncludesSoftenedTagLines(t *testing.T) {
	ss := NewStaticSynthesizer(locale.NewCatalog())
	cr := NewConflictResolver()

	req := testRequest() // beauty + work, energy 72 -> balanced
	strategy := cr.Resolve(req.ActiveTags, req.EnergyLevel)

	result := ss.Synthesize(req, strategy)
	if len(result.TagInsights) != 3 {
		t.Fatalf("expected general plus one line per tag, got %d", len(result.TagInsights))
	}
	if result.Synthesis == nil || result.Synthesis.Persona != strategy.UnifiedPersona {
		t.Fatal("synthesis must carry the unified persona")
	}
}

func TestSynthesize_EnvironmentalThresholds(t *testing.T) {
	ss := NewStaticSynthesizer(locale.NewCatalog())
	cr := NewConflictResolver()

	req := testRequest()
	req.EnvironmentalContext = map[string]float64{
		"temperature": 34, // above threshold
		"uv_index":    5,  // below threshold
		"humidity":    85, // above threshold
	}
	strategy := cr.Resolve(req.ActiveTags, req.EnergyLevel)

	result := ss.Synthesize(req, strategy)
	metrics := map[string]bool{}
	for _, ei := range result.EnvironmentalInsights {
		metrics[ei.Metric] = true
	}
	if !metrics["temperature"] || !metrics["humidity"] {
		t.Fatalf("expected heat and humidity warnings, got %v", metrics)
	}
	if metrics["uv_index"] {
		t.Fatal("uv below threshold must not warn")
	}
}

func TestSynthesize_JapanesePhrases(t *testing.T) {
	ss := NewStaticSynthesizer(locale.NewCatalog())
	cr := NewConflictResolver()

	req := testRequest()
	req.Language = LangJapanese
	req.EnergyLevel = 10
	strategy := cr.Resolve(req.ActiveTags, req.EnergyLevel)

	result := ss.Synthesize(req, strategy)
	if result.TagInsights[0].Headline != "今日は休息が必要です。" {
		t.Fatalf("expected Japanese rest headline, got %q", result.TagInsights[0].Headline)
	}
}
