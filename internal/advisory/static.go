package advisory

import (
	"time"

	"VitalSage_V0.1/internal/locale"
)

/* =================================================================================
						STATIC-RULE SYNTHESIS
	Last line of defense: when the generator is unreachable and every cache
	tier misses, advice is synthesized from fixed rules over the energy band
	and environmental thresholds. Results are always marked static_fallback
	with confidence capped at 0.5.
=================================================================================*/

const (
	// staticFallbackConfidence is deliberately below the 0.5 invariant cap.
	staticFallbackConfidence = 0.4

	highTemperatureThreshold = 30.0 // celsius
	highUVThreshold          = 6.0
	highHumidityThreshold    = 70.0 // percent
)

// StaticSynthesizer produces rule-based fallback results.
type StaticSynthesizer struct {
	catalog *locale.Catalog
	now     func() time.Time
}

// NewStaticSynthesizer returns a synthesizer over the phrase catalog.
func NewStaticSynthesizer(catalog *locale.Catalog) *StaticSynthesizer {
	return &StaticSynthesizer{catalog: catalog, now: time.Now}
}

// Synthesize builds a degraded result from the request and strategy alone.
func (ss *StaticSynthesizer) Synthesize(req AnalysisRequest, strategy ResolutionStrategy) AnalysisResult {
	loc := ss.catalog.For(string(req.Language))

	headlineKey, adviceKey := energyBandPhrases(req.EnergyLevel)
	insights := []TagInsight{{
		Tag:      FocusTag(generalInsightTag),
		Persona:  strategy.UnifiedPersona,
		Headline: loc.Phrase(headlineKey),
		Advice:   []string{loc.Phrase(adviceKey)},
	}}

	// Softened one-liners per active tag, except under the rest override
	// where all tag advice stays suppressed.
	if strategy.Mode != ResolutionOverride {
		for _, ins := range strategy.Instructions {
			profile, ok := ProfileFor(ins.Tag)
			if !ok {
				continue
			}
			insights = append(insights, TagInsight{
				Tag:      ins.Tag,
				Persona:  ins.Persona,
				Headline: profile.SoftenedLine,
			})
		}
	}

	return AnalysisResult{
		TagInsights:           insights,
		Synthesis:             &SynthesisSummary{Persona: strategy.UnifiedPersona, Message: loc.Phrase("static.synthesis")},
		EnvironmentalInsights: environmentalRules(req, loc),
		Confidence:            staticFallbackConfidence,
		Source:                SourceStaticFallback,
		GeneratedAt:           ss.now(),
	}
}

func energyBandPhrases(energy int) (headline, advice string) {
	switch {
	case energy <= overrideEnergyCeiling:
		return "static.rest_headline", "static.rest_advice"
	case energy <= gentleEnergyCeiling:
		return "static.low_headline", "static.low_advice"
	case energy <= 70:
		return "static.ok_headline", "static.ok_advice"
	default:
		return "static.high_headline", "static.high_advice"
	}
}

func environmentalRules(req AnalysisRequest, loc locale.Localizer) []EnvironmentalInsight {
	var out []EnvironmentalInsight
	if v, ok := req.EnvironmentalContext["temperature"]; ok && v >= highTemperatureThreshold {
		out = append(out, EnvironmentalInsight{Metric: "temperature", Message: loc.Phrase("static.env_heat")})
	}
	if v, ok := req.EnvironmentalContext["uv_index"]; ok && v >= highUVThreshold {
		out = append(out, EnvironmentalInsight{Metric: "uv_index", Message: loc.Phrase("static.env_uv")})
	}
	if v, ok := req.EnvironmentalContext["humidity"]; ok && v >= highHumidityThreshold {
		out = append(out, EnvironmentalInsight{Metric: "humidity", Message: loc.Phrase("static.env_humidity")})
	}
	return out
}
