package advisory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

/* =================================================================================
							CORE VALUE TYPES
	These types travel across the whole engine: requests in, results out.
=================================================================================*/

// FocusTag is a user-selected lens that reweights which signals matter
// and how advice is phrased.
type FocusTag string

const (
	TagWork    FocusTag = "work"
	TagBeauty  FocusTag = "beauty"
	TagDiet    FocusTag = "diet"
	TagChill   FocusTag = "chill"
	TagAthlete FocusTag = "athlete"
)

// AllFocusTags returns the full tag catalog in canonical order.
func AllFocusTags() []FocusTag {
	return []FocusTag{TagWork, TagBeauty, TagDiet, TagChill, TagAthlete}
}

// ParseFocusTag converts client input into a known tag.
func ParseFocusTag(s string) (FocusTag, error) {
	tag := FocusTag(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllFocusTags() {
		if tag == known {
			return tag, nil
		}
	}
	return "", fmt.Errorf("unknown focus tag %q", s)
}

// LifestyleMode selects the overall coaching register.
type LifestyleMode string

const (
	ModeStandard     LifestyleMode = "standard"
	ModeAthleteStyle LifestyleMode = "athlete"
)

// TimeOfDay buckets the clock so cache keys and prompts stay stable
// within a session instead of churning every minute.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// TimeOfDayFromHour maps an hour (0-23) to its bucket.
func TimeOfDayFromHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// Language selects the output locale for generated advice.
type Language string

const (
	LangJapanese Language = "ja"
	LangEnglish  Language = "en"
)

// ClampEnergy forces an energy reading into the valid 0-100 band.
func ClampEnergy(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

/* =================================================================================
							ANALYSIS REQUEST
=================================================================================*/

// AnalysisRequest is the normalized, immutable input to the engine.
// Build it through ContextAssembler.Assemble; the canonical serialization of
// this struct is the cache key basis, so field order and tag ordering are fixed.
type AnalysisRequest struct {
	UserID               string             `json:"user_id"`
	EnergyLevel          int                `json:"energy_level"`
	ActiveTags           []FocusTag         `json:"active_tags"`
	TimeOfDay            TimeOfDay          `json:"time_of_day"`
	BiologicalContext    map[string]float64 `json:"biological_context"`
	EnvironmentalContext map[string]float64 `json:"environmental_context"`
	Language             Language           `json:"language"`
	Lifestyle            LifestyleMode      `json:"lifestyle"`
}

// CacheKey returns a stable hash of the request's canonical serialization.
// Map keys are emitted in sorted order by encoding/json, and ActiveTags are
// sorted at assembly time, so identical requests always produce the same key.
func (r AnalysisRequest) CacheKey() string {
	canonical, err := json.Marshal(r)
	if err != nil {
		// Marshalling a map[string]float64 struct cannot fail in practice;
		// keep a deterministic key anyway.
		canonical = []byte(fmt.Sprintf("%s|%d|%v|%s", r.UserID, r.EnergyLevel, r.ActiveTags, r.TimeOfDay))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Fingerprint captures the coarse shape of a request for tier-2 fuzzy matching.
func (r AnalysisRequest) Fingerprint(mode ResolutionMode) RequestFingerprint {
	return RequestFingerprint{
		UserID:      r.UserID,
		ActiveTags:  append([]FocusTag(nil), r.ActiveTags...),
		Mode:        mode,
		EnergyLevel: r.EnergyLevel,
		TimeOfDay:   r.TimeOfDay,
		Language:    r.Language,
	}
}

// SortTags orders a tag set canonically and drops duplicates.
func SortTags(tags []FocusTag) []FocusTag {
	seen := make(map[FocusTag]bool, len(tags))
	out := make([]FocusTag, 0, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

/* =================================================================================
							RESOLUTION STRATEGY
	Derived per request by ConflictResolver; cheap, context-dependent,
	never cached independently.
=================================================================================*/

// ResolutionMode is the conflict-resolution strategy chosen for a request.
type ResolutionMode string

const (
	ResolutionOverride ResolutionMode = "override"
	ResolutionGentle   ResolutionMode = "gentle"
	ResolutionBalanced ResolutionMode = "balanced"
	ResolutionHolistic ResolutionMode = "holistic"
)

// TagInstruction carries one tag's contribution to the prompt.
type TagInstruction struct {
	Tag            FocusTag `json:"tag"`
	Persona        string   `json:"persona"`
	Lines          []string `json:"lines"`
	DataPriorities []string `json:"data_priorities"`
	Tone           string   `json:"tone"`
	Softened       bool     `json:"softened"`
}

// ResolutionStrategy is the unified persona plus per-tag instructions the
// prompt builder renders from.
type ResolutionStrategy struct {
	Mode           ResolutionMode   `json:"mode"`
	UnifiedPersona string           `json:"unified_persona"`
	Instructions   []TagInstruction `json:"instructions"`
}

/* =================================================================================
							ANALYSIS RESULT
=================================================================================*/

// ResultSource marks where a result came from so the client can communicate
// degraded quality without ever seeing a raw error.
type ResultSource string

const (
	SourceFresh          ResultSource = "fresh"
	SourceCache          ResultSource = "cache"
	SourceStaticFallback ResultSource = "static_fallback"
)

// TagInsight is one tag's advice block in the final result.
type TagInsight struct {
	Tag        FocusTag `json:"tag"`
	Persona    string   `json:"persona"`
	Headline   string   `json:"headline"`
	Advice     []string `json:"advice"`
	Confidence float64  `json:"confidence,omitempty"`
}

// SynthesisSummary merges multiple active tags into one coherent message.
type SynthesisSummary struct {
	Persona string `json:"persona"`
	Message string `json:"message"`
}

// EnvironmentalInsight ties one environmental metric to a piece of advice.
type EnvironmentalInsight struct {
	Metric  string `json:"metric"`
	Message string `json:"message"`
}

// AnalysisResult is the engine's only terminal output. Invariant: when
// Source is static_fallback, Confidence never exceeds 0.5.
type AnalysisResult struct {
	TagInsights           []TagInsight           `json:"tag_insights"`
	Synthesis             *SynthesisSummary      `json:"synthesis,omitempty"`
	EnvironmentalInsights []EnvironmentalInsight `json:"environmental_insights,omitempty"`
	HealthAlerts          []string               `json:"health_alerts,omitempty"`
	Confidence            float64                `json:"confidence"`
	Source                ResultSource           `json:"source"`
	GeneratedAt           time.Time              `json:"generated_at"`
}

/* =================================================================================
							CACHE TYPES
=================================================================================*/

// CacheTier identifies which of the three cache levels an entry lives in.
type CacheTier string

const (
	TierInstant    CacheTier = "instant"
	TierContextual CacheTier = "contextual"
	TierFallback   CacheTier = "fallback"
)

// RequestFingerprint is the subset of a request used for tier-2 adaptation:
// same tags and mode, energy within a tolerance, same time-of-day bucket.
type RequestFingerprint struct {
	UserID      string         `json:"user_id"`
	ActiveTags  []FocusTag     `json:"active_tags"`
	Mode        ResolutionMode `json:"mode"`
	EnergyLevel int            `json:"energy_level"`
	TimeOfDay   TimeOfDay      `json:"time_of_day"`
	Language    Language       `json:"language"`
}

// SameShape reports whether two fingerprints agree on everything except
// the energy reading.
func (f RequestFingerprint) SameShape(other RequestFingerprint) bool {
	if f.UserID != other.UserID || f.Mode != other.Mode ||
		f.TimeOfDay != other.TimeOfDay || f.Language != other.Language {
		return false
	}
	if len(f.ActiveTags) != len(other.ActiveTags) {
		return false
	}
	for i := range f.ActiveTags {
		if f.ActiveTags[i] != other.ActiveTags[i] {
			return false
		}
	}
	return true
}

// CacheEntry wraps a stored result with its provenance.
type CacheEntry struct {
	Key         string             `json:"key"`
	Payload     AnalysisResult     `json:"payload"`
	CreatedAt   time.Time          `json:"created_at"`
	Tier        CacheTier          `json:"tier"`
	Fingerprint RequestFingerprint `json:"fingerprint"`
}
