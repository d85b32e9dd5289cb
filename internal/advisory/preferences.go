package advisory

/* =================================================================================
							TAG CATALOG
	One immutable record per focus tag. Every component that needs persona,
	tone, or data-priority information reads this table instead of carrying
	its own switch statement.
=================================================================================*/

// TagProfile is the immutable catalog entry for one focus tag.
type TagProfile struct {
	// Persona names the coaching voice used when this tag speaks alone.
	Persona string

	// DataPriorities lists metric names in descending importance. The prompt
	// builder drops the lowest-priority metrics first when over token budget.
	DataPriorities []string

	// Tone is the messaging register injected into the prompt.
	Tone string

	// Instructions are the full per-tag prompt directives.
	Instructions []string

	// SoftenedLine replaces Instructions when the tag is downgraded in
	// gentle mode.
	SoftenedLine string
}

var tagCatalog = map[FocusTag]TagProfile{
	TagWork: {
		Persona:        "Productivity Strategist",
		DataPriorities: []string{"hrv", "sleep_hours", "stress_index", "heart_rate"},
		Tone:           "direct, efficiency-focused",
		Instructions: []string{
			"Suggest focus and break cadence matched to the current readiness level.",
			"Flag cognitive-load risk when sleep or HRV trend low.",
			"Keep advice actionable within a working day.",
		},
		SoftenedLine: "Keep work demands light today and protect recovery time.",
	},
	TagBeauty: {
		Persona:        "Skin & Radiance Coach",
		DataPriorities: []string{"sleep_hours", "hydration", "uv_index", "humidity"},
		Tone:           "warm, encouraging",
		Instructions: []string{
			"Connect sleep and hydration readings to skin condition.",
			"Adapt skincare advice to current UV and humidity.",
		},
		SoftenedLine: "Focus on gentle hydration and rest for your skin today.",
	},
	TagDiet: {
		Persona:        "Nutrition Planner",
		DataPriorities: []string{"active_calories", "steps", "sleep_hours", "heart_rate"},
		Tone:           "practical, non-judgmental",
		Instructions: []string{
			"Balance meal suggestions against today's energy expenditure.",
			"Prefer small sustainable adjustments over restrictive plans.",
		},
		SoftenedLine: "Choose easy, nourishing meals and skip strict tracking today.",
	},
	TagChill: {
		Persona:        "Mindfulness Guide",
		DataPriorities: []string{"stress_index", "hrv", "sleep_hours"},
		Tone:           "calm, low-pressure",
		Instructions: []string{
			"Offer one short wind-down practice suited to the time of day.",
			"Never frame relaxation as another task to complete.",
		},
		SoftenedLine: "Give yourself permission to do less today.",
	},
	TagAthlete: {
		Persona:        "Performance Trainer",
		DataPriorities: []string{"hrv", "resting_heart_rate", "active_calories", "sleep_hours", "temperature"},
		Tone:           "motivating, data-driven",
		Instructions: []string{
			"Scale training intensity to readiness and recent load.",
			"Call out recovery debt explicitly before prescribing intensity.",
		},
		SoftenedLine: "Swap training for mobility work or a full rest day.",
	},
}

// ProfileFor returns the catalog record for a tag.
func ProfileFor(tag FocusTag) (TagProfile, bool) {
	p, ok := tagCatalog[tag]
	return p, ok
}

// PreferenceModel is the user-owned preference state: which tags are active
// and which lifestyle register applies. Pure data, no behavior.
type PreferenceModel struct {
	ActiveTags []FocusTag    `json:"active_tags"`
	Lifestyle  LifestyleMode `json:"lifestyle"`
	Language   Language      `json:"language"`
}

// Normalize returns a copy with tags sorted and deduplicated and defaults
// applied for unset fields.
func (p PreferenceModel) Normalize() PreferenceModel {
	out := PreferenceModel{
		ActiveTags: SortTags(p.ActiveTags),
		Lifestyle:  p.Lifestyle,
		Language:   p.Language,
	}
	if out.Lifestyle == "" {
		out.Lifestyle = ModeStandard
	}
	if out.Language == "" {
		out.Language = LangEnglish
	}
	return out
}
