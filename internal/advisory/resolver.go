package advisory

import "strings"

/* =================================================================================
							CONFLICT RESOLVER
	Given the active tags and the current energy level, pick a resolution
	strategy. The ladder is priority-ordered and the first match wins; the
	biological-safety override at the bottom of the energy band can never
	be skipped by any tag combination.
=================================================================================*/

const (
	// overrideEnergyCeiling is the top of the safety-override band.
	overrideEnergyCeiling = 20

	// gentleEnergyCeiling is the top of the reduced-intensity band.
	gentleEnergyCeiling = 40

	// holisticTagThreshold is the tag count at which advice is synthesized
	// into a single persona instead of listed per tag.
	holisticTagThreshold = 3

	// restGuardianPersona is the unified persona for the safety override.
	restGuardianPersona = "Rest Guardian"

	// genericPersona covers tag combinations missing from the synthesis table.
	genericPersona = "Personal Health Guide"
)

// recoveryFavoredTags keep their full instructions in gentle mode; all other
// tags are downgraded to a single softened line.
var recoveryFavoredTags = map[FocusTag]bool{
	TagBeauty: true,
	TagChill:  true,
	TagDiet:   true,
}

// synthesisPersonas names known tag pairs and triples. Keys are the sorted
// tag names joined with "+".
var synthesisPersonas = map[string]string{
	"beauty+work":         "High-Performance Wellness Expert",
	"athlete+work":        "Executive Athlete Coach",
	"diet+work":           "Fueled Focus Advisor",
	"chill+work":          "Sustainable Performance Mentor",
	"athlete+beauty":      "Radiant Athlete Coach",
	"beauty+diet":         "Inner-Glow Nutritionist",
	"beauty+chill":        "Restorative Beauty Guide",
	"athlete+diet":        "Sports Nutrition Specialist",
	"athlete+chill":       "Recovery-Smart Trainer",
	"chill+diet":          "Mindful Eating Companion",
	"beauty+diet+work":    "Holistic Performance Stylist",
	"athlete+diet+work":   "Peak Condition Strategist",
	"beauty+chill+diet":   "Whole-Self Restoration Guide",
	"athlete+chill+diet":  "Balanced Training Advisor",
	"athlete+beauty+diet": "Total Vitality Coach",
}

// ConflictResolver turns tag sets and energy readings into a single strategy.
// Stateless; safe for concurrent use.
type ConflictResolver struct{}

// NewConflictResolver returns a resolver over the built-in tag catalog.
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{}
}

// Resolve applies the priority ladder and returns the strategy for a request.
// Unknown tag combinations never fail; they fall back to the generic persona.
func (cr *ConflictResolver) Resolve(activeTags []FocusTag, energyLevel int) ResolutionStrategy {
	energyLevel = ClampEnergy(energyLevel)
	tags := SortTags(activeTags)

	// 1. Biological-safety override: all tag-specific advice is suppressed.
	if energyLevel <= overrideEnergyCeiling {
		return ResolutionStrategy{
			Mode:           ResolutionOverride,
			UnifiedPersona: restGuardianPersona,
			Instructions:   []TagInstruction{},
		}
	}

	// 2. Gentle band: recovery-favored tags keep their voice, the rest are
	// downgraded to one softened line each.
	if energyLevel <= gentleEnergyCeiling {
		instructions := make([]TagInstruction, 0, len(tags))
		for _, tag := range tags {
			profile, ok := ProfileFor(tag)
			if !ok {
				continue
			}
			if recoveryFavoredTags[tag] {
				instructions = append(instructions, fullInstruction(tag, profile))
				continue
			}
			instructions = append(instructions, TagInstruction{
				Tag:            tag,
				Persona:        profile.Persona,
				Lines:          []string{profile.SoftenedLine},
				DataPriorities: profile.DataPriorities,
				Tone:           "gentle, recovery-first",
				Softened:       true,
			})
		}
		return ResolutionStrategy{
			Mode:           ResolutionGentle,
			UnifiedPersona: cr.unifiedPersona(tags),
			Instructions:   instructions,
		}
	}

	// 3. Holistic synthesis once enough tags compete for attention.
	if len(tags) >= holisticTagThreshold {
		return ResolutionStrategy{
			Mode:           ResolutionHolistic,
			UnifiedPersona: cr.unifiedPersona(tags),
			Instructions:   cr.fullInstructions(tags),
		}
	}

	// 4. Balanced: every active tag keeps its full persona, unweighted.
	return ResolutionStrategy{
		Mode:           ResolutionBalanced,
		UnifiedPersona: cr.unifiedPersona(tags),
		Instructions:   cr.fullInstructions(tags),
	}
}

func (cr *ConflictResolver) fullInstructions(tags []FocusTag) []TagInstruction {
	instructions := make([]TagInstruction, 0, len(tags))
	for _, tag := range tags {
		profile, ok := ProfileFor(tag)
		if !ok {
			continue
		}
		instructions = append(instructions, fullInstruction(tag, profile))
	}
	return instructions
}

// unifiedPersona looks up the synthesis table for the sorted tag set.
func (cr *ConflictResolver) unifiedPersona(tags []FocusTag) string {
	switch len(tags) {
	case 0:
		return genericPersona
	case 1:
		if profile, ok := ProfileFor(tags[0]); ok {
			return profile.Persona
		}
		return genericPersona
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	if persona, ok := synthesisPersonas[strings.Join(names, "+")]; ok {
		return persona
	}
	return genericPersona
}

func fullInstruction(tag FocusTag, profile TagProfile) TagInstruction {
	return TagInstruction{
		Tag:            tag,
		Persona:        profile.Persona,
		Lines:          append([]string(nil), profile.Instructions...),
		DataPriorities: append([]string(nil), profile.DataPriorities...),
		Tone:           profile.Tone,
	}
}
