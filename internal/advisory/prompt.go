package advisory

import (
	"fmt"
	"sort"
	"strings"

	"VitalSage_V0.1/internal/locale"
)

/* =================================================================================
							PROMPT BUILDER
	Renders a bounded-token prompt from a normalized request plus the chosen
	resolution strategy. Pure function over its inputs: identical requests
	produce byte-identical prompts, which keeps cache keys and prompt content
	consistent. No timestamps are embedded, only the time-of-day bucket.
=================================================================================*/

const (
	// fullPromptTokenBudget bounds balanced and holistic prompts.
	fullPromptTokenBudget = 2000

	// reducedPromptTokenBudget bounds gentle and override prompts.
	reducedPromptTokenBudget = 1200

	// charsPerToken is the estimation heuristic used for budgeting.
	charsPerToken = 4
)

// Prompt is the rendered generation input with its estimated token cost.
type Prompt struct {
	System          string         `json:"system"`
	User            string         `json:"user"`
	EstimatedTokens int            `json:"estimated_tokens"`
	Mode            ResolutionMode `json:"mode"`
	Language        Language       `json:"language"`
}

// EstimateTokens approximates the token count of a string. A characters/4
// heuristic is close enough for budget enforcement.
func EstimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}

// PromptBuilder renders prompts using an injected phrase catalog.
type PromptBuilder struct {
	catalog *locale.Catalog
}

// NewPromptBuilder returns a builder over the given localization catalog.
func NewPromptBuilder(catalog *locale.Catalog) *PromptBuilder {
	return &PromptBuilder{catalog: catalog}
}

// Build renders the prompt for a request and strategy, truncating the
// lowest-priority optional metrics first when over the mode's token budget.
// It never fails; the worst case is a prompt with no optional context.
func (pb *PromptBuilder) Build(req AnalysisRequest, strategy ResolutionStrategy) Prompt {
	loc := pb.catalog.For(string(req.Language))
	budget := fullPromptTokenBudget
	if strategy.Mode == ResolutionGentle || strategy.Mode == ResolutionOverride {
		budget = reducedPromptTokenBudget
	}

	system := pb.renderSystem(strategy, loc)

	// Optional context metrics, ordered best-first. We keep removing the
	// tail until the prompt fits the budget.
	metrics := orderedMetrics(req, strategy)
	var user string
	for {
		user = pb.renderUser(req, strategy, metrics, loc)
		if EstimateTokens(system)+EstimateTokens(user) <= budget || len(metrics) == 0 {
			break
		}
		metrics = metrics[:len(metrics)-1]
	}

	return Prompt{
		System:          system,
		User:            user,
		EstimatedTokens: EstimateTokens(system) + EstimateTokens(user),
		Mode:            strategy.Mode,
		Language:        req.Language,
	}
}

func (pb *PromptBuilder) renderSystem(strategy ResolutionStrategy, loc locale.Localizer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %q, a personal health advisor.\n", strategy.UnifiedPersona)
	b.WriteString("Respond in ")
	b.WriteString(loc.Phrase("prompt.language_name"))
	b.WriteString(".\n\n")

	b.WriteString("SAFETY RULES:\n")
	b.WriteString("- You are strictly a health, recovery, and lifestyle assistant.\n")
	b.WriteString("- Never provide medical diagnoses; recommend professional care for concerning readings.\n")
	b.WriteString("- Never reference data that is marked as insufficient.\n")

	switch strategy.Mode {
	case ResolutionOverride:
		b.WriteString("\nMODE: rest override. The user's readiness is critically low. ")
		b.WriteString("Suppress all focus-area coaching and advise rest and recovery only.\n")
	case ResolutionGentle:
		b.WriteString("\nMODE: gentle. Keep every suggestion low-effort and recovery-first.\n")
	case ResolutionHolistic:
		b.WriteString("\nMODE: holistic. Merge all focus areas into one coherent message; ")
		b.WriteString("never emit conflicting advice for different focus areas.\n")
	default:
		b.WriteString("\nMODE: balanced. Give each focus area equal weight.\n")
	}

	b.WriteString("\nOUTPUT: return only the JSON structure requested, no markdown, no preamble.\n")
	return b.String()
}

func (pb *PromptBuilder) renderUser(req AnalysisRequest, strategy ResolutionStrategy, metrics []metricLine, loc locale.Localizer) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s ===\n%d\n\n", loc.Phrase("prompt.energy_state"), req.EnergyLevel)
	fmt.Fprintf(&b, "=== %s ===\n%s\n\n", loc.Phrase("prompt.time_of_day"), req.TimeOfDay)

	b.WriteString("=== " + loc.Phrase("prompt.active_focus") + " ===\n")
	if len(strategy.Instructions) == 0 {
		b.WriteString("(suppressed by rest override)\n")
	}
	for _, ins := range strategy.Instructions {
		fmt.Fprintf(&b, "[%s] persona=%s tone=%s\n", ins.Tag, ins.Persona, ins.Tone)
		for _, line := range ins.Lines {
			b.WriteString("- " + line + "\n")
		}
	}
	b.WriteString("\n")

	bio, env := splitMetrics(metrics)
	b.WriteString("=== " + loc.Phrase("prompt.biological") + " ===\n")
	writeMetricLines(&b, bio, loc)
	b.WriteString("\n=== " + loc.Phrase("prompt.environmental") + " ===\n")
	writeMetricLines(&b, env, loc)

	// Metrics the strategy prioritizes but the assembler could not supply
	// are declared insufficient so the model does not fabricate them.
	missing := missingPriorityMetrics(req, strategy)
	if len(missing) > 0 {
		b.WriteString("\n=== " + loc.Phrase("prompt.insufficient_data") + " ===\n")
		b.WriteString(strings.Join(missing, ", ") + "\n")
	}

	return b.String()
}

/* =================================================================================
							METRIC ORDERING
=================================================================================*/

type metricLine struct {
	name          string
	value         float64
	environmental bool
}

// orderedMetrics returns the request's optional metrics best-first: metrics
// named in the strategy's data priorities come first in priority order,
// everything else follows alphabetically.
func orderedMetrics(req AnalysisRequest, strategy ResolutionStrategy) []metricLine {
	rank := map[string]int{}
	next := 0
	for _, ins := range strategy.Instructions {
		for _, name := range ins.DataPriorities {
			if _, ok := rank[name]; !ok {
				rank[name] = next
				next++
			}
		}
	}

	lines := make([]metricLine, 0, len(req.BiologicalContext)+len(req.EnvironmentalContext))
	for name, v := range req.BiologicalContext {
		lines = append(lines, metricLine{name: name, value: v})
	}
	for name, v := range req.EnvironmentalContext {
		lines = append(lines, metricLine{name: name, value: v, environmental: true})
	}

	sort.Slice(lines, func(i, j int) bool {
		ri, iOK := rank[lines[i].name]
		rj, jOK := rank[lines[j].name]
		switch {
		case iOK && jOK:
			if ri != rj {
				return ri < rj
			}
		case iOK:
			return true
		case jOK:
			return false
		}
		if lines[i].name != lines[j].name {
			return lines[i].name < lines[j].name
		}
		return !lines[i].environmental && lines[j].environmental
	})
	return lines
}

func splitMetrics(metrics []metricLine) (bio, env []metricLine) {
	for _, m := range metrics {
		if m.environmental {
			env = append(env, m)
		} else {
			bio = append(bio, m)
		}
	}
	return bio, env
}

func writeMetricLines(b *strings.Builder, metrics []metricLine, loc locale.Localizer) {
	if len(metrics) == 0 {
		b.WriteString("(" + loc.Phrase("prompt.insufficient_data") + ")\n")
		return
	}
	for _, m := range metrics {
		fmt.Fprintf(b, "%s: %.2f\n", m.name, m.value)
	}
}

func missingPriorityMetrics(req AnalysisRequest, strategy ResolutionStrategy) []string {
	seen := map[string]bool{}
	var missing []string
	for _, ins := range strategy.Instructions {
		for _, name := range ins.DataPriorities {
			if seen[name] {
				continue
			}
			seen[name] = true
			_, inBio := req.BiologicalContext[name]
			_, inEnv := req.EnvironmentalContext[name]
			if !inBio && !inEnv {
				missing = append(missing, name)
			}
		}
	}
	sort.Strings(missing)
	return missing
}
