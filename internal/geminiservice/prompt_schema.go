package geminiservice

/* =================================================================================
							GEMINI SCHEMA DEFINITION
	This is the structure that tells Gemini how to format its JSON response.
	It mirrors the shape advisory.ResponseValidator expects, but validation
	never trusts the model to have honored it.
=================================================================================*/

// GeminiSchema defines the structure for "Controlled Generation" (Structured Output).
type GeminiSchema struct {
	// Type defines the data type (e.g., "OBJECT", "ARRAY", "STRING", "NUMBER").
	Type string `json:"type"`

	// Description explains the field's purpose to the AI.
	Description string `json:"description,omitempty"`

	// Properties maps field names to their child schemas (used when Type is "OBJECT").
	Properties map[string]*GeminiSchema `json:"properties,omitempty"`

	// Items defines the schema for elements within an array.
	Items *GeminiSchema `json:"items,omitempty"`

	// Required lists the field names that the AI MUST include in the response.
	Required []string `json:"required,omitempty"`

	// Enum lists valid specific string values for fields with restricted options.
	Enum []string `json:"enum,omitempty"`
}

/*
AnalysisSchema describes the exact JSON structure the model MUST output for
one analysis. The tag "general" is reserved for advice not bound to a focus
tag, e.g. the single rest message under the low-energy override.
*/
var AnalysisSchema = &GeminiSchema{
	Type: "OBJECT",
	Properties: map[string]*GeminiSchema{
		"unified_persona": {
			Type:        "STRING",
			Description: "The persona name you were asked to speak as. Copy it verbatim from the system instruction.",
		},
		"analysis_summary": {
			Type:        "STRING",
			Description: "2-sentence synthesis merging all focus areas into one coherent message. Never contradict one focus area with another.",
		},
		"confidence_score": {
			Type:        "NUMBER",
			Description: "Float 0.0 to 1.0. Lower the score when readings are missing, conflicting, or marked as insufficient data.",
		},
		"tag_insights": {
			Type:        "ARRAY",
			Description: "One entry per active focus area. Under the rest override, return exactly one entry with tag 'general'.",
			Items: &GeminiSchema{
				Type: "OBJECT",
				Properties: map[string]*GeminiSchema{
					"tag": {
						Type:        "STRING",
						Description: "The focus tag this insight belongs to.",
						Enum:        []string{"work", "beauty", "diet", "chill", "athlete", "general"},
					},
					"persona": {
						Type:        "STRING",
						Description: "The coaching voice for this tag, copied from the prompt.",
					},
					"headline": {
						Type:        "STRING",
						Description: "One-line takeaway for this focus area.",
					},
					"advice": {
						Type:        "ARRAY",
						Description: "1-3 short, actionable suggestions. Never reference metrics listed as insufficient.",
						Items:       &GeminiSchema{Type: "STRING"},
					},
					"confidence": {
						Type:        "NUMBER",
						Description: "Float 0.0 to 1.0 for this insight alone.",
					},
				},
				Required: []string{"tag", "headline", "advice"},
			},
		},
		"environmental_insights": {
			Type:        "ARRAY",
			Description: "Advice tied to specific environmental readings. Return [] when no reading is noteworthy.",
			Items: &GeminiSchema{
				Type: "OBJECT",
				Properties: map[string]*GeminiSchema{
					"metric": {
						Type:        "STRING",
						Description: "The environmental metric name exactly as it appeared in the prompt.",
					},
					"message": {
						Type:        "STRING",
						Description: "One sentence of advice tied to this reading.",
					},
				},
				Required: []string{"metric", "message"},
			},
		},
		"health_alerts": {
			Type:        "ARRAY",
			Description: "Safety warnings for concerning readings. Recommend professional care, never a diagnosis.",
			Items:       &GeminiSchema{Type: "STRING"},
		},
	},
	Required: []string{"analysis_summary", "tag_insights", "confidence_score"},
}
