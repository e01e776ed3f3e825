package gemini

// schema is the OpenAPI subset accepted by generationConfig.responseSchema.
type schema struct {
	Type       string            `json:"type"`
	Enum       []string          `json:"enum,omitempty"`
	Properties map[string]schema `json:"properties,omitempty"`
	Items      *schema           `json:"items,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

func reportSchema() schema {
	stringList := schema{Type: "ARRAY", Items: &schema{Type: "STRING"}}
	return schema{
		Type: "OBJECT",
		Properties: map[string]schema{
			"case_id":             {Type: "STRING"},
			"verdict":             {Type: "STRING", Enum: []string{"LIKELY_PIRATED", "INCONCLUSIVE", "LIKELY_ORIGINAL"}},
			"confidence_score":    {Type: "NUMBER"},
			"summary":             {Type: "STRING"},
			"evidence":            stringList,
			"risk_level":          {Type: "STRING", Enum: []string{"LOW", "MEDIUM", "HIGH"}},
			"suspicious_urls":     stringList,
			"probable_sources":    stringList,
			"data_gaps":           stringList,
			"recommended_actions": stringList,
			"engine_scores": {
				Type: "ARRAY",
				Items: &schema{
					Type: "OBJECT",
					Properties: map[string]schema{
						"name":  {Type: "STRING"},
						"score": {Type: "NUMBER"},
					},
					Required: []string{"name", "score"},
				},
			},
		},
		Required: []string{"case_id", "verdict", "confidence_score", "summary", "risk_level"},
	}
}
