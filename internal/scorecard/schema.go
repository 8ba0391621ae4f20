package scorecard

// ResponseSchema is the response-shape constraint sent with every model
// request. It uses the OpenAPI subset the generateContent endpoint accepts.
func ResponseSchema() map[string]interface{} {
	number := func(description string) map[string]interface{} {
		s := map[string]interface{}{"type": "NUMBER"}
		if description != "" {
			s["description"] = description
		}
		return s
	}
	integer := func(description string) map[string]interface{} {
		s := map[string]interface{}{"type": "INTEGER"}
		if description != "" {
			s["description"] = description
		}
		return s
	}
	stringList := func(description string) map[string]interface{} {
		s := map[string]interface{}{
			"type":  "ARRAY",
			"items": map[string]interface{}{"type": "STRING"},
		}
		if description != "" {
			s["description"] = description
		}
		return s
	}

	return map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"overallScore":       integer("Final score out of 100"),
			"oneSentenceSummary": map[string]interface{}{"type": "STRING", "description": "Professional executive summary"},
			"confidenceLevel": map[string]interface{}{
				"type":        "STRING",
				"description": "High, Medium, or Low",
				"enum":        []string{string(ConfidenceHigh), string(ConfidenceMedium), string(ConfidenceLow)},
			},
			"metrics": map[string]interface{}{
				"type": "OBJECT",
				"properties": map[string]interface{}{
					"totalItems": integer(""),
					"sizeCategory": map[string]interface{}{
						"type":        "STRING",
						"description": "Small (<25), Medium (25-50), Large (>50)",
						"enum":        []string{string(SizeSmall), string(SizeMedium), string(SizeLarge)},
					},
					"complexityScore": integer("A calculated value from 1 to 10 representing operational complexity."),
					"pricing": map[string]interface{}{
						"type": "OBJECT",
						"properties": map[string]interface{}{
							"minPrice":    number(""),
							"maxPrice":    number(""),
							"medianPrice": number(""),
						},
						"required": []string{"minPrice", "maxPrice", "medianPrice"},
					},
				},
				"required": []string{"totalItems", "sizeCategory", "complexityScore", "pricing"},
			},
			"breakdown": map[string]interface{}{
				"type": "OBJECT",
				"properties": map[string]interface{}{
					"simplicityScore": integer("Out of 25"),
					"pricingScore":    integer("Out of 25"),
					"balanceScore":    integer("Out of 25"),
					"marginScore":     integer("Out of 25"),
				},
				"required": []string{"simplicityScore", "pricingScore", "balanceScore", "marginScore"},
			},
			"positives": stringList(""),
			"issues":    stringList(""),
			"quickWins": stringList("Exactly 5 high-impact strategic actions for the menu."),
		},
		"required": RequiredFields(),
	}
}

// RequiredFields lists the top-level fields every model response must carry.
func RequiredFields() []string {
	return []string{
		"overallScore", "oneSentenceSummary", "breakdown", "positives",
		"issues", "quickWins", "metrics", "confidenceLevel",
	}
}

// validationSchema is the strict draft-07 check applied after the repair pass.
const validationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["overallScore", "oneSentenceSummary", "breakdown", "positives", "issues", "quickWins", "metrics", "confidenceLevel"],
  "properties": {
    "overallScore": {"type": "integer", "minimum": 0, "maximum": 100},
    "oneSentenceSummary": {"type": "string"},
    "confidenceLevel": {"type": "string", "enum": ["High", "Medium", "Low"]},
    "metrics": {
      "type": "object",
      "required": ["totalItems", "sizeCategory", "complexityScore", "pricing"],
      "properties": {
        "totalItems": {"type": "integer", "minimum": 0},
        "sizeCategory": {"type": "string", "enum": ["Small", "Medium", "Large"]},
        "complexityScore": {"type": "integer", "minimum": 1, "maximum": 10},
        "pricing": {
          "type": "object",
          "required": ["minPrice", "maxPrice", "medianPrice"],
          "properties": {
            "minPrice": {"type": "number", "minimum": 0},
            "maxPrice": {"type": "number", "minimum": 0},
            "medianPrice": {"type": "number", "minimum": 0}
          }
        }
      }
    },
    "breakdown": {
      "type": "object",
      "required": ["simplicityScore", "pricingScore", "balanceScore", "marginScore"],
      "properties": {
        "simplicityScore": {"type": "integer", "minimum": 0, "maximum": 25},
        "pricingScore": {"type": "integer", "minimum": 0, "maximum": 25},
        "balanceScore": {"type": "integer", "minimum": 0, "maximum": 25},
        "marginScore": {"type": "integer", "minimum": 0, "maximum": 25}
      }
    },
    "positives": {"type": "array", "items": {"type": "string"}},
    "issues": {"type": "array", "items": {"type": "string"}},
    "quickWins": {"type": "array", "items": {"type": "string"}, "minItems": 5}
  }
}`

// ValidationSchema returns the draft-07 document decoded results are checked against.
func ValidationSchema() string {
	return validationSchema
}
