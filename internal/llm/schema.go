package llm

// BuildRecordJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// persisted sub-category payload. Merged records are validated against it
// before storage; the taxonomy itself is not enforced here, only the shape.
func BuildRecordJSONSchema() map[string]any {
	actionPoint := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"action_name":            map[string]any{"type": "string", "minLength": 1},
			"current_status":         map[string]any{"type": []string{"string", "null"}},
			"achievement_percentage": map[string]any{"type": []string{"number", "null"}},
			"data_source":            map[string]any{"type": []string{"string", "null"}},
			"remarks":                map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"action_name"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"action_points": map[string]any{
				"type":  "array",
				"items": actionPoint,
			},
			"additional_details": map[string]any{"type": "object"},
		},
		"required": []string{"action_points", "additional_details"},
	}
}
