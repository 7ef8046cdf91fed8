package authoring

import "github.com/lernzeit/templatebank/internal/llm"

// TemplateSchema defines the JSON schema for LLM template authoring
// responses.
var TemplateSchema = &llm.Schema{
	Name:        "question-template",
	Description: "A reusable math question template with named parameter slots",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Question text in German with {name} placeholders for parameters",
			},
			"solution": map[string]any{
				"type":        "string",
				"description": "The solution expression; may reference placeholders",
			},
			"distractors": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Exactly 3 wrong options for multiple_choice, empty otherwise",
			},
			"items": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Values to sort for ordering, left=right pairs for matching, empty otherwise",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Child-friendly worked solution in German",
			},
			"question_type": map[string]any{
				"type": "string",
				"enum": []any{"multiple_choice", "ordering", "matching", "free_text"},
			},
			"subcategory": map[string]any{
				"type":        "string",
				"description": "Fine-grained topic within the domain, e.g. 'Einmaleins'",
			},
			"difficulty": map[string]any{
				"type": "string",
				"enum": []any{"easy", "medium", "hard"},
			},
			"parameters": map[string]any{
				"type":        "object",
				"description": "Parameter definitions keyed by placeholder name",
				"additionalProperties": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind": map[string]any{
							"type": "string",
							"enum": []any{"number", "word"},
						},
						"strategy": map[string]any{
							"type": "string",
							"enum": []any{"range", "name", "object", "pool"},
						},
						"min": map[string]any{"type": "integer"},
						"max": map[string]any{"type": "integer"},
						"pool": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required": []any{"kind", "strategy"},
				},
			},
		},
		"required": []any{"prompt", "solution", "distractors", "items", "explanation", "question_type", "subcategory", "difficulty", "parameters"},
	},
}
