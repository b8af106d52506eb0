package catalog

// catalogSchema is the JSON schema every catalog document must satisfy.
// Semantic checks (one correct alternative, unique ids) happen after
// decoding in exam.Simulado.Validate.
var catalogSchema = map[string]any{
	"$schema":  "https://json-schema.org/draft/2020-12/schema",
	"type":     "object",
	"required": []string{"version", "simulados"},
	"properties": map[string]any{
		"version": map[string]any{
			"type":    "string",
			"pattern": "^v[0-9]",
		},
		"simulados": map[string]any{
			"type":  "array",
			"items": simuladoSchema,
		},
	},
	"additionalProperties": false,
}

var simuladoSchema = map[string]any{
	"type":     "object",
	"required": []string{"id", "title", "duration_minutes", "questions"},
	"properties": map[string]any{
		"id":                map[string]any{"type": "string", "minLength": 1},
		"title":             map[string]any{"type": "string", "minLength": 1},
		"duration_minutes":  map[string]any{"type": "integer", "minimum": 1},
		"difficulty_level":  map[string]any{"enum": []string{"beginner", "intermediate", "advanced"}},
		"active":            map[string]any{"type": "boolean"},
		"passing_threshold": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    questionSchema,
		},
	},
	"additionalProperties": false,
}

var questionSchema = map[string]any{
	"type":     "object",
	"required": []string{"id", "prompt", "alternatives"},
	"properties": map[string]any{
		"id":             map[string]any{"type": "string", "minLength": 1},
		"prompt":         map[string]any{"type": "string", "minLength": 1},
		"correct_answer": map[string]any{"type": "string"},
		"explanation":    map[string]any{"type": "string"},
		"alternatives": map[string]any{
			"type":     "array",
			"minItems": 2,
			"items": map[string]any{
				"type":     "object",
				"required": []string{"id", "text"},
				"properties": map[string]any{
					"id":      map[string]any{"type": "string", "minLength": 1},
					"text":    map[string]any{"type": "string"},
					"correct": map[string]any{"type": "boolean"},
				},
				"additionalProperties": false,
			},
		},
	},
	"additionalProperties": false,
}
