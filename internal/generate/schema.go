package generate

import "github.com/evolutia/examgen/internal/llm"

// QuizSchema describes the multiple-choice JSON shape. Parsers validate
// extracted (and possibly repaired) quiz JSON against it before
// accepting a candidate.
func QuizSchema() *llm.Schema {
	return &llm.Schema{
		Name:        "quiz-question",
		Description: "A multiple-choice question with exactly four options and one correct answer",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question statement, may include LaTeX math",
				},
				"options": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"A": map[string]any{"type": "string"},
						"B": map[string]any{"type": "string"},
						"C": map[string]any{"type": "string"},
						"D": map[string]any{"type": "string"},
					},
					"required":             []any{"A", "B", "C", "D"},
					"additionalProperties": false,
				},
				"correct_option": map[string]any{
					"type": "string",
					"enum": []any{"A", "B", "C", "D"},
				},
				"explanation": map[string]any{
					"type":        "string",
					"description": "Why the correct option is correct",
				},
			},
			"required":             []any{"question", "options", "correct_option", "explanation"},
			"additionalProperties": false,
		},
	}
}
