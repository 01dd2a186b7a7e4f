package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evolutia/examgen/internal/llm"
)

// Quiz is the parsed multiple-choice payload.
type Quiz struct {
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option"`
	Explanation   string            `json:"explanation"`
}

// parseDevelopment splits a development response into statement and
// solution at the solution sentinel. A response without the sentinel is
// treated as statement-only.
func parseDevelopment(text string) (content, solution string) {
	content = text
	if idx := strings.Index(text, solutionSentinel); idx >= 0 {
		content = text[:idx]
		solution = strings.TrimSpace(text[idx+len(solutionSentinel):])
	}
	content = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), exerciseSentinel))
	return content, solution
}

// parseQuiz extracts the JSON object from a quiz response and validates
// it. Unescaped LaTeX backslashes are the dominant failure mode, so a
// single doubling repair is attempted before giving up.
func parseQuiz(text string) (*Quiz, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	q, err := decodeQuiz(raw)
	if err != nil {
		q, err = decodeQuiz(repairBackslashes(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("parse quiz JSON: %w", err)
	}
	return q, nil
}

func decodeQuiz(raw string) (*Quiz, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}

	compiled, err := llm.CompiledSchema(QuizSchema())
	if err != nil {
		return nil, err
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, err
	}

	var q Quiz
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// extractJSON isolates the outermost {...} object, stripping Markdown
// code fences first.
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// repairBackslashes doubles every backslash, then undoes the damage the
// doubling did to already-escaped quotes. This recovers responses where
// the model emitted raw LaTeX (\frac) inside JSON strings.
func repairBackslashes(raw string) string {
	fixed := strings.ReplaceAll(raw, `\`, `\\`)
	fixed = strings.ReplaceAll(fixed, `\\"`, `\"`)
	return fixed
}

// formatQuiz renders a parsed quiz back into the MyST content and
// solution bodies used by accepted variations.
func formatQuiz(q *Quiz) (content, solution string) {
	var b strings.Builder
	b.WriteString(q.Question)
	b.WriteString("\n\n")
	for _, key := range []string{"A", "B", "C", "D"} {
		fmt.Fprintf(&b, "%s. %s\n", key, q.Options[key])
	}
	content = strings.TrimSpace(b.String())
	solution = strings.TrimSpace(fmt.Sprintf("Correct option: %s\n\n%s", q.CorrectOption, q.Explanation))
	return content, solution
}
