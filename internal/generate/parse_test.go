package generate

import (
	"strings"
	"testing"
)

func TestParseDevelopment_SplitsAtSentinel(t *testing.T) {
	text := "EXERCISE:\nCalcule la integral de $f$.\nSOLUTION:\nPaso 1: integrar.\nPaso 2: evaluar."

	content, solution := parseDevelopment(text)
	if content != "Calcule la integral de $f$." {
		t.Errorf("unexpected content: %q", content)
	}
	if !strings.HasPrefix(solution, "Paso 1") {
		t.Errorf("unexpected solution: %q", solution)
	}
}

func TestParseDevelopment_NoSentinel(t *testing.T) {
	text := "Calcule el gradiente de $f(x,y)$."

	content, solution := parseDevelopment(text)
	if content != text {
		t.Errorf("expected whole response as content, got %q", content)
	}
	if solution != "" {
		t.Errorf("expected empty solution, got %q", solution)
	}
}

func TestParseDevelopment_SentinelWithoutPrefix(t *testing.T) {
	content, solution := parseDevelopment("Un ejercicio.\nSOLUTION:\nLa respuesta.")
	if content != "Un ejercicio." {
		t.Errorf("unexpected content: %q", content)
	}
	if solution != "La respuesta." {
		t.Errorf("unexpected solution: %q", solution)
	}
}

const validQuizJSON = `{
	"question": "What is the divergence of $\\vec{F}(x,y,z) = (x, y, z)$?",
	"options": {"A": "0", "B": "1", "C": "3", "D": "x+y+z"},
	"correct_option": "C",
	"explanation": "Each partial derivative contributes 1."
}`

func TestParseQuiz_Valid(t *testing.T) {
	q, err := parseQuiz(validQuizJSON)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if q.CorrectOption != "C" {
		t.Errorf("expected correct option C, got %q", q.CorrectOption)
	}
	if len(q.Options) != 4 {
		t.Errorf("expected 4 options, got %d", len(q.Options))
	}
}

func TestParseQuiz_CodeFence(t *testing.T) {
	fenced := "```json\n" + validQuizJSON + "\n```"
	q, err := parseQuiz(fenced)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if q.Question == "" {
		t.Error("expected non-empty question")
	}
}

func TestParseQuiz_RepairsRawLatexBackslashes(t *testing.T) {
	// \frac inside a JSON string is invalid JSON until backslashes are
	// doubled.
	broken := `{
		"question": "Evaluate $\frac{1}{2} + \frac{1}{3}$",
		"options": {"A": "$\frac{5}{6}$", "B": "$\frac{2}{5}$", "C": "$1$", "D": "$\frac{1}{6}$"},
		"correct_option": "A",
		"explanation": "Common denominator 6."
	}`

	q, err := parseQuiz(broken)
	if err != nil {
		t.Fatalf("expected repair to recover the payload: %v", err)
	}
	if !strings.Contains(q.Question, `\frac`) {
		t.Errorf("expected LaTeX preserved in question, got %q", q.Question)
	}
	if q.CorrectOption != "A" {
		t.Errorf("expected correct option A, got %q", q.CorrectOption)
	}
}

func TestParseQuiz_RejectsMissingOption(t *testing.T) {
	missing := `{
		"question": "q",
		"options": {"A": "1", "B": "2", "C": "3"},
		"correct_option": "A",
		"explanation": "e"
	}`
	if _, err := parseQuiz(missing); err == nil {
		t.Fatal("expected schema rejection for 3 options")
	}
}

func TestParseQuiz_RejectsInvalidCorrectOption(t *testing.T) {
	bad := `{
		"question": "q",
		"options": {"A": "1", "B": "2", "C": "3", "D": "4"},
		"correct_option": "E",
		"explanation": "e"
	}`
	if _, err := parseQuiz(bad); err == nil {
		t.Fatal("expected schema rejection for correct_option E")
	}
}

func TestParseQuiz_NoJSON(t *testing.T) {
	if _, err := parseQuiz("I cannot answer that."); err == nil {
		t.Fatal("expected error for response without JSON")
	}
}

func TestFormatQuiz(t *testing.T) {
	q := &Quiz{
		Question:      "Which matrix is singular?",
		Options:       map[string]string{"A": "I", "B": "2I", "C": "the zero matrix", "D": "a rotation"},
		CorrectOption: "C",
		Explanation:   "Its determinant is zero.",
	}

	content, solution := formatQuiz(q)
	for _, want := range []string{"Which matrix is singular?", "A. I", "D. a rotation"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
	if !strings.Contains(solution, "Correct option: C") {
		t.Errorf("solution missing correct option: %q", solution)
	}
	if !strings.Contains(solution, "determinant is zero") {
		t.Errorf("solution missing explanation: %q", solution)
	}
}
