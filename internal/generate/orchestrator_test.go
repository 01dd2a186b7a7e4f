package generate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/evolutia/examgen/internal/llm"
	"github.com/evolutia/examgen/internal/material"
	"github.com/evolutia/examgen/internal/rag"
)

func newTestOrchestrator(mock *llm.MockProvider) *Orchestrator {
	o := NewOrchestrator(
		mock,
		material.NewHeuristicAnalyzer(),
		rag.NewRetriever(nil, rag.DefaultRetrieverConfig(), nil),
		nil,
		nil,
	)
	o.seed = 1
	return o
}

func courseExercises() []material.Exercise {
	return []material.Exercise{
		{
			Label:   "ex-grad-01",
			Topic:   "vectorial",
			Content: "Calcule el gradiente de $f(x,y) = x^2 y$.",
		},
		{
			Label:   "ex-div-02",
			Topic:   "vectorial",
			Content: "Calcule la divergencia del campo $F(x,y,z)$.",
		},
		{
			Label:   "ex-rot-03",
			Topic:   "vectorial",
			Content: "Calcule el rotacional del campo $G(x,y,z)$.",
		},
	}
}

const goodVariation = "EXERCISE:\n" +
	"Calcule el gradiente y el rotacional del campo $H(x,y,z) = (xy, yz, zx)$ " +
	"y evalue la divergencia en el punto $(1,1,1)$.\n" +
	"SOLUTION:\nPaso 1: derivar cada componente.\nPaso 2: evaluar."

func TestOrchestrator_VariationRun(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(goodVariation),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Mode:          ModeVariation,
		Type:          TypeDevelopment,
		Count:         2,
		Difficulty:    "media",
		WithSolutions: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(res.Variations))
	}
	if res.Attempts > 2*attemptsPerExercise {
		t.Errorf("attempts %d exceeded the budget", res.Attempts)
	}
	for _, v := range res.Variations {
		if v.ID == "" {
			t.Error("expected a variation ID")
		}
		if v.OriginalLabel == "" {
			t.Error("expected the source label on the variation")
		}
		if v.Solution == "" {
			t.Error("expected the solution split from the response")
		}
		if v.NeedsReview {
			t.Error("development output must not be flagged for review")
		}
	}
}

// stubIndex serves canned hits so grounded runs can be driven without a
// real index.
type stubIndex struct {
	hits []rag.Hit
}

func (s *stubIndex) SimilarExercises(context.Context, string, string, int) ([]rag.Hit, error) {
	return s.hits, nil
}
func (s *stubIndex) RelatedConcepts(context.Context, []string, int) ([]rag.Hit, error) {
	return s.hits, nil
}
func (s *stubIndex) ReadingContext(context.Context, string, int) ([]rag.Hit, error) {
	return s.hits, nil
}
func (s *stubIndex) ByComplexity(context.Context, float64, float64, int) ([]rag.Hit, error) {
	return s.hits, nil
}
func (s *stubIndex) Search(context.Context, string, int) ([]rag.Hit, error) {
	return s.hits, nil
}
func (s *stubIndex) IsIndexed(context.Context) (bool, error) { return true, nil }
func (s *stubIndex) IndexMaterials(context.Context, []material.Exercise, []material.Reading, material.Analyzer, bool) error {
	return nil
}

func TestOrchestrator_GroundedRunAttachesProvenance(t *testing.T) {
	idx := &stubIndex{hits: []rag.Hit{{
		Content:    "El gradiente, la divergencia y el rotacional de un campo vectorial.",
		Similarity: 0.9,
		Metadata:   map[string]string{"label": "ex-ref-01", "source": "vectorial/campos.md"},
	}}}
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(goodVariation),
	}).Repeat()

	o := NewOrchestrator(
		mock,
		material.NewHeuristicAnalyzer(),
		rag.NewRetriever(idx, rag.DefaultRetrieverConfig(), nil),
		nil,
		nil,
	)
	o.seed = 1

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Mode:          ModeVariation,
		Type:          TypeDevelopment,
		Count:         1,
		Difficulty:    "alta",
		WithSolutions: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 1 {
		t.Fatalf("expected 1 variation, got %d", len(res.Variations))
	}
	v := res.Variations[0]
	if v.RAGContext == nil {
		t.Fatal("expected retrieval counts on the accepted variation")
	}
	if v.RAGContext.SimilarExercises == 0 || v.RAGContext.ReadingContext == 0 {
		t.Errorf("unexpected channel counts: %+v", *v.RAGContext)
	}
	if len(v.RAGReferences) == 0 {
		t.Error("expected reference labels from the retrieved hits")
	}
}

func TestOrchestrator_RejectionsExhaustBudget(t *testing.T) {
	// A trivial response can never beat the originals on complexity, so
	// the validator rejects every attempt.
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage("EXERCISE:\nSume $1+1$."),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Mode:       ModeVariation,
		Type:       TypeDevelopment,
		Count:      2,
		Difficulty: "alta",
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if res.Attempts != 2*attemptsPerExercise {
		t.Errorf("expected the full budget spent, got %d attempts", res.Attempts)
	}
	if len(res.Variations) != 0 {
		t.Errorf("expected no accepted variations, got %d", len(res.Variations))
	}
}

func TestOrchestrator_ProviderErrorsCostOneAttemptEach(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Err: &llm.ErrProviderUnavailable{},
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Count:      1,
		Type:       TypeDevelopment,
		Difficulty: "media",
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if res.Attempts != attemptsPerExercise {
		t.Errorf("expected %d attempts, got %d", attemptsPerExercise, res.Attempts)
	}
}

func TestOrchestrator_NoCandidates(t *testing.T) {
	o := newTestOrchestrator(llm.NewMockProvider())

	_, err := o.Run(t.Context(), courseExercises(), Options{
		Count:      1,
		Type:       TypeDevelopment,
		Difficulty: "media",
		Topics:     []string{"no-such-topic"},
	})
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestOrchestrator_LabelRun(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage("EXERCISE:\nUna variante simple."),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Type:       TypeDevelopment,
		Count:      3,
		Difficulty: "alta",
		Labels:     []string{"ex-grad-01", "no-such-label", "ex-rot-03"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(res.Variations))
	}
	// Label runs honor the request order and skip validation.
	if res.Variations[0].OriginalLabel != "ex-grad-01" || res.Variations[1].OriginalLabel != "ex-rot-03" {
		t.Errorf("unexpected source labels: %q, %q",
			res.Variations[0].OriginalLabel, res.Variations[1].OriginalLabel)
	}
	if len(res.MissingLabels) != 1 || res.MissingLabels[0] != "no-such-label" {
		t.Errorf("expected the missing label reported, got %v", res.MissingLabels)
	}
}

func TestOrchestrator_CreationRoundRobinsTopics(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage("EXERCISE:\nEnuncie y resuelva un problema de la serie de Fourier de $f$."),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), nil, Options{
		Mode:       ModeCreation,
		Type:       TypeDevelopment,
		Count:      2,
		Difficulty: "alta",
		Topics:     []string{"fourier", "laplace"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(res.Variations))
	}
	if got := res.Variations[0].OriginalFrontmatter["topic"]; got != "fourier" {
		t.Errorf("first variation topic = %v, want fourier", got)
	}
	if got := res.Variations[1].OriginalFrontmatter["topic"]; got != "laplace" {
		t.Errorf("second variation topic = %v, want laplace", got)
	}
	for _, v := range res.Variations {
		if v.OriginalLabel != "" {
			t.Error("creation output must not carry a source label")
		}
	}
}

func TestOrchestrator_CreationRetriesFailedSlotTopic(t *testing.T) {
	// The first attempt fails; its slot keeps the first topic instead of
	// shifting the rotation.
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
		llm.MockResponse{Content: json.RawMessage("EXERCISE:\nEnuncie y resuelva un problema.")},
	).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), nil, Options{
		Mode:       ModeCreation,
		Type:       TypeDevelopment,
		Count:      2,
		Difficulty: "alta",
		Topics:     []string{"fourier", "laplace"},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 2 {
		t.Fatalf("expected 2 variations, got %d", len(res.Variations))
	}
	if got := res.Variations[0].OriginalFrontmatter["topic"]; got != "fourier" {
		t.Errorf("first variation topic = %v, want fourier", got)
	}
	if got := res.Variations[1].OriginalFrontmatter["topic"]; got != "laplace" {
		t.Errorf("second variation topic = %v, want laplace", got)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestOrchestrator_CreationRequiresTopics(t *testing.T) {
	o := newTestOrchestrator(llm.NewMockProvider())
	if _, err := o.Run(t.Context(), nil, Options{Mode: ModeCreation, Count: 1}); err == nil {
		t.Fatal("expected an error without topics")
	}
}

func TestOrchestrator_TrivialQuizRejected(t *testing.T) {
	// A parseable but trivial question never beats the originals on
	// complexity, so multiple-choice runs reject it like development ones.
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"question":"Sume.","options":{"A":"1","B":"2","C":"3","D":"4"},"correct_option":"A","explanation":"Trivial."}`),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Type:       TypeMultipleChoice,
		Count:      1,
		Difficulty: "alta",
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if res.Attempts != attemptsPerExercise {
		t.Errorf("expected the full budget spent, got %d attempts", res.Attempts)
	}
	if len(res.Variations) != 0 {
		t.Errorf("expected no accepted variations, got %d", len(res.Variations))
	}
}

func TestOrchestrator_QuizValidatedAndAccepted(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{` +
			`"question":"Calcule el gradiente, la divergencia y el rotacional del campo $H(x,y,z) = (xy, yz, zx)$.",` +
			`"options":{"A":"Solo el gradiente es nulo.","B":"Ninguno es nulo.","C":"La divergencia es nula.","D":"El rotacional es nulo."},` +
			`"correct_option":"B",` +
			`"explanation":"Las tres derivadas son distintas de cero."}`),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Type:       TypeMultipleChoice,
		Count:      1,
		Difficulty: "alta",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 1 {
		t.Fatalf("expected 1 variation, got %d", len(res.Variations))
	}
	if res.Variations[0].NeedsReview {
		t.Error("a parsed quiz must not be flagged for review")
	}
	// The request asks the backend for native structured output.
	if len(mock.Calls) == 0 || mock.Calls[0].Schema == nil {
		t.Fatal("expected the quiz schema on the request")
	}
	if mock.Calls[0].Schema.Name != "quiz-question" {
		t.Errorf("unexpected schema name %q", mock.Calls[0].Schema.Name)
	}
}

func TestOrchestrator_QuizParseFailureKeptForReview(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage("Here is a question about gradients, but not as JSON."),
	}).Repeat()
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Type:       TypeMultipleChoice,
		Count:      1,
		Difficulty: "media",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(res.Variations) != 1 {
		t.Fatalf("expected 1 variation, got %d", len(res.Variations))
	}
	v := res.Variations[0]
	if !v.NeedsReview {
		t.Error("expected the unparsed quiz flagged for review")
	}
	if v.Content == "" {
		t.Error("expected the raw response kept as content")
	}
}

func TestOrchestrator_SecondPassSolution(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(
			"EXERCISE:\nCalcule el gradiente, la divergencia y el rotacional del campo $g(x,y,z) = (xyz, x, z)$.")},
		llm.MockResponse{Content: json.RawMessage(
			"Paso 1: derivar respecto a cada variable.")},
	)
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Type:          TypeDevelopment,
		Count:         1,
		Difficulty:    "media",
		WithSolutions: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if mock.CallCount() != 2 {
		t.Fatalf("expected 2 LLM calls (statement + solution), got %d", mock.CallCount())
	}
	if res.Variations[0].Solution != "Paso 1: derivar respecto a cada variable." {
		t.Errorf("unexpected solution: %q", res.Variations[0].Solution)
	}
}

func TestOrchestrator_SolutionFailureKeepsVariation(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(
			"EXERCISE:\nCalcule el gradiente, la divergencia y el rotacional del campo $g(x,y,z) = (xyz, x, z)$.")},
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
	)
	o := newTestOrchestrator(mock)

	res, err := o.Run(t.Context(), courseExercises(), Options{
		Type:          TypeDevelopment,
		Count:         1,
		Difficulty:    "media",
		WithSolutions: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(res.Variations) != 1 {
		t.Fatalf("expected the variation kept, got %d", len(res.Variations))
	}
	if res.Variations[0].Solution != "" {
		t.Errorf("expected empty solution, got %q", res.Variations[0].Solution)
	}
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newTestOrchestrator(llm.NewMockProvider())
	_, err := o.Run(ctx, courseExercises(), Options{
		Count:      1,
		Type:       TypeDevelopment,
		Difficulty: "media",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
