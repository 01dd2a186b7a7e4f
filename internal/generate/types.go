package generate

import "github.com/evolutia/examgen/internal/material"

// Mode selects how candidates are produced.
type Mode string

const (
	// ModeVariation derives harder variants from existing exercises.
	ModeVariation Mode = "variation"

	// ModeCreation writes new exercises from a topic, without an original.
	ModeCreation Mode = "creation"
)

// ExerciseType selects the output shape.
type ExerciseType string

const (
	// TypeDevelopment is a free-form exercise statement with a worked solution.
	TypeDevelopment ExerciseType = "development"

	// TypeMultipleChoice is a single-best-answer quiz with exactly 4 options.
	TypeMultipleChoice ExerciseType = "multiple_choice"
)

// Variation is one accepted output of the acceptance loop. Immutable
// once accepted.
type Variation struct {
	// ID is a unique identifier assigned at acceptance.
	ID string

	// Content is the generated exercise statement.
	Content string

	// Solution is the generated worked solution; may be empty when
	// solution generation was disabled or failed.
	Solution string

	// Type is the exercise type this variation was generated as.
	Type ExerciseType

	// OriginalLabel is the source exercise's label in variation mode,
	// empty in creation mode.
	OriginalLabel string

	// OriginalFrontmatter carries the source file's front matter in
	// variation mode. In creation mode it holds the synthesized topic,
	// tags and difficulty instead.
	OriginalFrontmatter map[string]any

	// NeedsReview flags items whose structured output could not be
	// parsed; the raw response is kept for manual review.
	NeedsReview bool

	// RAGContext counts the retrieval hits that informed the prompt,
	// nil when retrieval was disabled or produced nothing.
	RAGContext *RAGCounts

	// RAGReferences lists labels/sources of the retrieved material.
	RAGReferences []string
}

// RAGCounts summarizes per-channel retrieval volume on an accepted
// variation.
type RAGCounts struct {
	SimilarExercises int
	RelatedConcepts  int
	ReadingContext   int
}

// Options configures one generation run.
type Options struct {
	Mode       Mode
	Type       ExerciseType
	Count      int
	Topics     []string
	Tags       []string
	Labels     []string
	Difficulty string

	// WithSolutions enables the second generation pass that produces a
	// worked solution for development variations.
	WithSolutions bool

	// MaxTokens and Temperature are passed to every backend request.
	MaxTokens   int
	Temperature float64
}

// Candidate pairs an exercise with its analysis, computed once per run.
type Candidate struct {
	Exercise material.Exercise
	Analysis material.Analysis
}

// Per-label retry budget and the multiplier for the global attempt
// budget (attempts <= Count * attemptsPerExercise).
const (
	labelAttempts       = 3
	attemptsPerExercise = 3
)

// defaults applied by the orchestrator when Options leave them zero.
const (
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
)
