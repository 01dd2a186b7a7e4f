package material

// Exercise is a single exercise extracted from the course materials.
// Instances are read-only once extracted.
type Exercise struct {
	// Label is the unique exercise identifier (e.g. "ex1-05").
	// Empty when the source block carried no label.
	Label string

	// Content is the exercise statement, markdown with LaTeX math.
	Content string

	// Solution is the worked solution when the source provides one.
	Solution string

	// SourceFile is the path of the file the exercise came from.
	SourceFile string

	// Topic is the name of the topic directory the file lives in.
	Topic string

	// Frontmatter holds the YAML front matter of the source file.
	Frontmatter map[string]any
}

// Reading is a block of non-exercise reading material, used only for
// retrieval indexing.
type Reading struct {
	Content    string
	SourceFile string
	Topic      string
	Keywords   []string
}

// Analysis is the structural complexity breakdown of one exercise.
// Recomputed on demand; never mutated after creation.
type Analysis struct {
	// Type classifies the exercise: "proof", "computation" or "application".
	Type string

	// SolutionSteps counts the resolution steps detected in the solution.
	SolutionSteps int

	// Variables lists the mathematical symbols appearing in the statement,
	// in order of first appearance.
	Variables []string

	// Concepts lists the mathematical concepts detected in the statement.
	Concepts []string

	// MathComplexity is the scalar complexity score, >= 0.
	MathComplexity float64
}

// Analyzer produces an Analysis for an exercise. Implementations must be
// pure: same exercise in, same analysis out, no side effects.
type Analyzer interface {
	Analyze(ex Exercise) Analysis
}
