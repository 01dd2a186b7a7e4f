package generate

import (
	"fmt"

	"github.com/evolutia/examgen/internal/material"
	"github.com/evolutia/examgen/internal/rag"
)

// Validator judges a generated variation against its original. A reject
// costs one attempt from the run budget and triggers a fresh attempt.
type Validator interface {
	// Validate returns ok=false with a human-readable reason when the
	// variation must be rejected. refs holds the retrieved context of
	// the attempt; it is empty on ungrounded runs.
	Validate(original Candidate, generated material.Analysis, refs rag.Context) (ok bool, reason string)

	// Name identifies the strategy in logs.
	Name() string
}

// ValidatorFor picks the acceptance strategy for a run. Grounded runs
// additionally check the variation for consistency with the retrieved
// reference material; ungrounded runs compare complexity scores only.
// The choice is made once per run, never per attempt.
func ValidatorFor(ragEnabled bool, analyzer material.Analyzer) Validator {
	if ragEnabled {
		return &ConsistencyValidator{analyzer: analyzer}
	}
	return &ComplexityValidator{}
}

// ComplexityValidator accepts only variations whose complexity score is
// strictly greater than the original's.
type ComplexityValidator struct{}

func (v *ComplexityValidator) Name() string { return "complexity" }

func (v *ComplexityValidator) Validate(original Candidate, generated material.Analysis, _ rag.Context) (bool, string) {
	if generated.MathComplexity > original.Analysis.MathComplexity {
		return true, ""
	}
	return false, fmt.Sprintf("complexity %.2f did not exceed original %.2f",
		generated.MathComplexity, original.Analysis.MathComplexity)
}

// ConsistencyValidator accepts variations that beat the original's
// complexity and whose concepts stay grounded in the original or in the
// retrieved reference material.
type ConsistencyValidator struct {
	analyzer material.Analyzer
}

func (v *ConsistencyValidator) Name() string { return "consistency" }

// At least half of the variation's concepts must be grounded.
const consistencyFloor = 0.5

func (v *ConsistencyValidator) Validate(original Candidate, generated material.Analysis, refs rag.Context) (bool, string) {
	if generated.MathComplexity <= original.Analysis.MathComplexity {
		return false, fmt.Sprintf("complexity %.2f did not exceed original %.2f",
			generated.MathComplexity, original.Analysis.MathComplexity)
	}
	if score := v.consistency(original, generated, refs); score < consistencyFloor {
		return false, fmt.Sprintf("consistency %.2f fell below %.2f", score, consistencyFloor)
	}
	return true, ""
}

// consistency is the share of the variation's concepts that also appear
// in the original exercise or in the retrieved reference material.
func (v *ConsistencyValidator) consistency(original Candidate, generated material.Analysis, refs rag.Context) float64 {
	if len(generated.Concepts) == 0 {
		// Nothing detectable to be inconsistent about.
		return 1
	}

	known := make(map[string]bool, len(original.Analysis.Concepts))
	for _, c := range original.Analysis.Concepts {
		known[c] = true
	}
	for _, channel := range []string{rag.ChannelSimilar, rag.ChannelConcepts, rag.ChannelReading} {
		for _, hit := range refs[channel] {
			for _, c := range v.analyzer.Analyze(material.Exercise{Content: hit.Content}).Concepts {
				known[c] = true
			}
		}
	}

	n := 0
	for _, c := range generated.Concepts {
		if known[c] {
			n++
		}
	}
	return float64(n) / float64(len(generated.Concepts))
}
