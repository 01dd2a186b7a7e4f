package generate

import (
	"fmt"
	"strings"

	"github.com/evolutia/examgen/internal/material"
	"github.com/evolutia/examgen/internal/rag"
)

// Sentinels the model is instructed to emit so development responses can
// be split into statement and solution.
const (
	exerciseSentinel = "EXERCISE:"
	solutionSentinel = "SOLUTION:"
)

const systemPrompt = `You are an expert university mathematics instructor who writes ` +
	`exam exercises. You write precise, self-contained exercise statements in the ` +
	`same language as the source material, using MyST Markdown with LaTeX math ` +
	`(inline $...$ and display :::{math} blocks). You never invent notation that ` +
	`differs from the course material you are shown.`

// difficultyInstruction maps the difficulty tiers to prompt guidance.
// Unknown tiers fall back to "alta".
func difficultyInstruction(tier string) string {
	switch tier {
	case "media":
		return "The new exercise must be of comparable difficulty to the original, testing the same concepts with different values and setting."
	case "muy_alta":
		return "The new exercise must be substantially harder than the original: combine additional concepts, add steps, or generalize the setting."
	default: // alta
		return "The new exercise must be strictly harder than the original: more solution steps, more variables, or a deeper use of the same concepts."
	}
}

// VariationPrompt builds the user prompt that asks for a harder variant
// of an existing exercise. ragBlock may be empty.
func VariationPrompt(ex material.Exercise, an material.Analysis, difficulty string, withSolution bool, ragBlock string) string {
	var b strings.Builder

	b.WriteString("Create a variation of the following exam exercise.\n\n")
	b.WriteString("ORIGINAL EXERCISE")
	if ex.Label != "" {
		fmt.Fprintf(&b, " (%s)", ex.Label)
	}
	b.WriteString(":\n")
	b.WriteString(ex.Content)
	b.WriteString("\n\n")

	if len(an.Concepts) > 0 {
		fmt.Fprintf(&b, "Concepts exercised: %s.\n", strings.Join(an.Concepts, ", "))
	}
	fmt.Fprintf(&b, "Exercise type: %s.\n\n", an.Type)

	b.WriteString(difficultyInstruction(difficulty))
	b.WriteString("\n")
	b.WriteString("Keep the notation and language of the original. Do not reuse its exact numbers or functions.\n")

	if ragBlock != "" {
		b.WriteString("\n")
		b.WriteString(ragBlock)
		b.WriteString("\n")
	}

	b.WriteString("\nFormat your answer exactly as:\n")
	b.WriteString(exerciseSentinel + "\n<the new exercise statement>\n")
	if withSolution {
		b.WriteString(solutionSentinel + "\n<a complete worked solution>\n")
	} else {
		b.WriteString("\nDo not include a solution.\n")
	}
	return b.String()
}

// SolutionPrompt asks for a worked solution to an already-generated
// exercise. Used as a second pass when the first response lacked one.
func SolutionPrompt(content string) string {
	var b strings.Builder
	b.WriteString("Write a complete, step-by-step worked solution for the following exercise. ")
	b.WriteString("Use the same notation and language as the statement.\n\n")
	b.WriteString("EXERCISE:\n")
	b.WriteString(content)
	b.WriteString("\n\nRespond with the solution only.")
	return b.String()
}

// QuizPrompt asks for a multiple-choice question derived from an
// existing exercise, as a single JSON object.
func QuizPrompt(ex material.Exercise, difficulty string, ragBlock string) string {
	var b strings.Builder

	b.WriteString("Create a multiple-choice question based on the following exercise.\n\n")
	b.WriteString("ORIGINAL EXERCISE")
	if ex.Label != "" {
		fmt.Fprintf(&b, " (%s)", ex.Label)
	}
	b.WriteString(":\n")
	b.WriteString(ex.Content)
	b.WriteString("\n\n")

	b.WriteString(difficultyInstruction(difficulty))
	b.WriteString("\n")

	if ragBlock != "" {
		b.WriteString("\n")
		b.WriteString(ragBlock)
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with a single JSON object and nothing else:\n")
	b.WriteString(`{
  "question": "the question statement",
  "options": {"A": "...", "B": "...", "C": "...", "D": "..."},
  "correct_option": "A",
  "explanation": "why the correct option is correct"
}
`)
	b.WriteString("Exactly one option must be correct. The three distractors must be plausible ")
	b.WriteString("results of common mistakes. Escape backslashes in LaTeX (\\\\frac, not \\frac).")
	return b.String()
}

// CreationPrompt asks for a brand new exercise on a topic, with no
// original to vary. topicHits comes from topic-level retrieval and may
// be empty.
func CreationPrompt(topic string, tags []string, exType ExerciseType, difficulty string, withSolution bool, topicBlock string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a new exam exercise on the topic %q.\n", topic)
	if len(tags) > 0 {
		fmt.Fprintf(&b, "It must exercise: %s.\n", strings.Join(tags, ", "))
	}
	b.WriteString("\n")

	switch difficulty {
	case "media":
		b.WriteString("Target a mid-course difficulty.\n")
	case "muy_alta":
		b.WriteString("Target the hardest tier of a final exam.\n")
	default:
		b.WriteString("Target a demanding final-exam difficulty.\n")
	}

	if topicBlock != "" {
		b.WriteString("\n")
		b.WriteString(topicBlock)
		b.WriteString("\n")
	}

	if exType == TypeMultipleChoice {
		b.WriteString("\nRespond with a single JSON object and nothing else:\n")
		b.WriteString(`{
  "question": "the question statement",
  "options": {"A": "...", "B": "...", "C": "...", "D": "..."},
  "correct_option": "A",
  "explanation": "why the correct option is correct"
}
`)
		b.WriteString("Escape backslashes in LaTeX (\\\\frac, not \\frac).")
		return b.String()
	}

	b.WriteString("\nFormat your answer exactly as:\n")
	b.WriteString(exerciseSentinel + "\n<the exercise statement>\n")
	if withSolution {
		b.WriteString(solutionSentinel + "\n<a complete worked solution>\n")
	} else {
		b.WriteString("\nDo not include a solution.\n")
	}
	return b.String()
}

// contextBlock renders retrieval results for prompt inclusion, or ""
// when retrieval produced nothing.
func contextBlock(enricher *rag.Enricher, rc rag.Context) string {
	if rc.Empty() {
		return ""
	}
	return enricher.Flatten(rc)
}
