package material

import (
	"regexp"
	"sort"
	"strings"
)

// HeuristicAnalyzer derives an Analysis from the exercise text alone.
// It is deliberately cheap: no LLM calls, no I/O.
type HeuristicAnalyzer struct{}

// NewHeuristicAnalyzer returns the standard analyzer.
func NewHeuristicAnalyzer() *HeuristicAnalyzer {
	return &HeuristicAnalyzer{}
}

// conceptKeywords maps a concept tag to the substrings that signal it.
// Matching is case-insensitive and accent-tolerant for the common Spanish
// spellings found in the course materials.
var conceptKeywords = map[string][]string{
	"gradient":        {"gradient", "gradiente", "\\nabla"},
	"divergence":      {"divergence", "divergencia"},
	"curl":            {"curl", "rotacional", "rotor"},
	"line-integral":   {"line integral", "integral de linea", "integral de línea", "\\oint"},
	"stokes":          {"stokes"},
	"green":           {"green"},
	"gauss":           {"gauss", "flujo", "flux"},
	"fourier":         {"fourier"},
	"laplace":         {"laplace", "laplaciano", "laplacian"},
	"matrix":          {"matriz", "matrix", "matrices", "determinante", "determinant"},
	"eigenvalue":      {"eigen", "autovalor", "valor propio"},
	"pde":             {"ecuacion diferencial parcial", "ecuación diferencial parcial", "edp", "partial differential"},
	"ode":             {"ecuacion diferencial ordinaria", "ecuación diferencial ordinaria", "edo"},
	"series":          {"serie", "series", "\\sum"},
	"complex":         {"complejo", "complex", "residuo", "residue", "cauchy"},
	"coordinates":     {"cilindric", "esferic", "spherical", "cylindrical", "polares", "polar"},
	"vector-field":    {"campo vectorial", "vector field"},
	"surface":         {"superficie", "surface", "\\iint"},
	"transform":       {"transformada", "transform"},
	"boundary-values": {"condiciones de frontera", "boundary condition", "contorno"},
}

var (
	displayMathRe = regexp.MustCompile(`(?s):::\{math\}.*?:::|\$\$.*?\$\$`)
	inlineMathRe  = regexp.MustCompile(`\$[^$]+\$`)
	variableRe    = regexp.MustCompile(`[a-zA-Z](?:_\{?[a-zA-Z0-9]+\}?)?`)
	stepMarkerRe  = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|Paso \d+|Step \d+)`)
)

// latexCommands that must not be mistaken for variables.
var latexCommands = map[string]bool{
	"frac": true, "sqrt": true, "int": true, "oint": true, "iint": true,
	"sum": true, "lim": true, "sin": true, "cos": true, "tan": true,
	"ln": true, "log": true, "exp": true, "nabla": true, "partial": true,
	"cdot": true, "times": true, "vec": true, "hat": true, "mathbf": true,
	"left": true, "right": true, "text": true, "quad": true, "infty": true,
	"pi": true, "theta": true, "phi": true, "rho": true, "alpha": true,
	"beta": true, "lambda": true, "mu": true, "omega": true, "begin": true,
	"end": true, "dd": true, "dv": true,
}

func (a *HeuristicAnalyzer) Analyze(ex Exercise) Analysis {
	lower := strings.ToLower(ex.Content)

	an := Analysis{
		Type:          classify(lower),
		SolutionSteps: countSteps(ex.Solution),
		Variables:     extractVariables(ex.Content),
		Concepts:      detectConcepts(lower),
	}
	an.MathComplexity = score(ex, an)
	return an
}

func classify(lower string) string {
	switch {
	case strings.Contains(lower, "demuestre") || strings.Contains(lower, "demostrar") ||
		strings.Contains(lower, "pruebe") || strings.Contains(lower, "prove") ||
		strings.Contains(lower, "verifique la identidad"):
		return "proof"
	case strings.Contains(lower, "calcule") || strings.Contains(lower, "calcular") ||
		strings.Contains(lower, "evalue") || strings.Contains(lower, "evalúe") ||
		strings.Contains(lower, "determine") || strings.Contains(lower, "compute") ||
		strings.Contains(lower, "resuelva"):
		return "computation"
	default:
		return "application"
	}
}

// countSteps estimates the number of resolution steps: explicit step
// markers plus display math blocks in the solution.
func countSteps(solution string) int {
	if solution == "" {
		return 0
	}
	steps := len(stepMarkerRe.FindAllString(solution, -1))
	steps += len(displayMathRe.FindAllString(solution, -1))
	if steps == 0 {
		// A prose-only solution still counts as one step.
		steps = 1
	}
	return steps
}

// extractVariables pulls single-symbol identifiers (with optional
// subscripts) out of the math segments, preserving first-appearance order.
func extractVariables(content string) []string {
	var mathParts []string
	mathParts = append(mathParts, displayMathRe.FindAllString(content, -1)...)
	mathParts = append(mathParts, inlineMathRe.FindAllString(content, -1)...)

	seen := make(map[string]bool)
	var vars []string
	for _, part := range mathParts {
		// Strip LaTeX commands so \frac etc. don't contribute letters.
		cleaned := stripCommands(part)
		for _, m := range variableRe.FindAllString(cleaned, -1) {
			if len(m) == 1 && !seen[m] {
				seen[m] = true
				vars = append(vars, m)
			} else if len(m) > 1 && strings.Contains(m, "_") && !seen[m] {
				seen[m] = true
				vars = append(vars, m)
			}
		}
	}
	return vars
}

var commandRe = regexp.MustCompile(`\\[a-zA-Z]+`)

func stripCommands(s string) string {
	return commandRe.ReplaceAllStringFunc(s, func(cmd string) string {
		name := strings.TrimPrefix(cmd, "\\")
		if latexCommands[strings.ToLower(name)] {
			return " "
		}
		// Unknown commands (greek letters etc.) count as one symbol.
		return " " + name + " "
	})
}

func detectConcepts(lower string) []string {
	var concepts []string
	for concept, keys := range conceptKeywords {
		for _, k := range keys {
			if strings.Contains(lower, k) {
				concepts = append(concepts, concept)
				break
			}
		}
	}
	sort.Strings(concepts)
	return concepts
}

// score combines the structural signals into the scalar complexity value.
// Weights are tuned so typical course exercises land in the 1-15 range.
func score(ex Exercise, an Analysis) float64 {
	s := 0.5*float64(an.SolutionSteps) +
		0.3*float64(len(an.Variables)) +
		0.8*float64(len(an.Concepts))

	// Longer statements and more display math both push complexity up.
	s += float64(len(displayMathRe.FindAllString(ex.Content, -1))) * 0.4
	s += float64(len(ex.Content)) / 1000.0

	if an.Type == "proof" {
		s += 1.0
	}
	return s
}
