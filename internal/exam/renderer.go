// Package exam renders accepted variations into numbered exam files.
package exam

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evolutia/examgen/internal/generate"
)

// Metadata is the YAML front matter written at the top of each exam.
type Metadata struct {
	Subject    string   `yaml:"subject,omitempty"`
	Date       string   `yaml:"date"`
	Provider   string   `yaml:"provider"`
	Model      string   `yaml:"model"`
	Mode       string   `yaml:"mode"`
	Difficulty string   `yaml:"difficulty,omitempty"`
	Count      int      `yaml:"count"`
	Keywords   []string `yaml:"keywords,omitempty"`
	Sources    []string `yaml:"sources,omitempty"`
	References []string `yaml:"rag_references,omitempty"`
}

// Renderer writes exam and solution files under a directory, numbering
// them after the highest existing exam.
type Renderer struct {
	Dir string
}

var examFileRe = regexp.MustCompile(`^examen(\d+)\.md$`)

// NextNumber scans the output directory for existing exams and returns
// the next free number, starting at 1.
func (r *Renderer) NextNumber() (int, error) {
	entries, err := os.ReadDir(r.Dir)
	if os.IsNotExist(err) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan output dir: %w", err)
	}

	max := 0
	for _, e := range entries {
		m := examFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, _ := strconv.Atoi(m[1]); n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Render writes examen{N}.md and examen{N}_soluciones.md and returns
// their paths. num forces the exam number when positive; otherwise the
// next free number is used. Solutions are only written when at least
// one variation carries one.
func (r *Renderer) Render(variations []generate.Variation, meta Metadata, num int) (examPath, solutionsPath string, err error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	n := num
	if n <= 0 {
		n, err = r.NextNumber()
		if err != nil {
			return "", "", err
		}
	}

	if meta.Date == "" {
		meta.Date = time.Now().Format("2006-01-02")
	}
	meta.Count = len(variations)
	meta.Sources = sourceLabels(variations)
	meta.References = mergeReferences(variations)

	examPath = filepath.Join(r.Dir, fmt.Sprintf("examen%d.md", n))
	if err := os.WriteFile(examPath, []byte(renderExam(variations, meta, n)), 0o644); err != nil {
		return "", "", fmt.Errorf("write exam: %w", err)
	}

	if hasSolutions(variations) {
		solutionsPath = filepath.Join(r.Dir, fmt.Sprintf("examen%d_soluciones.md", n))
		if err := os.WriteFile(solutionsPath, []byte(renderSolutions(variations, n)), 0o644); err != nil {
			return examPath, "", fmt.Errorf("write solutions: %w", err)
		}
	}

	return examPath, solutionsPath, nil
}

func renderExam(variations []generate.Variation, meta Metadata, n int) string {
	var b strings.Builder

	b.WriteString("---\n")
	if enc, err := yaml.Marshal(meta); err == nil {
		b.Write(enc)
	}
	b.WriteString("---\n\n")

	if meta.Subject != "" {
		fmt.Fprintf(&b, "# Examen %d: %s\n\n", n, meta.Subject)
	} else {
		fmt.Fprintf(&b, "# Examen %d\n\n", n)
	}
	for i, v := range variations {
		fmt.Fprintf(&b, "## Ejercicio %d\n\n", i+1)
		if v.NeedsReview {
			b.WriteString("> REVIEW: this item could not be parsed automatically.\n\n")
		}
		b.WriteString(strings.TrimSpace(v.Content))
		b.WriteString("\n\n")
	}
	return b.String()
}

func renderSolutions(variations []generate.Variation, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Examen %d: soluciones\n\n", n)
	for i, v := range variations {
		if v.Solution == "" {
			continue
		}
		fmt.Fprintf(&b, "## Ejercicio %d\n\n", i+1)
		b.WriteString(strings.TrimSpace(v.Solution))
		b.WriteString("\n\n")
	}
	return b.String()
}

func hasSolutions(variations []generate.Variation) bool {
	for _, v := range variations {
		if v.Solution != "" {
			return true
		}
	}
	return false
}

func sourceLabels(variations []generate.Variation) []string {
	var labels []string
	for _, v := range variations {
		if v.OriginalLabel != "" {
			labels = append(labels, v.OriginalLabel)
		}
	}
	return labels
}

func mergeReferences(variations []generate.Variation) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, v := range variations {
		for _, ref := range v.RAGReferences {
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}
