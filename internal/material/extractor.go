package material

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Extractor reads exercises and reading material out of a course tree.
// The expected layout is one directory per topic, each containing MyST
// markdown files. Exercises are fenced directive blocks:
//
//	:::{exercise}
//	:label: ex1-05
//	...statement...
//	:::
//
// with optional matching `:::{solution} ex1-05` blocks.
type Extractor struct {
	basePath string
}

// Directories never scanned for topics.
var excludedDirs = map[string]bool{
	"_build": true, ".git": true, "images": true, "static": true,
	"storage": true, "thumbnails": true, "config": true, "examenes": true,
}

// NewExtractor creates an Extractor rooted at basePath.
func NewExtractor(basePath string) *Extractor {
	return &Extractor{basePath: basePath}
}

// Topics lists the topic directories that contain markdown files.
func (e *Extractor) Topics() ([]string, error) {
	entries, err := os.ReadDir(e.basePath)
	if err != nil {
		return nil, fmt.Errorf("read base path: %w", err)
	}
	var topics []string
	for _, ent := range entries {
		if !ent.IsDir() || excludedDirs[ent.Name()] || strings.HasPrefix(ent.Name(), ".") {
			continue
		}
		matches, _ := filepath.Glob(filepath.Join(e.basePath, ent.Name(), "*.md"))
		if len(matches) > 0 {
			topics = append(topics, ent.Name())
		}
	}
	return topics, nil
}

// ExtractTopic parses every markdown file under the named topic directory.
func (e *Extractor) ExtractTopic(topic string) ([]Exercise, []Reading, error) {
	dir := filepath.Join(e.basePath, topic)
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, nil
	}

	var exercises []Exercise
	var readings []Reading
	for _, f := range files {
		ex, rd, err := e.extractFile(f, topic)
		if err != nil {
			return nil, nil, fmt.Errorf("extract %s: %w", f, err)
		}
		exercises = append(exercises, ex...)
		readings = append(readings, rd...)
	}
	return exercises, readings, nil
}

// ExtractAll walks every topic directory.
func (e *Extractor) ExtractAll() ([]Exercise, []Reading, error) {
	topics, err := e.Topics()
	if err != nil {
		return nil, nil, err
	}
	var exercises []Exercise
	var readings []Reading
	for _, t := range topics {
		ex, rd, err := e.ExtractTopic(t)
		if err != nil {
			return nil, nil, err
		}
		exercises = append(exercises, ex...)
		readings = append(readings, rd...)
	}
	return exercises, readings, nil
}

var (
	exerciseOpenRe = regexp.MustCompile(`^:{3,}\{exercise\}\s*$`)
	solutionOpenRe = regexp.MustCompile(`^:{3,}\{solution\}\s*(\S*)\s*$`)
	blockCloseRe   = regexp.MustCompile(`^:{3,}\s*$`)
	labelRe        = regexp.MustCompile(`^:label:\s*(\S+)\s*$`)
)

func (e *Extractor) extractFile(path, topic string) ([]Exercise, []Reading, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	frontmatter, body := splitFrontmatter(string(raw))

	var exercises []Exercise
	solutions := make(map[string]string)
	var readingParts []string

	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], " \t")
		switch {
		case exerciseOpenRe.MatchString(line):
			label, content, next := parseBlock(lines, i+1)
			exercises = append(exercises, Exercise{
				Label:       label,
				Content:     content,
				SourceFile:  path,
				Topic:       topic,
				Frontmatter: frontmatter,
			})
			i = next
		case solutionOpenRe.MatchString(line):
			target := solutionOpenRe.FindStringSubmatch(line)[1]
			_, content, next := parseBlock(lines, i+1)
			if target != "" {
				solutions[target] = content
			}
			i = next
		default:
			readingParts = append(readingParts, lines[i])
			i++
		}
	}

	// Attach solutions to their exercises by label.
	for idx := range exercises {
		if exercises[idx].Label != "" {
			exercises[idx].Solution = solutions[exercises[idx].Label]
		}
	}

	var readings []Reading
	reading := strings.TrimSpace(strings.Join(readingParts, "\n"))
	if reading != "" {
		readings = append(readings, Reading{
			Content:    reading,
			SourceFile: path,
			Topic:      topic,
			Keywords:   frontmatterKeywords(frontmatter),
		})
	}

	return exercises, readings, nil
}

// parseBlock consumes a directive body starting at line index start.
// It reads an optional :label: option line, then content up to the
// closing fence. Nested math fences (:::{math}) are kept intact by
// tracking fence depth. Returns the label, the content and the index of
// the line after the closing fence.
func parseBlock(lines []string, start int) (label, content string, next int) {
	i := start
	// Option lines come first.
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if m := labelRe.FindStringSubmatch(trimmed); m != nil {
			label = m[1]
			i++
			continue
		}
		break
	}

	depth := 1
	var body []string
	for i < len(lines) {
		trimmed := strings.TrimRight(lines[i], " \t")
		if strings.HasPrefix(trimmed, ":::") && strings.Contains(trimmed, "{") {
			depth++
		} else if blockCloseRe.MatchString(trimmed) {
			depth--
			if depth == 0 {
				i++
				break
			}
		}
		body = append(body, lines[i])
		i++
	}
	return label, strings.TrimSpace(strings.Join(body, "\n")), i
}

// splitFrontmatter separates the leading YAML front matter (between ---
// fences) from the document body. A missing or malformed front matter
// yields an empty map and the whole input as body.
func splitFrontmatter(doc string) (map[string]any, string) {
	if !strings.HasPrefix(doc, "---\n") && doc != "---" {
		return map[string]any{}, doc
	}
	rest := doc[4:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return map[string]any{}, doc
	}
	fmText := rest[:end]
	body := rest[end+4:]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil || fm == nil {
		return map[string]any{}, doc
	}
	return fm, body
}

func frontmatterKeywords(fm map[string]any) []string {
	raw, ok := fm["keywords"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		var out []string
		for _, k := range v {
			if s, ok := k.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	}
	return nil
}

// Labels returns the non-empty labels of the given exercises in order.
func Labels(exercises []Exercise) []string {
	var out []string
	for _, ex := range exercises {
		if ex.Label != "" {
			out = append(out, ex.Label)
		}
	}
	return out
}
