package material

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDoc = `---
title: Campos vectoriales
keywords:
  - gradiente
  - divergencia
---

# Campos vectoriales

El gradiente de un campo escalar apunta en la direccion de maximo crecimiento.

:::{exercise}
:label: ex-campos-01
Calcule el gradiente de

:::{math}
f(x,y) = x^2 y
:::

en el punto $(1,2)$.
:::

:::{solution} ex-campos-01
Paso 1: derivar parcialmente.

:::{math}
\nabla f = (2xy, x^2)
:::
:::

:::{exercise}
Un ejercicio sin etiqueta.
:::
`

func writeTopic(t *testing.T, base, topic, name, content string) {
	t.Helper()
	dir := filepath.Join(base, topic)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExtractor_ExtractTopic(t *testing.T) {
	base := t.TempDir()
	writeTopic(t, base, "vectorial", "campos.md", sampleDoc)

	exercises, readings, err := NewExtractor(base).ExtractTopic("vectorial")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if len(exercises) != 2 {
		t.Fatalf("expected 2 exercises, got %d", len(exercises))
	}

	ex := exercises[0]
	if ex.Label != "ex-campos-01" {
		t.Errorf("unexpected label %q", ex.Label)
	}
	if ex.Topic != "vectorial" {
		t.Errorf("unexpected topic %q", ex.Topic)
	}
	if !contains(ex.Content, ":::{math}") {
		t.Error("nested math block must survive extraction")
	}
	if !contains(ex.Solution, "derivar parcialmente") {
		t.Errorf("solution not attached: %q", ex.Solution)
	}
	if ex.Frontmatter["title"] != "Campos vectoriales" {
		t.Errorf("front matter not parsed: %v", ex.Frontmatter)
	}

	if exercises[1].Label != "" {
		t.Errorf("expected unlabeled second exercise, got %q", exercises[1].Label)
	}

	if len(readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(readings))
	}
	rd := readings[0]
	if contains(rd.Content, "Calcule el gradiente") {
		t.Error("exercise text leaked into the reading")
	}
	if !contains(rd.Content, "maximo crecimiento") {
		t.Error("prose missing from the reading")
	}
	if len(rd.Keywords) != 2 {
		t.Errorf("expected 2 keywords, got %v", rd.Keywords)
	}
}

func TestExtractor_Topics(t *testing.T) {
	base := t.TempDir()
	writeTopic(t, base, "vectorial", "a.md", "texto")
	writeTopic(t, base, "series", "b.md", "texto")
	writeTopic(t, base, "_build", "c.md", "generado")
	writeTopic(t, base, "examenes", "d.md", "examen previo")
	if err := os.MkdirAll(filepath.Join(base, "vacio"), 0o755); err != nil {
		t.Fatal(err)
	}

	topics, err := NewExtractor(base).Topics()
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %v", topics)
	}
	for _, topic := range topics {
		if topic == "_build" || topic == "examenes" || topic == "vacio" {
			t.Errorf("topic %q must be excluded", topic)
		}
	}
}

func TestExtractor_MissingTopic(t *testing.T) {
	exercises, readings, err := NewExtractor(t.TempDir()).ExtractTopic("nada")
	if err != nil {
		t.Fatalf("missing topic must not fail: %v", err)
	}
	if len(exercises) != 0 || len(readings) != 0 {
		t.Error("expected empty results")
	}
}

func TestSplitFrontmatter_Malformed(t *testing.T) {
	doc := "---\n: not yaml [\n---\nbody"
	fm, body := splitFrontmatter(doc)
	if len(fm) != 0 {
		t.Errorf("malformed front matter must yield an empty map, got %v", fm)
	}
	if body != doc {
		t.Error("malformed front matter must keep the whole document as body")
	}
}

func TestSplitFrontmatter_Absent(t *testing.T) {
	fm, body := splitFrontmatter("solo cuerpo")
	if len(fm) != 0 || body != "solo cuerpo" {
		t.Errorf("unexpected split: %v, %q", fm, body)
	}
}

func TestLabels(t *testing.T) {
	got := Labels([]Exercise{{Label: "a"}, {}, {Label: "b"}})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("unexpected labels: %v", got)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
