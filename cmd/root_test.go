package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolutia/examgen/internal/config"
	"github.com/evolutia/examgen/internal/generate"
)

func newTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	addGenerateFlags(c)
	if err := c.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return c
}

func TestBuildOptions_ConfigFillsUnsetFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generation.Count = 4
	cfg.Generation.Difficulty = "muy_alta"
	cfg.Generation.MaxTokens = 1500
	cfg.Generation.Temperature = 0.4
	cfg.Generation.Topics = []string{"fourier"}

	opts, err := buildOptions(newTestCmd(t), cfg)
	if err != nil {
		t.Fatalf("build options: %v", err)
	}

	if opts.Count != 4 {
		t.Errorf("count = %d, want 4", opts.Count)
	}
	if opts.Difficulty != "muy_alta" {
		t.Errorf("difficulty = %q, want muy_alta", opts.Difficulty)
	}
	if opts.MaxTokens != 1500 {
		t.Errorf("max tokens = %d, want 1500", opts.MaxTokens)
	}
	if opts.Temperature != 0.4 {
		t.Errorf("temperature = %v, want 0.4", opts.Temperature)
	}
	if len(opts.Topics) != 1 || opts.Topics[0] != "fourier" {
		t.Errorf("topics = %v, want [fourier]", opts.Topics)
	}
}

func TestBuildOptions_FlagsWinOverConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generation.Count = 4
	cfg.Generation.Difficulty = "muy_alta"
	cfg.Generation.Topics = []string{"fourier"}

	opts, err := buildOptions(newTestCmd(t,
		"--count", "2", "--difficulty", "media", "--topic", "laplace"), cfg)
	if err != nil {
		t.Fatalf("build options: %v", err)
	}

	if opts.Count != 2 {
		t.Errorf("count = %d, want 2", opts.Count)
	}
	if opts.Difficulty != "media" {
		t.Errorf("difficulty = %q, want media", opts.Difficulty)
	}
	if len(opts.Topics) != 1 || opts.Topics[0] != "laplace" {
		t.Errorf("topics = %v, want [laplace]", opts.Topics)
	}
}

func TestBuildOptions_ConfigDifficultyValidated(t *testing.T) {
	cfg := &config.Config{}
	cfg.Generation.Difficulty = "imposible"

	if _, err := buildOptions(newTestCmd(t), cfg); err == nil {
		t.Fatal("expected an error for an invalid config difficulty")
	}
}

func TestBuildOptions_Defaults(t *testing.T) {
	opts, err := buildOptions(newTestCmd(t), &config.Config{})
	if err != nil {
		t.Fatalf("build options: %v", err)
	}

	if opts.Mode != generate.ModeVariation || opts.Type != generate.TypeDevelopment {
		t.Errorf("unexpected defaults: %q %q", opts.Mode, opts.Type)
	}
	if opts.Count != 1 || opts.Difficulty != "alta" {
		t.Errorf("unexpected defaults: count=%d difficulty=%q", opts.Count, opts.Difficulty)
	}
	if !opts.WithSolutions {
		t.Error("solutions should default on")
	}
}

func TestRunReindex(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "vectorial")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := ":::{exercise}\n" +
		":label: ex-grad-01\n" +
		"Calcule el gradiente de $f(x,y) = x^2 y$.\n" +
		":::\n\n" +
		"El gradiente apunta en la direccion de maximo crecimiento.\n"
	if err := os.WriteFile(filepath.Join(dir, "campos.md"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &cobra.Command{}
	var out bytes.Buffer
	c.SetOut(&out)

	if err := runReindex(c, base, zap.NewNop()); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	if !strings.Contains(out.String(), "Indexed 1 exercises and 1 readings") {
		t.Errorf("unexpected output: %q", out.String())
	}

	idx, err := openIndex(base)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	indexed, err := idx.IsIndexed(t.Context())
	if err != nil {
		t.Fatalf("is indexed: %v", err)
	}
	if !indexed {
		t.Error("expected the index populated")
	}
}
