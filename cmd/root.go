package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolutia/examgen/internal/config"
	"github.com/evolutia/examgen/internal/exam"
	"github.com/evolutia/examgen/internal/generate"
	"github.com/evolutia/examgen/internal/llm"
	"github.com/evolutia/examgen/internal/logging"
	"github.com/evolutia/examgen/internal/material"
	"github.com/evolutia/examgen/internal/rag"
	"github.com/evolutia/examgen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "examgen",
	Short: "Exam exercise generator for math course material",
	Long: "Examgen reads MyST course material, selects high-complexity exercises\n" +
		"and asks an LLM backend for harder variations, optionally grounded in\n" +
		"retrieved course context.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	addGenerateFlags(rootCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("base", ".", "Course material root directory")
	pf.String("config", "", "Config file path (default: examgen.yaml in base or cwd)")
	pf.String("provider", "", "LLM provider: openai, anthropic, gemini, local")
	pf.String("db", "", "Event log database path (overrides EXAMGEN_DB)")
	pf.BoolP("verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// addGenerateFlags registers the generation flags. Split out so tests
// can parse a flag set against a throwaway command.
func addGenerateFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringSlice("topic", nil, "Topics to generate for (directory names under the material root)")
	f.Int("count", 1, "Number of exercises to generate")
	f.StringP("output", "o", "", "Output directory for the exam files")
	f.String("difficulty", "alta", "Target difficulty: media, alta, muy_alta")
	f.String("mode", "variation", "Generation mode: variation, creation")
	f.String("type", "development", "Exercise type: development, multiple_choice")
	f.StringSlice("tags", nil, "Concept tags (filters sources; guides creation)")
	f.StringSlice("label", nil, "Explicit exercise labels to vary, in order")
	f.Bool("rag", false, "Ground prompts in retrieved course context")
	f.Bool("reindex", false, "Rebuild the retrieval index before generating")
	f.Bool("no-solutions", false, "Skip the solution generation pass")
	f.String("subject", "", "Exam subject line")
	f.StringSlice("keywords", nil, "Exam keywords for the metadata header")
	f.Int("exam-num", 0, "Exam number (default: next free number in the output dir)")
	f.Int("max-tokens", 0, "Max response tokens per request")
	f.Float64("temperature", 0, "Sampling temperature")
}

func runGenerate(cmd *cobra.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	base, _ := cmd.Flags().GetString("base")

	cfg, err := loadConfig(cmd, base)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.OutputDir
	}
	if output == "" {
		if reindex, _ := cmd.Flags().GetBool("reindex"); reindex {
			return runReindex(cmd, base, log)
		}
		return errors.New("--output is required")
	}

	opts, err := buildOptions(cmd, cfg)
	if err != nil {
		return err
	}
	if opts.Mode == generate.ModeVariation && len(opts.Topics) == 0 && len(opts.Labels) == 0 {
		return errors.New("--topic or --label is required in variation mode")
	}

	lc := cfg.LLMConfig()
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		lc.Provider = p
	}
	if err := lc.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventRepo, closeStore, err := openEventRepo(cmd)
	if err != nil {
		log.Warn("event log unavailable, requests will not be recorded", zap.Error(err))
	} else {
		defer closeStore()
	}

	provider, err := llm.NewProvider(ctx, lc, eventRepo)
	if err != nil {
		return err
	}

	exercises, readings, err := extractMaterial(base, opts)
	if err != nil {
		return err
	}
	log.Info("material extracted",
		zap.Int("exercises", len(exercises)),
		zap.Int("readings", len(readings)))

	analyzer := material.NewHeuristicAnalyzer()

	retriever, closeIndex, err := buildRetriever(ctx, cmd, base, exercises, readings, analyzer, log)
	if err != nil {
		return err
	}
	if closeIndex != nil {
		defer closeIndex()
	}

	orch := generate.NewOrchestrator(provider, analyzer, retriever, rag.NewEnricher(), log)
	res, err := orch.Run(ctx, exercises, opts)
	if err != nil {
		return err
	}
	for _, missing := range res.MissingLabels {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: label %q not found in material\n", missing)
	}

	subject, _ := cmd.Flags().GetString("subject")
	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	examNum, _ := cmd.Flags().GetInt("exam-num")

	renderer := &exam.Renderer{Dir: output}
	examPath, solutionsPath, err := renderer.Render(res.Variations, exam.Metadata{
		Subject:    subject,
		Keywords:   keywords,
		Provider:   lc.Provider,
		Model:      provider.ModelID(),
		Mode:       string(opts.Mode),
		Difficulty: opts.Difficulty,
	}, examNum)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d exercises, %d attempts)\n",
		examPath, len(res.Variations), res.Attempts)
	if solutionsPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", solutionsPath)
	}
	return nil
}

// runReindex rebuilds the retrieval index and exits without generating.
// Reached by --reindex when no output directory is configured.
func runReindex(cmd *cobra.Command, base string, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exercises, readings, err := material.NewExtractor(base).ExtractAll()
	if err != nil {
		return err
	}

	idx, err := openIndex(base)
	if err != nil {
		return err
	}
	defer idx.Close()

	log.Info("indexing material",
		zap.Int("exercises", len(exercises)),
		zap.Int("readings", len(readings)))
	if err := idx.IndexMaterials(ctx, exercises, readings, material.NewHeuristicAnalyzer(), true); err != nil {
		return fmt.Errorf("index material: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d exercises and %d readings\n",
		len(exercises), len(readings))
	return nil
}

// buildOptions merges the generation settings: config file values fill
// in for flags the user left unset, flags always win.
func buildOptions(cmd *cobra.Command, cfg *config.Config) (generate.Options, error) {
	f := cmd.Flags()
	topics, _ := f.GetStringSlice("topic")
	tags, _ := f.GetStringSlice("tags")
	labels, _ := f.GetStringSlice("label")
	count, _ := f.GetInt("count")
	difficulty, _ := f.GetString("difficulty")
	mode, _ := f.GetString("mode")
	exType, _ := f.GetString("type")
	noSolutions, _ := f.GetBool("no-solutions")
	maxTokens, _ := f.GetInt("max-tokens")
	temperature, _ := f.GetFloat64("temperature")

	if !f.Changed("count") && cfg.Generation.Count > 0 {
		count = cfg.Generation.Count
	}
	if !f.Changed("difficulty") && cfg.Generation.Difficulty != "" {
		difficulty = cfg.Generation.Difficulty
	}
	if !f.Changed("max-tokens") && cfg.Generation.MaxTokens > 0 {
		maxTokens = cfg.Generation.MaxTokens
	}
	if !f.Changed("temperature") && cfg.Generation.Temperature > 0 {
		temperature = cfg.Generation.Temperature
	}
	if !f.Changed("topic") && len(cfg.Generation.Topics) > 0 {
		topics = cfg.Generation.Topics
	}

	switch difficulty {
	case "media", "alta", "muy_alta":
	default:
		return generate.Options{}, fmt.Errorf("invalid --difficulty %q (want media, alta or muy_alta)", difficulty)
	}
	if mode != string(generate.ModeVariation) && mode != string(generate.ModeCreation) {
		return generate.Options{}, fmt.Errorf("invalid --mode %q (want variation or creation)", mode)
	}
	if exType != string(generate.TypeDevelopment) && exType != string(generate.TypeMultipleChoice) {
		return generate.Options{}, fmt.Errorf("invalid --type %q (want development or multiple_choice)", exType)
	}
	if mode == string(generate.ModeCreation) && len(topics) == 0 {
		return generate.Options{}, errors.New("--topic is required in creation mode")
	}

	return generate.Options{
		Mode:          generate.Mode(mode),
		Type:          generate.ExerciseType(exType),
		Count:         count,
		Topics:        topics,
		Tags:          tags,
		Labels:        labels,
		Difficulty:    difficulty,
		WithSolutions: !noSolutions,
		MaxTokens:     maxTokens,
		Temperature:   temperature,
	}, nil
}

// loadConfig reads the config file named by --config, falling back to
// discovery in the base and working directories.
func loadConfig(cmd *cobra.Command, base string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.Discover(base)
	}
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// extractMaterial reads either the requested topics or the whole tree.
// Label runs always read everything so labels can live in any topic.
func extractMaterial(base string, opts generate.Options) ([]material.Exercise, []material.Reading, error) {
	ex := material.NewExtractor(base)

	if len(opts.Topics) == 0 || len(opts.Labels) > 0 {
		return ex.ExtractAll()
	}

	var exercises []material.Exercise
	var readings []material.Reading
	for _, topic := range opts.Topics {
		e, r, err := ex.ExtractTopic(topic)
		if err != nil {
			return nil, nil, err
		}
		exercises = append(exercises, e...)
		readings = append(readings, r...)
	}
	return exercises, readings, nil
}

// buildRetriever opens the retrieval index when --rag is set, indexing
// the material on first use or when --reindex forces it.
func buildRetriever(ctx context.Context, cmd *cobra.Command, base string, exercises []material.Exercise, readings []material.Reading, analyzer material.Analyzer, log *zap.Logger) (*rag.Retriever, func(), error) {
	useRAG, _ := cmd.Flags().GetBool("rag")
	reindex, _ := cmd.Flags().GetBool("reindex")
	if !useRAG {
		return rag.NewRetriever(nil, rag.DefaultRetrieverConfig(), log), nil, nil
	}

	idx, err := openIndex(base)
	if err != nil {
		return nil, nil, err
	}

	indexed, err := idx.IsIndexed(ctx)
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	if reindex || !indexed {
		log.Info("indexing material", zap.Bool("forced", reindex))
		if err := idx.IndexMaterials(ctx, exercises, readings, analyzer, true); err != nil {
			idx.Close()
			return nil, nil, fmt.Errorf("index material: %w", err)
		}
	}

	r := rag.NewRetriever(idx, rag.DefaultRetrieverConfig(), log)
	return r, func() { idx.Close() }, nil
}

// openIndex opens the index database under base, creating its directory
// on first use.
func openIndex(base string) (*rag.SQLiteIndex, error) {
	p := indexPath(base)
	if err := store.EnsureDir(p); err != nil {
		return nil, err
	}
	idx, err := rag.OpenSQLiteIndex(p)
	if err != nil {
		return nil, fmt.Errorf("open retrieval index: %w", err)
	}
	return idx, nil
}

func indexPath(base string) string {
	return filepath.Join(base, ".examgen", "index.db")
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.New(verbose)
}

// openEventRepo opens the LLM event log. Callers treat a failure as
// non-fatal; generation works without the log.
func openEventRepo(cmd *cobra.Command) (store.EventRepo, func(), error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return s.EventRepo(), func() { s.Close() }, nil
}

// resolveDBPath returns the event log path using --db (highest
// priority), then EXAMGEN_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
