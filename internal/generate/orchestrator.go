package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evolutia/examgen/internal/llm"
	"github.com/evolutia/examgen/internal/material"
	"github.com/evolutia/examgen/internal/rag"
)

// ErrExhausted is returned when the attempt budget ran out before a
// single variation was accepted.
var ErrExhausted = errors.New("attempt budget exhausted with no accepted variation")

// ErrNoCandidates is returned when the filters left nothing to vary.
var ErrNoCandidates = errors.New("no source exercises match the requested filters")

// Result is the outcome of a generation run.
type Result struct {
	Variations []Variation

	// MissingLabels lists requested labels not found in the material
	// (label runs only).
	MissingLabels []string

	// Attempts is the number of backend attempts consumed.
	Attempts int
}

// Orchestrator drives the select, enrich, generate, parse, validate
// loop until the requested count is accepted or the attempt budget runs
// out. One backend call failure costs one attempt, never the run.
type Orchestrator struct {
	provider  llm.Provider
	analyzer  material.Analyzer
	retriever *rag.Retriever
	enricher  *rag.Enricher
	log       *zap.Logger

	// seed overrides the sampling seed when non-zero, for tests.
	seed int64
}

// NewOrchestrator wires the generation loop. retriever may be built
// over a nil index; enricher and log may be nil.
func NewOrchestrator(provider llm.Provider, analyzer material.Analyzer, retriever *rag.Retriever, enricher *rag.Enricher, log *zap.Logger) *Orchestrator {
	if retriever == nil {
		retriever = rag.NewRetriever(nil, rag.DefaultRetrieverConfig(), nil)
	}
	if enricher == nil {
		enricher = rag.NewEnricher()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		provider:  provider,
		analyzer:  analyzer,
		retriever: retriever,
		enricher:  enricher,
		log:       log,
	}
}

// Run executes one generation run over the extracted material.
func (o *Orchestrator) Run(ctx context.Context, exercises []material.Exercise, opts Options) (*Result, error) {
	if opts.Count <= 0 {
		opts.Count = 1
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}

	switch {
	case opts.Mode == ModeCreation:
		return o.runCreation(ctx, opts)
	case len(opts.Labels) > 0:
		return o.runLabels(ctx, exercises, opts)
	default:
		return o.runVariations(ctx, exercises, opts)
	}
}

// runVariations is the standard mode: sample high-complexity sources,
// generate, validate, retry until count accepted or budget spent.
func (o *Orchestrator) runVariations(ctx context.Context, exercises []material.Exercise, opts Options) (*Result, error) {
	candidates := o.analyze(exercises)
	candidates = FilterCandidates(candidates, opts.Topics, opts.Tags)
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	selector := NewSelector(candidates, opts.Count, seed)
	validator := ValidatorFor(o.retriever.Enabled(), o.analyzer)
	budget := opts.Count * attemptsPerExercise

	res := &Result{}
	for res.Attempts < budget && len(res.Variations) < opts.Count {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts++

		cand, ok := selector.Pick()
		if !ok {
			return res, ErrNoCandidates
		}

		rc := o.retriever.Retrieve(ctx, cand.Exercise, cand.Analysis)
		v, err := o.attemptVariation(ctx, cand, rc, opts)
		if err != nil {
			o.log.Warn("generation attempt failed",
				zap.Int("attempt", res.Attempts),
				zap.String("label", cand.Exercise.Label),
				zap.Error(err))
			continue
		}

		// Items flagged for review carry raw unparsed text; analyzing
		// them would be meaningless.
		if !v.NeedsReview {
			an := o.analyzer.Analyze(material.Exercise{Content: v.Content})
			if ok, reason := validator.Validate(cand, an, rc); !ok {
				o.log.Info("variation rejected",
					zap.String("validator", validator.Name()),
					zap.String("label", cand.Exercise.Label),
					zap.String("reason", reason))
				continue
			}
		}

		res.Variations = append(res.Variations, *v)
		o.log.Info("variation accepted",
			zap.String("id", v.ID),
			zap.String("label", cand.Exercise.Label),
			zap.Int("accepted", len(res.Variations)),
			zap.Int("attempts", res.Attempts))
	}

	return o.finish(res, opts.Count)
}

// runLabels generates one variation per requested label, in order. Each
// label gets its own small retry budget and no validation pass; the
// caller asked for these exact sources.
func (o *Orchestrator) runLabels(ctx context.Context, exercises []material.Exercise, opts Options) (*Result, error) {
	byLabel := make(map[string]material.Exercise, len(exercises))
	for _, ex := range exercises {
		if ex.Label != "" {
			byLabel[ex.Label] = ex
		}
	}

	res := &Result{}
	for _, label := range opts.Labels {
		ex, found := byLabel[label]
		if !found {
			res.MissingLabels = append(res.MissingLabels, label)
			o.log.Warn("requested label not found in material", zap.String("label", label))
			continue
		}
		cand := Candidate{Exercise: ex, Analysis: o.analyzer.Analyze(ex)}

		for attempt := 1; attempt <= labelAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			res.Attempts++

			rc := o.retriever.Retrieve(ctx, cand.Exercise, cand.Analysis)
			v, err := o.attemptVariation(ctx, cand, rc, opts)
			if err != nil {
				o.log.Warn("generation attempt failed",
					zap.String("label", label),
					zap.Int("attempt", attempt),
					zap.Error(err))
				continue
			}
			res.Variations = append(res.Variations, *v)
			break
		}
	}

	if len(res.Variations) == 0 {
		return res, ErrExhausted
	}
	return res, nil
}

// runCreation generates de-novo exercises, cycling through the
// requested topics. Parsed results are accepted as-is.
func (o *Orchestrator) runCreation(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.Topics) == 0 {
		return nil, errors.New("creation mode requires at least one topic")
	}

	budget := opts.Count * attemptsPerExercise
	res := &Result{}
	for res.Attempts < budget && len(res.Variations) < opts.Count {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts++

		// Topics rotate over output slots, so a failed attempt retries
		// the same slot's topic and coverage stays balanced.
		topic := topicAt(opts.Topics, len(res.Variations))
		v, err := o.attemptCreation(ctx, topic, opts)
		if err != nil {
			o.log.Warn("creation attempt failed",
				zap.String("topic", topic),
				zap.Int("attempt", res.Attempts),
				zap.Error(err))
			continue
		}
		res.Variations = append(res.Variations, *v)
	}

	return o.finish(res, opts.Count)
}

func (o *Orchestrator) finish(res *Result, want int) (*Result, error) {
	if len(res.Variations) == 0 {
		return res, ErrExhausted
	}
	if len(res.Variations) < want {
		o.log.Warn("run finished short of the requested count",
			zap.Int("accepted", len(res.Variations)),
			zap.Int("requested", want),
			zap.Int("attempts", res.Attempts))
	}
	return res, nil
}

// attemptVariation performs one full attempt against a source exercise
// with pre-retrieved context.
func (o *Orchestrator) attemptVariation(ctx context.Context, cand Candidate, rc rag.Context, opts Options) (*Variation, error) {
	if opts.Type == TypeMultipleChoice {
		return o.attemptQuiz(ctx, cand, rc, opts)
	}

	prompt := VariationPrompt(cand.Exercise, cand.Analysis, opts.Difficulty, opts.WithSolutions, "")
	prompt = o.enricher.BuildPrompt(prompt, cand.Exercise, cand.Analysis, rc)

	resp, err := o.provider.Generate(llm.WithPurpose(ctx, "variation"), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, err
	}

	content, solution := parseDevelopment(resp.Text())
	if content == "" {
		return nil, fmt.Errorf("empty exercise statement in response")
	}

	v := o.newVariation(content, solution, TypeDevelopment, cand.Exercise.Label, cand.Exercise.Frontmatter, rc)

	if opts.WithSolutions && solution == "" {
		v.Solution = o.generateSolution(ctx, content, opts)
	}
	return v, nil
}

// generateSolution is the second-pass call for statements that came
// back without a worked solution. A failure here keeps the variation
// and only loses the solution.
func (o *Orchestrator) generateSolution(ctx context.Context, content string, opts Options) string {
	resp, err := o.provider.Generate(llm.WithPurpose(ctx, "solution"), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: SolutionPrompt(content)}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		o.log.Warn("solution generation failed, keeping statement without one", zap.Error(err))
		return ""
	}
	return resp.Text()
}

// attemptQuiz generates and parses one multiple-choice question. A
// response whose JSON survives neither parse nor repair is kept with
// its raw text and flagged for review.
func (o *Orchestrator) attemptQuiz(ctx context.Context, cand Candidate, rc rag.Context, opts Options) (*Variation, error) {
	prompt := QuizPrompt(cand.Exercise, opts.Difficulty, contextBlock(o.enricher, rc))

	// Providers with native structured output honor the schema; the
	// JSON-in-prompt instructions cover the ones that ignore it.
	resp, err := o.provider.Generate(llm.WithPurpose(ctx, "quiz"), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      QuizSchema(),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, err
	}

	text := resp.Text()
	q, err := parseQuiz(text)
	if err != nil {
		o.log.Warn("quiz response kept unparsed, flagged for review",
			zap.String("label", cand.Exercise.Label), zap.Error(err))
		v := o.newVariation(text, "", TypeMultipleChoice, cand.Exercise.Label, cand.Exercise.Frontmatter, rc)
		v.NeedsReview = true
		return v, nil
	}

	content, solution := formatQuiz(q)
	return o.newVariation(content, solution, TypeMultipleChoice, cand.Exercise.Label, cand.Exercise.Frontmatter, rc), nil
}

// attemptCreation performs one de-novo generation attempt for a topic.
func (o *Orchestrator) attemptCreation(ctx context.Context, topic string, opts Options) (*Variation, error) {
	terms := append([]string{topic}, opts.Tags...)
	rc := o.retriever.TopicContext(ctx, topic, terms)

	prompt := CreationPrompt(topic, opts.Tags, opts.Type, opts.Difficulty, opts.WithSolutions, contextBlock(o.enricher, rc))

	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.Type == TypeMultipleChoice {
		req.Schema = QuizSchema()
	}

	resp, err := o.provider.Generate(llm.WithPurpose(ctx, "creation"), req)
	if err != nil {
		return nil, err
	}

	fm := map[string]any{"topic": topic, "difficulty": opts.Difficulty}
	if len(opts.Tags) > 0 {
		fm["tags"] = opts.Tags
	}

	text := resp.Text()
	if opts.Type == TypeMultipleChoice {
		q, perr := parseQuiz(text)
		if perr != nil {
			v := o.newVariation(text, "", TypeMultipleChoice, "", fm, rc)
			v.NeedsReview = true
			return v, nil
		}
		content, solution := formatQuiz(q)
		return o.newVariation(content, solution, TypeMultipleChoice, "", fm, rc), nil
	}

	content, solution := parseDevelopment(text)
	if content == "" {
		return nil, fmt.Errorf("empty exercise statement in response")
	}
	v := o.newVariation(content, solution, TypeDevelopment, "", fm, rc)
	if opts.WithSolutions && solution == "" {
		v.Solution = o.generateSolution(ctx, content, opts)
	}
	return v, nil
}

func (o *Orchestrator) newVariation(content, solution string, t ExerciseType, label string, fm map[string]any, rc rag.Context) *Variation {
	v := &Variation{
		ID:                  uuid.NewString(),
		Content:             content,
		Solution:            solution,
		Type:                t,
		OriginalLabel:       label,
		OriginalFrontmatter: fm,
	}
	if !rc.Empty() {
		v.RAGContext = &RAGCounts{
			SimilarExercises: len(rc[rag.ChannelSimilar]),
			RelatedConcepts:  len(rc[rag.ChannelConcepts]),
			ReadingContext:   len(rc[rag.ChannelReading]),
		}
		v.RAGReferences = rc.References()
	}
	return v
}

func (o *Orchestrator) analyze(exercises []material.Exercise) []Candidate {
	out := make([]Candidate, 0, len(exercises))
	for _, ex := range exercises {
		out = append(out, Candidate{Exercise: ex, Analysis: o.analyzer.Analyze(ex)})
	}
	return out
}
