package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.QueryService = (*PipelineService)(nil)

// Truncation limits, in runes.
const (
	promptContextLimit   = 800
	fallbackContextLimit = 500
	answerFindingsLimit  = 600
)

const (
	analysisPrompt = "Analyze this context and answer the query.\n\nQuery: %s\n\nContext: %s\n\nProvide a clear analysis:"
	fallbackPrefix = "Based on the documents: "
	answerFormat   = "Based on the research findings:\n\n%s\n\nSources: [%s]"
)

// PipelineConfig holds per-query pipeline parameters.
type PipelineConfig struct {
	// TopK is the number of chunks retrieved.
	TopK int

	// Temperature is passed to the generation service.
	Temperature float64

	// MaxTokens caps the analysis length.
	MaxTokens int

	// Timeout bounds the analysis generation call.
	Timeout time.Duration
}

// PipelineConfigFromSettings derives the pipeline parameters.
func PipelineConfigFromSettings(s domain.Settings) PipelineConfig {
	return PipelineConfig{
		TopK:        s.Pipeline.TopK,
		Temperature: s.LLM.Temperature,
		MaxTokens:   s.LLM.MaxTokens,
		Timeout:     s.LLM.Timeout,
	}
}

// DefaultPipelineConfig returns the defaults: k=4, temperature 0.3,
// 512 tokens and a 120 second generation timeout.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfigFromSettings(domain.DefaultSettings())
}

// PipelineService answers queries with a fixed sequence of stages:
// retrieve, analyze, synthesize.
//
// A failed or missing generation service never fails a query: the analysis
// falls back to the retrieved context and the run is marked degraded.
// Retrieval failures are returned wrapped in ErrRetrievalFailed. After
// retrieval succeeds, the only way a query can fail is cancellation of ctx
// by the caller during analysis, reported as the context error.
type PipelineService struct {
	retriever driving.RetrievalService
	llm       driven.LLMService
	cfg       PipelineConfig
	now       func() time.Time
}

// NewPipelineService creates a pipeline. llm may be nil.
func NewPipelineService(retriever driving.RetrievalService, llm driven.LLMService, cfg PipelineConfig) *PipelineService {
	defaults := DefaultPipelineConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.TopK
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &PipelineService{
		retriever: retriever,
		llm:       llm,
		cfg:       cfg,
		now:       time.Now,
	}
}

// ProcessQuery runs every stage for query and returns the result.
func (p *PipelineService) ProcessQuery(ctx context.Context, query string) (*domain.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	logger.Section("Query Pipeline")
	logger.Debug("Query: %q", query)

	start := p.now()
	state := domain.NewPipelineState(query)

	for state.Stage != domain.StageDone {
		logger.Debug("Stage: %s", state.Stage)
		if err := p.run(ctx, state); err != nil {
			return nil, err
		}
		state.Advance()
	}

	return &domain.Result{
		Query:          state.Query,
		Answer:         state.FinalAnswer,
		Sources:        state.Sources,
		NumSources:     len(state.Sources),
		ProcessingTime: p.now().Sub(start),
		WorkflowSteps:  state.Steps,
		Degraded:       state.AnalysisFallback,
	}, nil
}

func (p *PipelineService) run(ctx context.Context, state *domain.PipelineState) error {
	switch state.Stage {
	case domain.StageRetrieve:
		return p.retrieve(ctx, state)
	case domain.StageAnalyze:
		return p.analyze(ctx, state)
	case domain.StageSynthesize:
		p.synthesize(state)
		return nil
	default:
		return fmt.Errorf("unexpected pipeline stage %s", state.Stage)
	}
}

func (p *PipelineService) retrieve(ctx context.Context, state *domain.PipelineState) error {
	res, err := p.retriever.RetrieveContext(ctx, state.Query, p.cfg.TopK)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
	}

	state.Context = res.Context
	state.Sources = res.Sources
	if state.Sources == nil {
		state.Sources = []string{}
	}
	state.Record(domain.StepRetrieved(res.NumDocs))
	return nil
}

func (p *PipelineService) analyze(ctx context.Context, state *domain.PipelineState) error {
	prompt := fmt.Sprintf(analysisPrompt, state.Query, domain.Truncate(state.Context, promptContextLimit))

	gen := p.generate(ctx, prompt)
	if !gen.OK() {
		// The caller gave up; report that instead of degrading.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("analyze: %w", ctxErr)
		}

		logger.Warn("analysis unavailable, answering from retrieved context: %v", gen.Err)
		state.ResearchFindings = fallbackPrefix + domain.Truncate(state.Context, fallbackContextLimit)
		state.AnalysisFallback = true
		state.Record(domain.StepAnalysisFallback)
		return nil
	}

	state.ResearchFindings = gen.Text
	state.Record(domain.StepAnalysisComplete)
	return nil
}

func (p *PipelineService) generate(ctx context.Context, prompt string) domain.Generation {
	if p.llm == nil {
		return domain.GenerationFailed(fmt.Errorf("%w: no generation service", domain.ErrNotConfigured))
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	text, err := p.llm.Generate(callCtx, prompt, driven.GenerateOptions{
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("generation timed out after %s: %w", p.cfg.Timeout, domain.ErrProviderUnavailable)
		}
		return domain.GenerationFailed(err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.GenerationFailed(fmt.Errorf("%w: %w: empty generation",
			domain.ErrProviderUnavailable, domain.ErrMalformedResponse))
	}
	return domain.GenerationOK(text)
}

func (p *PipelineService) synthesize(state *domain.PipelineState) {
	names := make([]string, len(state.Sources))
	for i, src := range state.Sources {
		names[i] = domain.SourceBasename(src)
	}

	state.FinalAnswer = fmt.Sprintf(answerFormat,
		domain.Truncate(state.ResearchFindings, answerFindingsLimit),
		strings.Join(names, ", "))
	state.Record(domain.StepAnswerSynthesized)
}
