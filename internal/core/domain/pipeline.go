package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Stage identifies a step of the query pipeline.
// Stages run in a fixed order: Retrieve, Analyze, Synthesize, then Done.
type Stage int

// Pipeline stages.
const (
	// StageRetrieve fetches relevant chunks for the query.
	StageRetrieve Stage = iota

	// StageAnalyze asks the generation service to analyse the context.
	StageAnalyze

	// StageSynthesize composes the final cited answer.
	StageSynthesize

	// StageDone marks a completed run.
	StageDone
)

// Next returns the stage that follows s. Done is terminal.
func (s Stage) Next() Stage {
	if s >= StageDone {
		return StageDone
	}
	return s + 1
}

// String returns the string representation.
func (s Stage) String() string {
	switch s {
	case StageRetrieve:
		return "retrieve"
	case StageAnalyze:
		return "analyze"
	case StageSynthesize:
		return "synthesize"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Audit log entries appended by each stage.
const (
	StepAnalysisComplete  = "Research analysis complete"
	StepAnalysisFallback  = "Research analysis complete (fallback: direct context summary)"
	StepAnswerSynthesized = "Final answer synthesized"
)

// StepRetrieved returns the audit entry for the retrieve stage.
func StepRetrieved(n int) string {
	return fmt.Sprintf("Retrieved %d relevant sources", n)
}

// PipelineState is the record threaded through one query execution.
// It is created per run and owned by that run alone; each stage writes
// only its own fields and appends exactly one audit entry.
type PipelineState struct {
	// Query is the input question. It is never modified.
	Query string

	// Stage is the stage about to run.
	Stage Stage

	// Context is the retrieved text (set by Retrieve).
	Context string

	// Sources is the provenance of retrieved chunks (set by Retrieve).
	Sources []string

	// ResearchFindings is the analysis text (set by Analyze).
	ResearchFindings string

	// AnalysisFallback is true when Analyze used the local fallback.
	AnalysisFallback bool

	// FinalAnswer is the composed answer (set by Synthesize).
	FinalAnswer string

	// Steps is the append-only audit log.
	Steps []string
}

// NewPipelineState returns an empty state for the given query.
func NewPipelineState(query string) *PipelineState {
	return &PipelineState{
		Query:   query,
		Stage:   StageRetrieve,
		Sources: []string{},
		Steps:   []string{},
	}
}

// Record appends an audit entry.
func (s *PipelineState) Record(step string) {
	s.Steps = append(s.Steps, step)
}

// Advance moves the state to the next stage.
func (s *PipelineState) Advance() {
	s.Stage = s.Stage.Next()
}

// Generation is the outcome of a call to the generation service.
// Exactly one of Text or Err is meaningful: use OK to tell them apart.
type Generation struct {
	Text string
	Err  error
}

// GenerationOK wraps successfully generated text.
func GenerationOK(text string) Generation {
	return Generation{Text: text}
}

// GenerationFailed wraps a generation failure.
func GenerationFailed(err error) Generation {
	if err == nil {
		err = ErrProviderUnavailable
	}
	return Generation{Err: err}
}

// OK reports whether the generation succeeded.
func (g Generation) OK() bool {
	return g.Err == nil
}

// Result is the pipeline output returned to callers.
type Result struct {
	// Query is the question that was asked.
	Query string `json:"query"`

	// Answer is the final cited answer.
	Answer string `json:"answer"`

	// Sources is the provenance of every retrieved chunk, in rank order.
	Sources []string `json:"sources"`

	// NumSources is len(Sources).
	NumSources int `json:"num_sources"`

	// ProcessingTime is the wall-clock time of the run.
	ProcessingTime time.Duration `json:"-"`

	// WorkflowSteps is the audit log of the run.
	WorkflowSteps []string `json:"workflow_steps"`

	// Degraded is true when the analysis fell back to the direct context.
	Degraded bool `json:"degraded"`
}

// ProcessingSeconds returns the processing time in seconds, rounded to
// two decimal places.
func (r Result) ProcessingSeconds() float64 {
	return math.Round(r.ProcessingTime.Seconds()*100) / 100
}

// MarshalJSON encodes the processing time as seconds.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		ProcessingTime float64 `json:"processing_time"`
	}{
		plain:          plain(r),
		ProcessingTime: r.ProcessingSeconds(),
	})
}

// Truncate returns at most n leading runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// SourceBasename returns the final path segment of a provenance string.
func SourceBasename(source string) string {
	if i := strings.LastIndexAny(source, `/\`); i >= 0 {
		return source[i+1:]
	}
	return source
}
