package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStage_Next tests the fixed stage order
func TestStage_Next(t *testing.T) {
	assert.Equal(t, StageAnalyze, StageRetrieve.Next())
	assert.Equal(t, StageSynthesize, StageAnalyze.Next())
	assert.Equal(t, StageDone, StageSynthesize.Next())
	assert.Equal(t, StageDone, StageDone.Next())
}

// TestStage_String tests stage names
func TestStage_String(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected string
	}{
		{StageRetrieve, "retrieve"},
		{StageAnalyze, "analyze"},
		{StageSynthesize, "synthesize"},
		{StageDone, "done"},
		{Stage(42), "stage(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.stage.String())
		})
	}
}

// TestNewPipelineState tests the initial state of a run
func TestNewPipelineState(t *testing.T) {
	state := NewPipelineState("What is machine learning?")

	assert.Equal(t, "What is machine learning?", state.Query)
	assert.Equal(t, StageRetrieve, state.Stage)
	assert.Empty(t, state.Context)
	assert.NotNil(t, state.Sources)
	assert.Empty(t, state.Sources)
	assert.Empty(t, state.ResearchFindings)
	assert.Empty(t, state.FinalAnswer)
	assert.NotNil(t, state.Steps)
	assert.Empty(t, state.Steps)
	assert.False(t, state.AnalysisFallback)
}

// TestPipelineState_RecordAndAdvance tests audit appends and stage moves
func TestPipelineState_RecordAndAdvance(t *testing.T) {
	state := NewPipelineState("q")

	state.Record(StepRetrieved(2))
	state.Advance()
	state.Record(StepAnalysisComplete)
	state.Advance()

	assert.Equal(t, StageSynthesize, state.Stage)
	assert.Equal(t, []string{"Retrieved 2 relevant sources", "Research analysis complete"}, state.Steps)
}

// TestGeneration tests the typed generation result
func TestGeneration(t *testing.T) {
	ok := GenerationOK("analysis")
	assert.True(t, ok.OK())
	assert.Equal(t, "analysis", ok.Text)

	failed := GenerationFailed(errors.New("timeout"))
	assert.False(t, failed.OK())
	assert.EqualError(t, failed.Err, "timeout")

	unknown := GenerationFailed(nil)
	assert.False(t, unknown.OK())
	assert.ErrorIs(t, unknown.Err, ErrProviderUnavailable)
}

// TestResult_MarshalJSON tests the wire shape of a result
func TestResult_MarshalJSON(t *testing.T) {
	result := Result{
		Query:          "What is RAG?",
		Answer:         "Based on the research findings:\n\nRAG\n\nSources: [rag_systems.txt]",
		Sources:        []string{"data/documents/rag_systems.txt"},
		NumSources:     1,
		ProcessingTime: 1234 * time.Millisecond,
		WorkflowSteps:  []string{"Retrieved 1 relevant sources"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "What is RAG?", decoded["query"])
	assert.InDelta(t, 1.23, decoded["processing_time"], 0.0001)
	assert.InDelta(t, 1, decoded["num_sources"], 0.0001)
	assert.Equal(t, false, decoded["degraded"])
	assert.Len(t, decoded["sources"], 1)
	assert.Len(t, decoded["workflow_steps"], 1)
}

// TestTruncate tests rune-aware prefix truncation
func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"shorter than limit", "abc", 10, "abc"},
		{"exact limit", "abc", 3, "abc"},
		{"longer than limit", "abcdef", 4, "abcd"},
		{"zero limit", "abc", 0, ""},
		{"negative limit", "abc", -1, ""},
		{"empty input", "", 5, ""},
		{"multibyte runes", "héllo wörld", 7, "héllo w"},
		{"cjk runes", "日本語テキスト", 3, "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.n))
		})
	}
}

// TestSourceBasename tests final path segment extraction
func TestSourceBasename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"data/documents/machine_learning.txt", "machine_learning.txt"},
		{"machine_learning.txt", "machine_learning.txt"},
		{"/abs/path/rag.txt", "rag.txt"},
		{`C:\docs\rag.txt`, "rag.txt"},
		{"dir/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SourceBasename(tt.input))
		})
	}
}
