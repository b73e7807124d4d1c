package insight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodal-works/ferret/backend/pkg/ai"
	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/entity"
)

type fakeAIClient struct {
	response string
	err      error
	prompt   string
}

func (f *fakeAIClient) GenerateCompletion(_ context.Context, prompt string, _ ...ai.GenerateOption) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func (f *fakeAIClient) GenerateCompletionWithFormat(
	_ context.Context, _ string, _ string, prompt string, out any, _ ...ai.GenerateOption,
) error {
	f.prompt = prompt
	if f.err != nil {
		return f.err
	}
	return ai.UnmarshalFlexible(f.response, out)
}

func (f *fakeAIClient) GenerateEmbedding(context.Context, []byte) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAIClient) ResetMetrics() {}

func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func sampleRun() (*discovery.Output, *correlation.Graph) {
	output := &discovery.Output{
		Query: "9000000000",
		Results: []discovery.SearchResult{
			{ID: "r1", Table: "telecom", Record: map[string]any{"phone": "9000000000"}},
			{ID: "r2", Table: "banking", Record: map[string]any{"phone": "9000000000", "email": "a@b.com"}},
			{ID: "r3", Table: "banking", Record: map[string]any{"phone": "9000000000"}},
		},
	}
	graph := &correlation.Graph{
		Nodes: []correlation.Node{
			{
				ID: "phone:9000000000", Value: "9000000000", EntityType: entity.TypePhone,
				Occurrences: 3, Sources: []string{"telecom", "banking"},
				Connections: []string{"email:a@b.com"},
			},
			{
				ID: "email:a@b.com", Value: "a@b.com", EntityType: entity.TypeEmail,
				Occurrences: 1, Sources: []string{"banking"},
				Connections: []string{"phone:9000000000"},
			},
		},
		Edges: []correlation.Edge{
			{
				ID: "email:a@b.com|phone:9000000000", Source: "email:a@b.com",
				Target: "phone:9000000000", Weight: 5,
				Strength: correlation.StrengthStrong, Confidence: 0.85,
			},
		},
	}
	return output, graph
}

func TestSummarize_UsesModelOutput(t *testing.T) {
	client := &fakeAIClient{
		response: `{"summary":"One subject ties telecom and banking records together.",
			"key_findings":["phone reused in 3 records"],
			"entity_connections":["phone linked to email"],
			"recommendations":["verify phone ownership"],
			"confidence":0.8}`,
	}
	s := NewSummarizer(NewSummarizerParams{Client: client})

	output, graph := sampleRun()
	got := s.Summarize(context.Background(), output, graph)

	assert.Equal(t, "One subject ties telecom and banking records together.", got.Summary)
	assert.Equal(t, []string{"phone reused in 3 records"}, got.KeyFindings)
	assert.InDelta(t, 0.8, got.Confidence, 1e-9)

	assert.Contains(t, client.prompt, "Query: 9000000000")
	assert.Contains(t, client.prompt, "Records found: 3")
	assert.Contains(t, client.prompt, "9000000000 (phone)")
}

func TestSummarize_ClampsConfidence(t *testing.T) {
	client := &fakeAIClient{
		response: `{"summary":"ok","confidence":3.5}`,
	}
	s := NewSummarizer(NewSummarizerParams{Client: client})

	output, graph := sampleRun()
	got := s.Summarize(context.Background(), output, graph)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
}

func TestSummarize_FallsBackOnModelError(t *testing.T) {
	client := &fakeAIClient{err: errors.New("model host down")}
	s := NewSummarizer(NewSummarizerParams{Client: client})

	output, graph := sampleRun()
	got := s.Summarize(context.Background(), output, graph)

	assert.Equal(t, "Found 3 records across 2 data sources, linked by 2 distinct entities.", got.Summary)
	assert.NotEmpty(t, got.KeyFindings)
	assert.NotEmpty(t, got.Recommendations)
}

func TestSummarize_FallsBackOnEmptySummary(t *testing.T) {
	client := &fakeAIClient{response: `{"summary":"  "}`}
	s := NewSummarizer(NewSummarizerParams{Client: client})

	output, graph := sampleRun()
	got := s.Summarize(context.Background(), output, graph)
	assert.Contains(t, got.Summary, "Found 3 records")
}

func TestSummarize_NoClient(t *testing.T) {
	s := NewSummarizer(NewSummarizerParams{})

	output, graph := sampleRun()
	got := s.Summarize(context.Background(), output, graph)

	assert.Contains(t, got.Summary, "Found 3 records across 2 data sources")

	foundReuse := false
	for _, f := range got.KeyFindings {
		if strings.Contains(f, "phone 9000000000 appears in 3 separate records") {
			foundReuse = true
		}
	}
	assert.True(t, foundReuse, "expected reuse finding, got %v", got.KeyFindings)

	require.NotEmpty(t, got.EntityConnections)
	assert.Contains(t, got.EntityConnections[0], "strong link")
	assert.Greater(t, got.Confidence, 0.0)
	assert.LessOrEqual(t, got.Confidence, 0.7)
}

func TestSummarize_FallbackIsDeterministic(t *testing.T) {
	s := NewSummarizer(NewSummarizerParams{})
	output, graph := sampleRun()

	a := s.Summarize(context.Background(), output, graph)
	b := s.Summarize(context.Background(), output, graph)
	assert.Equal(t, a, b)
}

func TestSummarize_EmptyRun(t *testing.T) {
	s := NewSummarizer(NewSummarizerParams{})

	got := s.Summarize(context.Background(), &discovery.Output{Query: "x"}, &correlation.Graph{})

	assert.Contains(t, got.Summary, "Found 0 records")
	assert.Zero(t, got.Confidence)
	require.Len(t, got.Recommendations, 1)
	assert.Contains(t, got.Recommendations[0], "broaden the query")
}
