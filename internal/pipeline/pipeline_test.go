package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/records"
)

type fakeSearcher struct {
	responses map[string][]records.RawRecord
}

func (f *fakeSearcher) Search(_ context.Context, term string, _ int) ([]records.RawRecord, error) {
	return f.responses[term], nil
}

func TestRun_EndToEnd(t *testing.T) {
	s := &fakeSearcher{
		responses: map[string][]records.RawRecord{
			"9876543210": {
				{ID: "t1", Table: "telecom", Fields: map[string]any{
					"phone": "9876543210", "email": "x@y.com",
				}},
			},
			"x@y.com": {
				{ID: "b1", Table: "banking", Fields: map[string]any{
					"email": "x@y.com", "phone": "9876543210",
				}},
			},
		},
	}
	r := NewRunner(NewRunnerParams{Searcher: s})

	report, err := r.Run(context.Background(), RunParams{Query: "9876543210"})
	require.NoError(t, err)

	assert.Equal(t, "9876543210", report.Query)
	assert.NotEmpty(t, report.ReportID)
	assert.False(t, report.GeneratedAt.IsZero())
	require.Len(t, report.Results, 2)

	require.NotNil(t, report.Graph)
	assert.Len(t, report.Graph.Nodes, 2)
	require.Len(t, report.Graph.Edges, 1)
	assert.Equal(t, 2, report.Graph.Edges[0].Weight)

	// no AI client configured, heuristics still produce a summary
	assert.Contains(t, report.Insights.Summary, "Found 2 records")
	assert.Equal(t, 2, report.Metadata.APICalls)
}

func TestRun_EmptyQuery(t *testing.T) {
	r := NewRunner(NewRunnerParams{Searcher: &fakeSearcher{}})

	_, err := r.Run(context.Background(), RunParams{Query: "  "})
	assert.ErrorIs(t, err, discovery.ErrEmptyQuery)
}

func TestRun_NoResults(t *testing.T) {
	r := NewRunner(NewRunnerParams{Searcher: &fakeSearcher{}})

	report, err := r.Run(context.Background(), RunParams{Query: "9876543210"})
	require.NoError(t, err)

	assert.Empty(t, report.Results)
	assert.Empty(t, report.Graph.Nodes)
	assert.Zero(t, report.Insights.Confidence)
}
