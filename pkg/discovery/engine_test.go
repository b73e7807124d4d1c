package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodal-works/ferret/backend/pkg/records"
)

type fakeSearcher struct {
	responses map[string][]records.RawRecord
	errs      map[string]error
	calls     []string
}

func (f *fakeSearcher) Search(_ context.Context, term string, _ int) ([]records.RawRecord, error) {
	f.calls = append(f.calls, term)
	if err, ok := f.errs[term]; ok {
		return nil, err
	}
	return f.responses[term], nil
}

func rec(id string, fields map[string]any) records.RawRecord {
	return records.RawRecord{ID: id, Table: "test", Fields: fields}
}

func TestRun_EmptyQuery(t *testing.T) {
	e := NewEngine(NewEngineParams{Searcher: &fakeSearcher{}})

	_, err := e.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRun_LeadPropagation(t *testing.T) {
	s := &fakeSearcher{
		responses: map[string][]records.RawRecord{
			"9876543210": {rec("a1", map[string]any{"phone": "9876543210", "email": "x@y.com"})},
			"x@y.com":    {rec("b1", map[string]any{"email": "x@y.com", "alias": "someone"})},
		},
	}
	e := NewEngine(NewEngineParams{Searcher: s})

	out, err := e.Run(context.Background(), "find 9876543210")
	require.NoError(t, err)

	assert.Equal(t, []string{"9876543210", "x@y.com"}, s.calls)
	assert.Equal(t, 2, out.Metadata.Iterations)
	assert.Equal(t, 2, out.Metadata.APICalls)
	assert.Equal(t, 2, out.Metadata.RawRecords)
	assert.Equal(t, 2, out.Metadata.EntitiesSearched)
	require.Len(t, out.Results, 2)

	first := out.Results[0]
	assert.Equal(t, "a1", first.ID)
	assert.Equal(t, []string{"phone"}, first.MatchedFields)
	// (base 0.5 + exact 0.3 + HIGH 0.2) * confidence 0.98
	assert.InDelta(t, 0.98, first.Score, 1e-9)
}

func TestRun_LookupFailureIsSkipped(t *testing.T) {
	s := &fakeSearcher{
		responses: map[string][]records.RawRecord{
			"b@c.com": {rec("ok1", map[string]any{"email": "b@c.com"})},
		},
		errs: map[string]error{
			"9876543210": errors.New("backend down"),
		},
	}
	e := NewEngine(NewEngineParams{Searcher: s})

	out, err := e.Run(context.Background(), "9876543210 b@c.com")
	require.NoError(t, err)

	assert.Equal(t, 2, out.Metadata.APICalls)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "ok1", out.Results[0].ID)
}

func TestRun_TerminationAndEntityCap(t *testing.T) {
	// every lookup discovers two brand-new phones, forever
	n := 0
	s := &dynamicSearcher{next: func(term string) []records.RawRecord {
		n++
		return []records.RawRecord{
			rec(fmt.Sprintf("r%d", n), map[string]any{
				"seed":   term,
				"phone1": fmt.Sprintf("98%08d", 2*n),
				"phone2": fmt.Sprintf("98%08d", 2*n+1),
			}),
		}
	}}

	e := NewEngine(NewEngineParams{
		Searcher:         s,
		MaxIterations:    3,
		MaxTotalEntities: 5,
	})

	out, err := e.Run(context.Background(), "9876543210")
	require.NoError(t, err)

	assert.LessOrEqual(t, out.Metadata.Iterations, 3)
	assert.LessOrEqual(t, out.Metadata.EntitiesSearched, 5)
	assert.LessOrEqual(t, out.Metadata.APICalls, 5)
}

type dynamicSearcher struct {
	next func(term string) []records.RawRecord
}

func (d *dynamicSearcher) Search(_ context.Context, term string, _ int) ([]records.RawRecord, error) {
	return d.next(term), nil
}

func TestRun_LowValueFilter(t *testing.T) {
	s := &fakeSearcher{
		responses: map[string][]records.RawRecord{
			"9876543210": {
				rec("match", map[string]any{"phone": "9876543210", "holder": "Rahul Sharma"}),
				rec("other", map[string]any{"phone": "9876543210", "holder": "Someone Else"}),
			},
		},
	}
	e := NewEngine(NewEngineParams{Searcher: s, MaxIterations: 1})

	out, err := e.Run(context.Background(), "9876543210 Rahul Sharma")
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	assert.Equal(t, "match", out.Results[0].ID)
}

func TestRun_LowValueFilterFailsOpen(t *testing.T) {
	s := &fakeSearcher{
		responses: map[string][]records.RawRecord{
			"9876543210": {
				rec("r1", map[string]any{"phone": "9876543210"}),
				rec("r2", map[string]any{"phone": "9876543210", "city": "Pune"}),
			},
		},
	}
	e := NewEngine(NewEngineParams{Searcher: s, MaxIterations: 1})

	out, err := e.Run(context.Background(), "9876543210 Unknown Person")
	require.NoError(t, err)

	// filter matches nothing, so the unfiltered set comes back
	assert.Len(t, out.Results, 2)
}

func TestRun_DedupesByID(t *testing.T) {
	shared := rec("dup", map[string]any{"phone": "9876543210", "email": "x@y.com"})
	s := &fakeSearcher{
		responses: map[string][]records.RawRecord{
			"9876543210": {shared},
			"x@y.com":    {shared},
		},
	}
	e := NewEngine(NewEngineParams{Searcher: s})

	out, err := e.Run(context.Background(), "9876543210")
	require.NoError(t, err)

	assert.Equal(t, 2, out.Metadata.RawRecords)
	assert.Len(t, out.Results, 1)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(NewEngineParams{Searcher: &fakeSearcher{}})
	_, err := e.Run(ctx, "9876543210")
	assert.ErrorIs(t, err, context.Canceled)
}
