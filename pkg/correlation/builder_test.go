package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/entity"
)

func result(id string, fields map[string]any) discovery.SearchResult {
	return discovery.SearchResult{ID: id, Table: "test", Record: fields, Score: 0.9}
}

func TestBuild_CoOccurrence(t *testing.T) {
	results := []discovery.SearchResult{
		result("r1", map[string]any{"phone": "9000000000", "city": "Delhi"}),
		result("r2", map[string]any{"phone": "9000000000", "email": "a@b.com"}),
	}

	b := NewBuilder(NewBuilderParams{})
	g, err := b.Build(context.Background(), results)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	phone := g.Nodes[0]
	assert.Equal(t, "phone:9000000000", phone.ID)
	assert.Equal(t, entity.TypePhone, phone.EntityType)
	assert.Equal(t, 2, phone.Occurrences)
	assert.Equal(t, []string{"test"}, phone.Sources)
	assert.ElementsMatch(t, []string{"location:delhi", "email:a@b.com"}, phone.Connections)

	for _, e := range g.Edges {
		assert.Equal(t, 1, e.Weight)
		assert.Equal(t, StrengthWeak, e.Strength)
		assert.InDelta(t, 0.5, e.Confidence, 1e-9)
	}
}

func TestBuild_EdgeStrengthScalesWithWeight(t *testing.T) {
	var results []discovery.SearchResult
	for i := 0; i < 5; i++ {
		results = append(results, result(string(rune('a'+i)), map[string]any{
			"phone": "9000000000",
			"email": "a@b.com",
		}))
	}

	b := NewBuilder(NewBuilderParams{})

	g, err := b.Build(context.Background(), results[:2])
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 2, g.Edges[0].Weight)
	assert.Equal(t, StrengthModerate, g.Edges[0].Strength)
	assert.InDelta(t, 0.7, g.Edges[0].Confidence, 1e-9)

	g, err = b.Build(context.Background(), results)
	require.NoError(t, err)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 5, g.Edges[0].Weight)
	assert.Equal(t, StrengthStrong, g.Edges[0].Strength)
	assert.InDelta(t, 0.85, g.Edges[0].Confidence, 1e-9)
}

func TestBuild_OrderIndependentWeights(t *testing.T) {
	results := []discovery.SearchResult{
		result("r1", map[string]any{"phone": "9000000000", "city": "Delhi"}),
		result("r2", map[string]any{"phone": "9000000000", "email": "a@b.com"}),
		result("r3", map[string]any{"email": "a@b.com", "city": "Delhi"}),
	}
	reversed := []discovery.SearchResult{results[2], results[1], results[0]}

	b := NewBuilder(NewBuilderParams{})
	g1, err := b.Build(context.Background(), results)
	require.NoError(t, err)
	g2, err := b.Build(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, weightsByEdge(g1), weightsByEdge(g2))
	assert.Equal(t, occurrencesByNode(g1), occurrencesByNode(g2))
}

func weightsByEdge(g *Graph) map[string]int {
	out := make(map[string]int, len(g.Edges))
	for _, e := range g.Edges {
		out[e.ID] = e.Weight
	}
	return out
}

func occurrencesByNode(g *Graph) map[string]int {
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		out[n.ID] = n.Occurrences
	}
	return out
}

func TestBuild_SourcesAreDistinctTables(t *testing.T) {
	results := []discovery.SearchResult{
		{ID: "r1", Table: "telecom", Record: map[string]any{"phone": "9000000000"}},
		{ID: "r2", Table: "banking", Record: map[string]any{"phone": "9000000000"}},
		{ID: "r3", Table: "banking", Record: map[string]any{"phone": "9000000000"}},
	}

	b := NewBuilder(NewBuilderParams{})
	g, err := b.Build(context.Background(), results)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, 3, g.Nodes[0].Occurrences)
	assert.Equal(t, []string{"telecom", "banking"}, g.Nodes[0].Sources)
}

func TestBuild_NoisyFieldsIgnored(t *testing.T) {
	results := []discovery.SearchResult{
		result("r1", map[string]any{
			"phone":      "9000000000",
			"created_at": "2024-01-15T10:30:00Z",
			"_id":        "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		}),
	}

	b := NewBuilder(NewBuilderParams{})
	g, err := b.Build(context.Background(), results)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "phone:9000000000", g.Nodes[0].ID)
	assert.Empty(t, g.Edges)
}

func TestBuild_EmptyResults(t *testing.T) {
	b := NewBuilder(NewBuilderParams{})
	g, err := b.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestBuild_UsesCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	// seed the cache with an extraction that disagrees with the record
	cache.Set(ctx, "r1", []entity.Entity{{
		Type: entity.TypeEmail, Value: "cached@x.com",
		Confidence: 0.95, SearchValue: entity.SearchValueHigh, SearchPriority: 9,
	}})

	b := NewBuilder(NewBuilderParams{Cache: cache})
	g, err := b.Build(ctx, []discovery.SearchResult{
		result("r1", map[string]any{"phone": "9000000000"}),
	})
	require.NoError(t, err)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "email:cached@x.com", g.Nodes[0].ID)
}

func TestBuild_PopulatesCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	b := NewBuilder(NewBuilderParams{Cache: cache})
	_, err := b.Build(ctx, []discovery.SearchResult{
		result("r1", map[string]any{"phone": "9000000000"}),
	})
	require.NoError(t, err)

	ents, ok := cache.Get(ctx, "r1")
	require.True(t, ok)
	require.Len(t, ents, 1)
	assert.Equal(t, entity.TypePhone, ents[0].Type)
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(NewBuilderParams{})
	_, err := b.Build(ctx, []discovery.SearchResult{
		result("r1", map[string]any{"phone": "9000000000"}),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
