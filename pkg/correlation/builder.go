package correlation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/entity"
	"github.com/nodal-works/ferret/backend/pkg/logger"
	"github.com/nodal-works/ferret/backend/pkg/records"
)

const defaultParallelism = 8

// Builder constructs correlation graphs from discovery results. Extraction
// runs in parallel per record, but the fold into nodes and edges is strictly
// sequential over the input order, so the output is deterministic for a
// given result slice.
type Builder struct {
	extractor   *entity.Extractor
	cache       ExtractionCache
	parallelism int
}

// NewBuilderParams configures a Builder. A nil Cache disables memoization.
type NewBuilderParams struct {
	Extractor   *entity.Extractor
	Cache       ExtractionCache
	Parallelism int
}

// NewBuilder creates a Builder.
func NewBuilder(params NewBuilderParams) *Builder {
	b := &Builder{
		extractor:   params.Extractor,
		cache:       params.Cache,
		parallelism: params.Parallelism,
	}
	if b.extractor == nil {
		b.extractor = entity.NewExtractor()
	}
	if b.parallelism <= 0 {
		b.parallelism = defaultParallelism
	}
	return b
}

// Build extracts entities from every result record and folds them into a
// co-occurrence graph. Two entities appearing in the same record get an edge;
// each further shared record increments its weight.
func (b *Builder) Build(ctx context.Context, results []discovery.SearchResult) (*Graph, error) {
	extracted := make([][]entity.Entity, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)
	for i, res := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			extracted[i] = b.extractRecord(gctx, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nodes := make(map[string]*Node)
	var nodeOrder []string
	edges := make(map[string]*Edge)
	var edgeOrder []string
	adjacency := make(map[string]map[string]struct{})

	for i, res := range results {
		ents := extracted[i]

		for _, ent := range ents {
			key := ent.Key()
			node, ok := nodes[key]
			if !ok {
				node = &Node{
					ID:         key,
					Value:      ent.Value,
					EntityType: ent.Type,
				}
				nodes[key] = node
				nodeOrder = append(nodeOrder, key)
				adjacency[key] = make(map[string]struct{})
			}
			node.Occurrences++
			if !contains(node.Sources, res.Table) {
				node.Sources = append(node.Sources, res.Table)
			}
		}

		for j := 0; j < len(ents); j++ {
			for k := j + 1; k < len(ents); k++ {
				a, z := ents[j].Key(), ents[k].Key()
				if a == z {
					continue
				}
				if a > z {
					a, z = z, a
				}
				id := a + "|" + z

				edge, ok := edges[id]
				if !ok {
					edge = &Edge{ID: id, Source: a, Target: z}
					edges[id] = edge
					edgeOrder = append(edgeOrder, id)
					adjacency[a][z] = struct{}{}
					adjacency[z][a] = struct{}{}
				}
				edge.Weight++
			}
		}
	}

	graph := &Graph{
		Nodes: make([]Node, 0, len(nodeOrder)),
		Edges: make([]Edge, 0, len(edgeOrder)),
	}
	for _, key := range nodeOrder {
		node := nodes[key]
		node.Connections = connectionsFor(key, nodeOrder, adjacency[key])
		graph.Nodes = append(graph.Nodes, *node)
	}
	for _, id := range edgeOrder {
		edge := edges[id]
		edge.Strength, edge.Confidence = strengthFor(edge.Weight)
		graph.Edges = append(graph.Edges, *edge)
	}

	logger.Debug("[Correlation] Graph built",
		"records", len(results), "nodes", len(graph.Nodes), "edges", len(graph.Edges))

	return graph, nil
}

func (b *Builder) extractRecord(ctx context.Context, res discovery.SearchResult) []entity.Entity {
	if b.cache != nil {
		if ents, ok := b.cache.Get(ctx, res.ID); ok {
			return ents
		}
	}

	found := b.extractor.ExtractFromRecord(records.ScrubRecord(res.Record))
	if b.cache != nil {
		b.cache.Set(ctx, res.ID, found.Entities)
	}
	return found.Entities
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// connectionsFor lists a node's neighbors in global node-discovery order.
func connectionsFor(key string, nodeOrder []string, neighbors map[string]struct{}) []string {
	out := make([]string, 0, len(neighbors))
	for _, other := range nodeOrder {
		if other == key {
			continue
		}
		if _, ok := neighbors[other]; ok {
			out = append(out, other)
		}
	}
	return out
}
