package insight

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/discovery"
)

const systemPrompt = "You are an analyst assisting an investigation. " +
	"You receive a structured digest of records and an entity co-occurrence graph. " +
	"Report only what the digest supports; do not invent identifiers or relationships."

// promptTokenBudget bounds the digest fed to the model. Large graphs are
// trimmed line by line from the tail, which drops the weakest edges and the
// least-connected nodes first because of how the digest is ordered.
const promptTokenBudget = 3000

const (
	maxPromptNodes = 15
	maxPromptEdges = 20
)

func buildPrompt(output *discovery.Output, graph *correlation.Graph) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Query: %s\n", output.Query)
	fmt.Fprintf(&b, "Records found: %d\n", len(output.Results))
	fmt.Fprintf(&b, "Distinct entities: %d\n", len(graph.Nodes))
	fmt.Fprintf(&b, "Entity relationships: %d\n", len(graph.Edges))

	tables := make(map[string]int)
	for _, res := range output.Results {
		tables[res.Table]++
	}
	if len(tables) > 0 {
		b.WriteString("Data sources:\n")
		for _, res := range output.Results {
			if n, ok := tables[res.Table]; ok {
				fmt.Fprintf(&b, "- %s: %d records\n", res.Table, n)
				delete(tables, res.Table)
			}
		}
	}

	nodes := topNodes(graph, maxPromptNodes)
	if len(nodes) > 0 {
		b.WriteString("Most connected entities:\n")
		for _, n := range nodes {
			fmt.Fprintf(&b, "- %s (%s): %d occurrences, %d connections, sources %s\n",
				n.Value, n.EntityType, n.Occurrences, len(n.Connections),
				strings.Join(n.Sources, ","))
		}
	}

	edges := topEdges(graph, maxPromptEdges)
	if len(edges) > 0 {
		b.WriteString("Strongest relationships:\n")
		for _, e := range edges {
			fmt.Fprintf(&b, "- %s <-> %s: together in %d records (%s)\n",
				e.Source, e.Target, e.Weight, e.Strength)
		}
	}

	b.WriteString("Respond with JSON: {summary, key_findings, entity_connections, recommendations, confidence}.")

	return trimToBudget(b.String(), promptTokenBudget)
}

// topNodes returns up to limit nodes ordered by connection count, then
// occurrences, then first-seen order.
func topNodes(graph *correlation.Graph, limit int) []correlation.Node {
	nodes := make([]correlation.Node, len(graph.Nodes))
	copy(nodes, graph.Nodes)

	// insertion sort keeps first-seen order among ties
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodeRank(nodes[j]) > nodeRank(nodes[j-1]); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}

	if len(nodes) > limit {
		nodes = nodes[:limit]
	}
	return nodes
}

func nodeRank(n correlation.Node) int {
	return len(n.Connections)*1000 + n.Occurrences
}

// topEdges returns up to limit edges ordered by weight, then first-seen order.
func topEdges(graph *correlation.Graph, limit int) []correlation.Edge {
	edges := make([]correlation.Edge, len(graph.Edges))
	copy(edges, graph.Edges)

	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && edges[j].Weight > edges[j-1].Weight; j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}

	if len(edges) > limit {
		edges = edges[:limit]
	}
	return edges
}

// tokenCount measures prompt size with the o200k encoding, falling back to a
// bytes/4 estimate when the encoding is unavailable (offline test runs).
func tokenCount(s string) int {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return len(s) / 4
	}
	return len(enc.Encode(s, nil, nil))
}

func trimToBudget(prompt string, budget int) string {
	if tokenCount(prompt) <= budget {
		return prompt
	}

	// keep the trailing format instruction, trim digest lines above it
	lines := strings.Split(prompt, "\n")
	last := lines[len(lines)-1]
	body := lines[:len(lines)-1]
	for len(body) > 1 && tokenCount(strings.Join(append(body, last), "\n")) > budget {
		body = body[:len(body)-1]
	}
	return strings.Join(append(body, last), "\n")
}
