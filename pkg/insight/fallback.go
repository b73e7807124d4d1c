package insight

import (
	"fmt"
	"strings"

	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/entity"
)

const (
	fallbackBaseConfidence = 0.3
	fallbackMaxConfidence  = 0.7
)

// heuristicInsights builds a deterministic summary from counts alone. It is
// the output when no model backend is configured or the model call failed.
func heuristicInsights(output *discovery.Output, graph *correlation.Graph) Insights {
	tables := make(map[string]struct{})
	for _, res := range output.Results {
		tables[res.Table] = struct{}{}
	}

	ins := Insights{
		Summary: fmt.Sprintf(
			"Found %d records across %d data sources, linked by %d distinct entities.",
			len(output.Results), len(tables), len(graph.Nodes),
		),
	}

	for _, n := range graph.Nodes {
		if n.Occurrences >= 3 {
			ins.KeyFindings = append(ins.KeyFindings, fmt.Sprintf(
				"%s %s appears in %d separate records",
				n.EntityType, n.Value, n.Occurrences,
			))
		}
		if len(n.Sources) >= 2 {
			ins.KeyFindings = append(ins.KeyFindings, fmt.Sprintf(
				"%s %s found across %d data sources (%s)",
				n.EntityType, n.Value, len(n.Sources), strings.Join(n.Sources, ", "),
			))
		}
	}

	strongEdges := 0
	for _, e := range graph.Edges {
		if e.Strength == correlation.StrengthWeak {
			continue
		}
		if e.Strength == correlation.StrengthStrong {
			strongEdges++
		}
		ins.EntityConnections = append(ins.EntityConnections, fmt.Sprintf(
			"%s and %s appear together in %d records (%s link)",
			e.Source, e.Target, e.Weight, e.Strength,
		))
	}

	ins.Recommendations = recommendations(output, graph)

	confidence := fallbackBaseConfidence +
		0.05*float64(len(ins.KeyFindings)) +
		0.1*float64(strongEdges)
	if confidence > fallbackMaxConfidence {
		confidence = fallbackMaxConfidence
	}
	if len(output.Results) == 0 {
		confidence = 0
	}
	ins.Confidence = confidence

	return ins
}

func recommendations(output *discovery.Output, graph *correlation.Graph) []string {
	if len(output.Results) == 0 {
		return []string{
			"No records matched; broaden the query or add another identifier (phone, email, ID number).",
		}
	}

	var recs []string
	reusedPhones := 0
	for _, n := range graph.Nodes {
		if n.EntityType == entity.TypePhone && n.Occurrences >= 2 {
			reusedPhones++
		}
	}
	if reusedPhones > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d phone numbers recur across records; verify ownership in the source systems.",
			reusedPhones,
		))
	}
	for _, e := range graph.Edges {
		if e.Strength == correlation.StrengthStrong {
			recs = append(recs,
				"Strong co-occurrence links found; review the connected entities for shared accounts or addresses.")
			break
		}
	}
	recs = append(recs, "Cross-check high-value identifiers against the original data sources before acting on them.")
	return recs
}
