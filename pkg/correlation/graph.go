package correlation

import (
	"github.com/nodal-works/ferret/backend/pkg/entity"
)

// Edge strength buckets derived from final co-occurrence weight.
const (
	StrengthWeak     = "weak"
	StrengthModerate = "moderate"
	StrengthStrong   = "strong"

	confidenceWeak     = 0.5
	confidenceModerate = 0.7
	confidenceStrong   = 0.85

	moderateWeight = 2
	strongWeight   = 5
)

// Node is one distinct entity discovered across the result set. Sources
// lists the distinct dataset tables the entity appeared in.
type Node struct {
	ID          string      `json:"id"`
	Value       string      `json:"value"`
	EntityType  entity.Type `json:"entity_type"`
	Occurrences int         `json:"occurrences"`
	Sources     []string    `json:"sources"`
	Connections []string    `json:"connections"`
}

// Edge is an unordered co-occurrence relationship between two nodes. Weight
// counts the records both entities appeared in together; Strength and
// Confidence are derived from the final weight.
type Edge struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Weight     int     `json:"weight"`
	Strength   string  `json:"strength"`
	Confidence float64 `json:"confidence"`
}

// Graph is the correlation graph over a result set. It is a pure function of
// the results it was built from: rebuilding from the same records yields
// identical weights and occurrence counts.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

func strengthFor(weight int) (string, float64) {
	switch {
	case weight >= strongWeight:
		return StrengthStrong, confidenceStrong
	case weight >= moderateWeight:
		return StrengthModerate, confidenceModerate
	default:
		return StrengthWeak, confidenceWeak
	}
}
