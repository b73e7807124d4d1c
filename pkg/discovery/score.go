package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nodal-works/ferret/backend/pkg/entity"
)

const (
	scoreBase           = 0.5
	scoreExactField     = 0.3
	scoreSubstringField = 0.1
	bonusHighValue      = 0.2
	bonusMediumValue    = 0.1
)

// matchFields returns the record field names whose stringified value
// contains term case-insensitively, and whether any of them is an exact
// value match.
func matchFields(record map[string]any, term string) (fields []string, exact bool) {
	needle := strings.ToLower(term)

	names := make([]string, 0, len(record))
	for f := range record {
		names = append(names, f)
	}
	sort.Strings(names)

	for _, f := range names {
		value := strings.ToLower(strings.TrimSpace(stringifyField(record[f])))
		if value == "" {
			continue
		}
		if value == needle {
			fields = append(fields, f)
			exact = true
			continue
		}
		if strings.Contains(value, needle) {
			fields = append(fields, f)
		}
	}
	return fields, exact
}

func stringifyField(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// scoreRecord computes the relevance score for a record returned by a lookup
// on ent: a base score plus per-field match credit and a search-value bonus,
// weighted by the entity's extraction confidence and capped at 1.0.
func scoreRecord(ent entity.Entity, matched []string, exact bool) float64 {
	score := scoreBase

	perField := scoreSubstringField
	if exact {
		perField = scoreExactField
	}
	score += perField * float64(len(matched))

	switch ent.SearchValue {
	case entity.SearchValueHigh:
		score += bonusHighValue
	case entity.SearchValueMedium:
		score += bonusMediumValue
	}

	score *= ent.Confidence
	if score > 1.0 {
		score = 1.0
	}
	return score
}
