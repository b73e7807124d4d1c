package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const maxUniqueIdentifiers = 5

// Extractor classifies spans of free text into typed entities using the
// declarative pattern table in patterns.go.
//
// An Extractor is stateless and safe for concurrent use; dedup state lives
// in call-local sets, never on the instance.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract runs every pattern of every type over text and returns the
// deduplicated, priority-sorted entity set. It never fails: malformed or
// empty input yields empty slices.
func (e *Extractor) Extract(text string) ExtractionResult {
	seen := make(map[string]struct{})
	entities := make([]Entity, 0)

	for _, t := range typeOrder {
		spec := specs[t]
		for _, re := range spec.patterns {
			for _, match := range re.FindAllString(text, -1) {
				normalized := spec.normalize(match)
				if normalized == "" || !spec.validate(normalized) {
					continue
				}

				key := string(t) + ":" + normalized
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}

				entities = append(entities, Entity{
					Type:           t,
					Value:          normalized,
					Original:       match,
					Confidence:     spec.confidence(normalized),
					SearchValue:    spec.searchValue,
					SearchPriority: spec.priority,
				})
			}
		}
	}

	sortByPriority(entities)
	return buildResult(entities)
}

// ExtractFromRecord flattens a field→value map into "field: value" lines and
// extracts from the combined text. Fields are walked in sorted order so the
// output is deterministic for a given record.
func (e *Extractor) ExtractFromRecord(record map[string]any) ExtractionResult {
	if len(record) == 0 {
		return buildResult(nil)
	}

	fields := make([]string, 0, len(record))
	for f := range record {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&b, "%s: %s\n", f, formatFieldValue(record[f]))
	}
	return e.Extract(b.String())
}

// formatFieldValue renders a record value for extraction. JSON numbers
// decode as float64; integral ones must print in full decimal form or a
// numeric phone field would surface as scientific notation.
func formatFieldValue(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// MergeResults combines extraction results, deduplicating by (type, value)
// with the earliest occurrence winning, re-sorting by priority and
// recomputing the unique-identifier shortlist.
func (e *Extractor) MergeResults(results ...ExtractionResult) ExtractionResult {
	seen := make(map[string]struct{})
	merged := make([]Entity, 0)

	for _, r := range results {
		for _, ent := range r.Entities {
			if _, ok := seen[ent.Key()]; ok {
				continue
			}
			seen[ent.Key()] = struct{}{}
			merged = append(merged, ent)
		}
	}

	sortByPriority(merged)
	return buildResult(merged)
}

func sortByPriority(entities []Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].SearchPriority > entities[j].SearchPriority
	})
}

func buildResult(entities []Entity) ExtractionResult {
	result := ExtractionResult{
		Entities:          entities,
		HighValue:         make([]Entity, 0, len(entities)),
		LowValue:          make([]Entity, 0),
		UniqueIdentifiers: make([]string, 0, maxUniqueIdentifiers),
	}
	if entities == nil {
		result.Entities = make([]Entity, 0)
	}

	for _, ent := range entities {
		if ent.SearchValue == SearchValueLow {
			result.LowValue = append(result.LowValue, ent)
		} else {
			result.HighValue = append(result.HighValue, ent)
		}
	}

	seen := make(map[string]struct{})
	for _, t := range identifierOrder {
		for _, ent := range entities {
			if ent.Type != t {
				continue
			}
			if _, ok := seen[ent.Value]; ok {
				continue
			}
			if len(result.UniqueIdentifiers) >= maxUniqueIdentifiers {
				return result
			}
			seen[ent.Value] = struct{}{}
			result.UniqueIdentifiers = append(result.UniqueIdentifiers, ent.Value)
		}
	}

	return result
}
