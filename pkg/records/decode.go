package records

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
)

// Shape tags the recognized payload layouts of the record-search backend.
// The backend is not under our control and has shipped every one of these;
// decoding models them as an explicit union with an Unknown fallback instead
// of ad hoc property probing.
type Shape string

const (
	ShapeArray          Shape = "array"
	ShapeResultsList    Shape = "results_list"
	ShapeResultsByTable Shape = "results_by_table"
	ShapeRecords        Shape = "records"
	ShapeData           Shape = "data"
	ShapeItems          Shape = "items"
	ShapeUnknown        Shape = "unknown"
)

const defaultTable = "records"

// DecodePayload parses a backend response body into records, reporting which
// shape matched. An unrecognized shape is not an error: it decodes to zero
// records with ShapeUnknown so a single odd response never aborts a search.
// The returned keys list names the payload's top-level keys for diagnosis.
func DecodePayload(body []byte) ([]RawRecord, Shape, []string) {
	var bareList []map[string]any
	if err := json.Unmarshal(body, &bareList); err == nil {
		return fromMaps(bareList, defaultTable), ShapeArray, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ShapeUnknown, nil
	}

	if raw, ok := envelope["results"]; ok {
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err == nil {
			return fromMaps(list, defaultTable), ShapeResultsList, nil
		}

		var byTable map[string][]map[string]any
		if err := json.Unmarshal(raw, &byTable); err == nil {
			tables := make([]string, 0, len(byTable))
			for t := range byTable {
				tables = append(tables, t)
			}
			sort.Strings(tables)

			var out []RawRecord
			for _, t := range tables {
				out = append(out, fromMaps(byTable[t], t)...)
			}
			return out, ShapeResultsByTable, nil
		}
	}

	for key, shape := range map[string]Shape{
		"records": ShapeRecords,
		"data":    ShapeData,
		"items":   ShapeItems,
	} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err == nil {
			return fromMaps(list, defaultTable), shape, nil
		}
	}

	keys := make([]string, 0, len(envelope))
	for k := range envelope {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, ShapeUnknown, keys
}

func fromMaps(maps []map[string]any, table string) []RawRecord {
	out := make([]RawRecord, 0, len(maps))
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		rec := RawRecord{
			ID:     recordID(m),
			Table:  recordTable(m, table),
			Fields: m,
		}
		out = append(out, rec)
	}
	return out
}

func recordTable(m map[string]any, fallback string) string {
	for _, key := range []string{"table", "_table", "source"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

// recordID prefers a backend-provided identifier; otherwise it derives a
// stable one from the record's sorted field contents so dedup by ID works
// across iterations even against id-less backends.
func recordID(m map[string]any) string {
	for _, key := range []string{"id", "_id", "record_id"} {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}

	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	h := fnv.New64a()
	for _, f := range fields {
		fmt.Fprintf(h, "%s=%v;", f, m[f])
	}
	return fmt.Sprintf("fnv-%x", h.Sum64())
}
