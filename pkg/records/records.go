package records

// RawRecord is one row returned by the record-search collaborator: a flat
// field→value map plus the source dataset it came from.
type RawRecord struct {
	ID     string         `json:"id"`
	Table  string         `json:"table"`
	Fields map[string]any `json:"record"`
}
