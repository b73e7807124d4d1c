package discovery

import (
	"context"

	"github.com/nodal-works/ferret/backend/pkg/entity"
	"github.com/nodal-works/ferret/backend/pkg/records"
)

// Default bounds for the lead-discovery loop. MaxTotalEntities is the global
// safety cap: no investigation ever queries the record store for more
// distinct entities than this, regardless of what discovery turns up.
const (
	DefaultMaxIterations       = 5
	DefaultMaxResultsPerEntity = 100
	DefaultMaxTotalEntities    = 50
)

// Searcher is the record-search collaborator the loop queries per entity.
type Searcher interface {
	Search(ctx context.Context, term string, limit int) ([]records.RawRecord, error)
}

// SearchResult is one scored record attributed to the entity whose lookup
// returned it.
type SearchResult struct {
	ID            string         `json:"id"`
	Table         string         `json:"table"`
	Record        map[string]any `json:"record"`
	MatchedFields []string       `json:"matched_fields"`
	Score         float64        `json:"score"`
}

// Metadata reports what a discovery run actually did.
type Metadata struct {
	ElapsedMs        int64 `json:"elapsed_ms"`
	Iterations       int   `json:"iterations"`
	APICalls         int   `json:"api_calls"`
	RawRecords       int   `json:"raw_records"`
	EntitiesSearched int   `json:"entities_searched"`
}

// Output is the full result of a discovery run: the deduplicated, filtered
// record set plus the query's own extraction and run metadata. Graph and
// insight construction happen downstream.
type Output struct {
	Query           string                  `json:"query"`
	QueryExtraction entity.ExtractionResult `json:"query_extraction"`
	Results         []SearchResult          `json:"results"`
	Metadata        Metadata                `json:"metadata"`
}
