package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nodal-works/ferret/backend/pkg/entity"
	"github.com/nodal-works/ferret/backend/pkg/logger"
	"github.com/nodal-works/ferret/backend/pkg/records"
)

// ErrEmptyQuery is returned when a run is started with a blank query.
var ErrEmptyQuery = errors.New("query is empty")

// Engine runs the iterative lead-discovery loop: extract entities from the
// query, look each one up in the record store, re-extract from what comes
// back, and repeat until the iteration budget or the global entity cap is
// exhausted.
//
// Lookups within a batch run strictly sequentially. That keeps discovery
// order deterministic and spares the remote store; parallelizing a batch
// would need an atomic counter to hold the MaxTotalEntities cap.
type Engine struct {
	extractor *entity.Extractor
	searcher  Searcher

	maxIterations       int
	maxResultsPerEntity int
	maxTotalEntities    int
}

// NewEngineParams configures a discovery Engine. Zero values fall back to
// the package defaults.
type NewEngineParams struct {
	Extractor *entity.Extractor
	Searcher  Searcher

	MaxIterations       int
	MaxResultsPerEntity int
	MaxTotalEntities    int
}

// NewEngine creates a discovery Engine.
func NewEngine(params NewEngineParams) *Engine {
	e := &Engine{
		extractor:           params.Extractor,
		searcher:            params.Searcher,
		maxIterations:       params.MaxIterations,
		maxResultsPerEntity: params.MaxResultsPerEntity,
		maxTotalEntities:    params.MaxTotalEntities,
	}
	if e.extractor == nil {
		e.extractor = entity.NewExtractor()
	}
	if e.maxIterations <= 0 {
		e.maxIterations = DefaultMaxIterations
	}
	if e.maxResultsPerEntity <= 0 {
		e.maxResultsPerEntity = DefaultMaxResultsPerEntity
	}
	if e.maxTotalEntities <= 0 {
		e.maxTotalEntities = DefaultMaxTotalEntities
	}
	return e
}

// Run executes the full discovery loop for query. The only fatal errors are
// an empty query and context cancellation; individual lookup failures are
// logged and skipped.
func (e *Engine) Run(ctx context.Context, query string) (*Output, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	seed := e.extractor.Extract(query)

	// LOW-value entities are never queried directly; they are too common
	// and would flood the store. They come back as a post-filter below.
	queue := make([]entity.Entity, 0, len(seed.HighValue))
	queued := make(map[string]struct{})
	for _, ent := range seed.HighValue {
		queue = append(queue, ent)
		queued[ent.Key()] = struct{}{}
	}

	searched := make(map[string]struct{})
	var accumulated []SearchResult
	discovered := make(map[string]struct{})

	meta := Metadata{}

	for iteration := 0; iteration < e.maxIterations && len(queue) > 0; iteration++ {
		meta.Iterations = iteration + 1
		batch := queue
		queue = nil

		logger.Debug("[Discovery] Iteration", "n", iteration+1, "batch", len(batch))

		for _, ent := range batch {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, ok := searched[ent.Key()]; ok {
				continue
			}
			if len(searched) >= e.maxTotalEntities {
				break
			}
			searched[ent.Key()] = struct{}{}

			meta.APICalls++
			recs, err := e.searcher.Search(ctx, ent.Value, e.maxResultsPerEntity)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				logger.Warn("[Discovery] Lookup failed, skipping entity",
					"type", string(ent.Type), "err", err)
				continue
			}
			meta.RawRecords += len(recs)

			discoverMore := iteration+1 < e.maxIterations && len(searched) < e.maxTotalEntities

			for _, rec := range recs {
				matched, exact := matchFields(rec.Fields, ent.Value)
				accumulated = append(accumulated, SearchResult{
					ID:            rec.ID,
					Table:         rec.Table,
					Record:        rec.Fields,
					MatchedFields: matched,
					Score:         scoreRecord(ent, matched, exact),
				})

				if !discoverMore {
					continue
				}
				if _, seen := discovered[rec.ID]; seen {
					continue
				}
				discovered[rec.ID] = struct{}{}

				found := e.extractor.ExtractFromRecord(records.ScrubRecord(rec.Fields))
				for _, lead := range found.HighValue {
					if _, ok := searched[lead.Key()]; ok {
						continue
					}
					if _, ok := queued[lead.Key()]; ok {
						continue
					}
					if len(searched)+len(queue) >= e.maxTotalEntities {
						break
					}
					queued[lead.Key()] = struct{}{}
					queue = append(queue, lead)
				}
			}
		}
	}

	results := filterByLowValue(accumulated, seed.LowValue)
	results = dedupeByID(results)

	meta.ElapsedMs = time.Since(start).Milliseconds()
	meta.EntitiesSearched = len(searched)

	logger.Info("[Discovery] Run completed",
		"iterations", meta.Iterations,
		"api_calls", meta.APICalls,
		"raw_records", meta.RawRecords,
		"results", len(results),
		"entities_searched", meta.EntitiesSearched,
	)

	return &Output{
		Query:           query,
		QueryExtraction: seed,
		Results:         results,
		Metadata:        meta,
	}, nil
}

// filterByLowValue keeps records that mention at least one LOW-value entity
// from the original query (names, locations, companies). If the filter would
// wipe out a non-empty result set it fails open and returns the input: a
// over-eager filter must never turn findings into an empty report.
func filterByLowValue(results []SearchResult, lowValue []entity.Entity) []SearchResult {
	if len(lowValue) == 0 || len(results) == 0 {
		return results
	}

	filtered := make([]SearchResult, 0, len(results))
	for _, res := range results {
		serialized, err := json.Marshal(res.Record)
		if err != nil {
			continue
		}
		haystack := strings.ToLower(string(serialized))
		for _, low := range lowValue {
			if strings.Contains(haystack, strings.ToLower(low.Value)) {
				filtered = append(filtered, res)
				break
			}
		}
	}

	if len(filtered) == 0 {
		logger.Debug("[Discovery] Low-value filter would drop everything, failing open")
		return results
	}
	return filtered
}

func dedupeByID(results []SearchResult) []SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		if _, ok := seen[res.ID]; ok {
			continue
		}
		seen[res.ID] = struct{}{}
		out = append(out, res)
	}
	return out
}
