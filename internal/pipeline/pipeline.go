package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nodal-works/ferret/backend/pkg/ai"
	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/entity"
	"github.com/nodal-works/ferret/backend/pkg/insight"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// Runner chains discovery, correlation and insight generation into one
// investigation run. The HTTP handlers and the queue worker both go through
// here so synchronous and asynchronous investigations behave identically.
type Runner struct {
	extractor  *entity.Extractor
	searcher   discovery.Searcher
	builder    *correlation.Builder
	summarizer *insight.Summarizer
}

// NewRunnerParams configures a Runner. AIClient may be nil; insights then
// fall back to the count-based heuristics.
type NewRunnerParams struct {
	Searcher discovery.Searcher
	Cache    correlation.ExtractionCache
	AIClient ai.Client
}

// NewRunner creates a Runner. One extractor instance is shared between the
// discovery loop and the graph builder so both see identical entities.
func NewRunner(params NewRunnerParams) *Runner {
	extractor := entity.NewExtractor()
	return &Runner{
		extractor: extractor,
		searcher:  params.Searcher,
		builder: correlation.NewBuilder(correlation.NewBuilderParams{
			Extractor: extractor,
			Cache:     params.Cache,
		}),
		summarizer: insight.NewSummarizer(insight.NewSummarizerParams{
			Client: params.AIClient,
		}),
	}
}

// RunParams are the per-investigation knobs. Zero values fall back to the
// discovery defaults.
type RunParams struct {
	Query               string `json:"query"`
	MaxIterations       int    `json:"max_iterations"`
	MaxResultsPerEntity int    `json:"max_results_per_entity"`
	MaxTotalEntities    int    `json:"max_total_entities"`
}

// Report is the full investigation artifact that gets stored in object
// storage and handed back to callers.
type Report struct {
	ReportID    string                   `json:"report_id"`
	Query       string                   `json:"query"`
	GeneratedAt time.Time                `json:"generated_at"`
	Extraction  entity.ExtractionResult  `json:"extraction"`
	Results     []discovery.SearchResult `json:"results"`
	Graph       *correlation.Graph       `json:"graph"`
	Insights    insight.Insights         `json:"insights"`
	Metadata    discovery.Metadata       `json:"metadata"`
}

// Run executes one investigation end to end.
func (r *Runner) Run(ctx context.Context, params RunParams) (*Report, error) {
	engine := discovery.NewEngine(discovery.NewEngineParams{
		Extractor:           r.extractor,
		Searcher:            r.searcher,
		MaxIterations:       params.MaxIterations,
		MaxResultsPerEntity: params.MaxResultsPerEntity,
		MaxTotalEntities:    params.MaxTotalEntities,
	})

	output, err := engine.Run(ctx, params.Query)
	if err != nil {
		return nil, err
	}

	graph, err := r.builder.Build(ctx, output.Results)
	if err != nil {
		return nil, err
	}

	insights := r.summarizer.Summarize(ctx, output, graph)

	logger.Info("[Pipeline] Investigation completed",
		"results", len(output.Results),
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
	)

	return &Report{
		ReportID:    uuid.NewString(),
		Query:       output.Query,
		GeneratedAt: time.Now().UTC(),
		Extraction:  output.QueryExtraction,
		Results:     output.Results,
		Graph:       graph,
		Insights:    insights,
		Metadata:    output.Metadata,
	}, nil
}
