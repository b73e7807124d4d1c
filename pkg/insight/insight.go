package insight

import (
	"context"
	"strings"
	"time"

	"github.com/nodal-works/ferret/backend/pkg/ai"
	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// Insights is the narrative layer over a finished investigation.
type Insights struct {
	Summary           string   `json:"summary"`
	KeyFindings       []string `json:"key_findings"`
	EntityConnections []string `json:"entity_connections"`
	Recommendations   []string `json:"recommendations"`
	Confidence        float64  `json:"confidence"`
}

const generateTimeout = 60 * time.Second

// Summarizer turns discovery output and the correlation graph into insights.
// The model backend is optional: with no client, or on any model failure, a
// deterministic heuristic summary is produced instead. Summarize never fails
// the pipeline.
type Summarizer struct {
	client ai.Client
}

// NewSummarizerParams configures a Summarizer. Client may be nil.
type NewSummarizerParams struct {
	Client ai.Client
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(params NewSummarizerParams) *Summarizer {
	return &Summarizer{client: params.Client}
}

// Summarize produces insights for a completed run.
func (s *Summarizer) Summarize(
	ctx context.Context,
	output *discovery.Output,
	graph *correlation.Graph,
) Insights {
	if s.client == nil {
		return heuristicInsights(output, graph)
	}

	rCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	prompt := buildPrompt(output, graph)

	var out Insights
	err := s.client.GenerateCompletionWithFormat(
		rCtx,
		"investigation_insights",
		"Narrative insights over an investigation's records and entity graph",
		prompt,
		&out,
		ai.WithSystemPrompts(systemPrompt),
		ai.WithTemperature(0.2),
	)
	if err != nil {
		logger.Warn("[Insight] Generation failed, using heuristic fallback", "err", err)
		return heuristicInsights(output, graph)
	}
	if strings.TrimSpace(out.Summary) == "" {
		logger.Warn("[Insight] Model returned empty summary, using heuristic fallback")
		return heuristicInsights(output, graph)
	}

	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return out
}
