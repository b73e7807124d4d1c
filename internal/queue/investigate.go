package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nodal-works/ferret/backend/internal/db"
	"github.com/nodal-works/ferret/backend/internal/pipeline"
	"github.com/nodal-works/ferret/backend/internal/storage"
	"github.com/nodal-works/ferret/backend/internal/util"
	"github.com/nodal-works/ferret/backend/pkg/ai"
	"github.com/nodal-works/ferret/backend/pkg/leaselock"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// InvestigateMsg is the payload on the investigate queue.
type InvestigateMsg struct {
	InvestigationID     string `json:"investigation_id"`
	Query               string `json:"query"`
	MaxIterations       int    `json:"max_iterations,omitempty"`
	MaxResultsPerEntity int    `json:"max_results_per_entity,omitempty"`
	MaxTotalEntities    int    `json:"max_total_entities,omitempty"`
}

// ProcessInvestigate runs one queued investigation: lock it, run the
// pipeline, upload the report and mark the row completed. Errors are
// returned to the worker loop, which parks the message on the retry queue;
// a re-run of the same investigation is idempotent because the lease and
// the report key are both derived from the investigation id.
func ProcessInvestigate(
	ctx context.Context,
	s3Client *s3.Client,
	aiClient ai.Client,
	runner *pipeline.Runner,
	pgConn *pgxpool.Pool,
	msgBody string,
) error {
	var msg InvestigateMsg
	if err := json.Unmarshal([]byte(msgBody), &msg); err != nil {
		return fmt.Errorf("failed to unmarshal investigate message: %w", err)
	}
	if msg.InvestigationID == "" {
		return fmt.Errorf("investigate message missing investigation_id")
	}

	store := db.New(pgConn)
	locks := leaselock.New(pgConn)

	return locks.WithLease(ctx, "investigate:"+msg.InvestigationID, leaselock.Options{
		TTL: 10 * time.Minute,
	}, func(ctx context.Context) error {
		inv, err := store.GetInvestigation(ctx, msg.InvestigationID)
		if err != nil {
			return fmt.Errorf("failed to load investigation: %w", err)
		}
		if inv.Status == db.StatusCompleted {
			logger.Info("[Investigate] Already completed, skipping", "id", msg.InvestigationID)
			return nil
		}

		if err := store.MarkRunning(ctx, msg.InvestigationID); err != nil {
			return fmt.Errorf("failed to mark investigation running: %w", err)
		}

		report, err := runner.Run(ctx, pipeline.RunParams{
			Query:               msg.Query,
			MaxIterations:       msg.MaxIterations,
			MaxResultsPerEntity: msg.MaxResultsPerEntity,
			MaxTotalEntities:    msg.MaxTotalEntities,
		})
		if err != nil {
			return fmt.Errorf("investigation run failed: %w", err)
		}

		reportJSON, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		reportKey, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (string, error) {
			return storage.PutReport(ctx, s3Client, msg.InvestigationID, reportJSON)
		})
		if err != nil {
			return fmt.Errorf("failed to store report: %w", err)
		}

		// embedding powers similar-investigation lookup; losing it is not
		// worth failing a finished run over
		var embedding []float32
		if aiClient != nil {
			embedding, err = aiClient.GenerateEmbedding(ctx, []byte(msg.Query))
			if err != nil {
				logger.Warn("[Investigate] Failed to embed query", "id", msg.InvestigationID, "err", err)
				embedding = nil
			}
		}

		if err := store.MarkCompleted(ctx, msg.InvestigationID, reportKey, len(report.Results), embedding); err != nil {
			return fmt.Errorf("failed to mark investigation completed: %w", err)
		}

		logger.Info("[Investigate] Completed",
			"id", msg.InvestigationID, "results", len(report.Results))
		return nil
	})
}

// FailInvestigation marks an investigation failed once its message has
// exhausted all retries and is headed for the dead-letter queue.
func FailInvestigation(ctx context.Context, pgConn *pgxpool.Pool, msgBody []byte, cause string) {
	var msg InvestigateMsg
	if err := json.Unmarshal(msgBody, &msg); err != nil || msg.InvestigationID == "" {
		return
	}

	store := db.New(pgConn)
	if err := store.MarkFailed(ctx, msg.InvestigationID, cause); err != nil {
		logger.Error("[Investigate] Failed to mark investigation failed",
			"id", msg.InvestigationID, "err", err)
	}
}
