package routes

import (
	"encoding/json"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nodal-works/ferret/backend/internal/db"
	"github.com/nodal-works/ferret/backend/internal/pipeline"
	"github.com/nodal-works/ferret/backend/internal/queue"
	"github.com/nodal-works/ferret/backend/internal/server/middleware"
	"github.com/nodal-works/ferret/backend/internal/storage"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// CreateInvestigationHandler starts an investigation. By default the run is
// queued and the pending row returned immediately; with sync=true the whole
// pipeline runs inside the request and the report comes back inline.
func CreateInvestigationHandler(c echo.Context) error {
	type createInvestigationBody struct {
		Query               string `json:"query" validate:"required"`
		Sync                bool   `json:"sync"`
		MaxIterations       int    `json:"max_iterations"`
		MaxResultsPerEntity int    `json:"max_results_per_entity"`
		MaxTotalEntities    int    `json:"max_total_entities"`
	}

	type createInvestigationResponse struct {
		Message       string            `json:"message"`
		Investigation *db.Investigation `json:"investigation,omitempty"`
		Report        *pipeline.Report  `json:"report,omitempty"`
	}

	data := new(createInvestigationBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createInvestigationResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createInvestigationResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createInvestigationResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	store := db.New(app.DBConn)

	id, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
			Message: "Internal server error",
		})
	}

	inv, err := store.CreateInvestigation(ctx, id, data.Query)
	if err != nil {
		logger.Error("Failed to create investigation", "err", err)
		return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
			Message: "Internal server error",
		})
	}

	if data.Sync {
		runner := pipeline.NewRunner(pipeline.NewRunnerParams{
			Searcher: app.Records,
			Cache:    app.Cache,
			AIClient: app.AiClient,
		})

		if err := store.MarkRunning(ctx, inv.ID); err != nil {
			logger.Error("Failed to mark investigation running", "err", err)
		}

		report, err := runner.Run(ctx, pipeline.RunParams{
			Query:               data.Query,
			MaxIterations:       data.MaxIterations,
			MaxResultsPerEntity: data.MaxResultsPerEntity,
			MaxTotalEntities:    data.MaxTotalEntities,
		})
		if err != nil {
			_ = store.MarkFailed(ctx, inv.ID, err.Error())
			logger.Error("Investigation failed", "id", inv.ID, "err", err)
			return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
				Message: "Investigation failed",
			})
		}

		reportJSON, err := json.Marshal(report)
		if err != nil {
			_ = store.MarkFailed(ctx, inv.ID, err.Error())
			return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
				Message: "Internal server error",
			})
		}

		reportKey, err := storage.PutReport(ctx, app.S3, inv.ID, reportJSON)
		if err != nil {
			_ = store.MarkFailed(ctx, inv.ID, err.Error())
			logger.Error("Failed to store report", "id", inv.ID, "err", err)
			return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
				Message: "Internal server error",
			})
		}

		var embedding []float32
		if app.AiClient != nil {
			embedding, err = app.AiClient.GenerateEmbedding(ctx, []byte(data.Query))
			if err != nil {
				logger.Warn("Failed to embed query", "id", inv.ID, "err", err)
				embedding = nil
			}
		}

		if err := store.MarkCompleted(ctx, inv.ID, reportKey, len(report.Results), embedding); err != nil {
			logger.Error("Failed to mark investigation completed", "id", inv.ID, "err", err)
		}

		completed, err := store.GetInvestigation(ctx, inv.ID)
		if err != nil {
			completed = inv
		}

		return c.JSON(http.StatusOK, createInvestigationResponse{
			Message:       "Investigation completed",
			Investigation: &completed,
			Report:        report,
		})
	}

	msg := queue.InvestigateMsg{
		InvestigationID:     inv.ID,
		Query:               data.Query,
		MaxIterations:       data.MaxIterations,
		MaxResultsPerEntity: data.MaxResultsPerEntity,
		MaxTotalEntities:    data.MaxTotalEntities,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.InvestigateQueue, msgBytes); err != nil {
		logger.Error("Failed to publish to investigate_queue", "err", err)
		_ = store.MarkFailed(ctx, inv.ID, "failed to enqueue investigation")
		return c.JSON(http.StatusInternalServerError, createInvestigationResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createInvestigationResponse{
		Message:       "Investigation queued",
		Investigation: &inv,
	})
}
