package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/nodal-works/ferret/backend/internal/db"
	"github.com/nodal-works/ferret/backend/internal/server/middleware"
	"github.com/nodal-works/ferret/backend/internal/storage"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

func GetInvestigationsHandler(c echo.Context) error {
	type getInvestigationsQuery struct {
		Limit  int `query:"limit"`
		Offset int `query:"offset"`
	}

	params := new(getInvestigationsQuery)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	store := db.New(c.(*middleware.AppContext).App.DBConn)

	investigations, err := store.ListInvestigations(ctx, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list investigations", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if investigations == nil {
		investigations = []db.Investigation{}
	}

	return c.JSON(http.StatusOK, investigations)
}

func GetInvestigationHandler(c echo.Context) error {
	type getInvestigationParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(getInvestigationParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	store := db.New(c.(*middleware.AppContext).App.DBConn)

	inv, err := store.GetInvestigation(ctx, params.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Investigation not found"})
		}
		logger.Error("Failed to get investigation", "id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, inv)
}

// GetInvestigationReportHandler returns the full stored report for a
// completed investigation.
func GetInvestigationReportHandler(c echo.Context) error {
	type getReportParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(getReportParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	store := db.New(app.DBConn)

	inv, err := store.GetInvestigation(ctx, params.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Investigation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if inv.Status != db.StatusCompleted {
		return c.JSON(http.StatusConflict, map[string]string{
			"error":  "Report not ready",
			"status": inv.Status,
		})
	}

	data, err := storage.GetReport(ctx, app.S3, params.ID)
	if err != nil {
		logger.Error("Failed to fetch report", "id", params.ID, "err", err)
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Report not found"})
	}

	return c.JSONBlob(http.StatusOK, data)
}

// GetInvestigationReportLinkHandler returns a presigned download URL instead
// of the report body, for clients that want to hand off the download.
func GetInvestigationReportLinkHandler(c echo.Context) error {
	type getReportLinkParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getReportLinkResponse struct {
		Message string `json:"message"`
		URL     string `json:"url,omitempty"`
	}

	params := new(getReportLinkParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getReportLinkResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getReportLinkResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, getReportLinkResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	store := db.New(app.DBConn)

	inv, err := store.GetInvestigation(ctx, params.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getReportLinkResponse{
				Message: "Investigation not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, getReportLinkResponse{
			Message: "Internal server error",
		})
	}
	if inv.Status != db.StatusCompleted {
		return c.JSON(http.StatusConflict, getReportLinkResponse{
			Message: "Report not ready",
		})
	}

	url, err := storage.GenerateDownloadLink(ctx, app.S3, params.ID)
	if err != nil {
		logger.Error("Failed to presign report link", "id", params.ID, "err", err)
		return c.JSON(http.StatusNotFound, getReportLinkResponse{
			Message: "Report does not exist",
		})
	}

	return c.JSON(http.StatusOK, getReportLinkResponse{
		Message: "Download link generated",
		URL:     url,
	})
}

// GetSimilarInvestigationsHandler finds past investigations whose queries
// embed close to this one.
func GetSimilarInvestigationsHandler(c echo.Context) error {
	type getSimilarParams struct {
		ID    string `param:"id" validate:"required"`
		Limit int    `query:"limit"`
	}

	params := new(getSimilarParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	store := db.New(c.(*middleware.AppContext).App.DBConn)

	embedding, err := store.GetEmbedding(ctx, params.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Investigation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if len(embedding) == 0 {
		return c.JSON(http.StatusOK, []db.SimilarInvestigation{})
	}

	similar, err := store.FindSimilar(ctx, params.ID, embedding, params.Limit)
	if err != nil {
		logger.Error("Failed to find similar investigations", "id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if similar == nil {
		similar = []db.SimilarInvestigation{}
	}

	return c.JSON(http.StatusOK, similar)
}
