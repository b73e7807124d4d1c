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

// DeleteInvestigationHandler removes an investigation and its stored report.
func DeleteInvestigationHandler(c echo.Context) error {
	type deleteInvestigationParams struct {
		ID string `param:"id" validate:"required"`
	}

	type deleteInvestigationResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteInvestigationParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteInvestigationResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteInvestigationResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, deleteInvestigationResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	store := db.New(app.DBConn)

	inv, err := store.GetInvestigation(ctx, params.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.JSON(http.StatusNotFound, deleteInvestigationResponse{
				Message: "Investigation not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, deleteInvestigationResponse{
			Message: "Internal server error",
		})
	}

	// the report object goes first so a failed delete never orphans it
	if inv.ReportKey != "" {
		if err := storage.DeleteReport(ctx, app.S3, params.ID); err != nil {
			logger.Error("Failed to delete report object", "id", params.ID, "err", err)
			return c.JSON(http.StatusInternalServerError, deleteInvestigationResponse{
				Message: "Internal server error",
			})
		}
	}

	if err := store.DeleteInvestigation(ctx, params.ID); err != nil {
		logger.Error("Failed to delete investigation", "id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteInvestigationResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteInvestigationResponse{
		Message: "Investigation deleted",
	})
}
