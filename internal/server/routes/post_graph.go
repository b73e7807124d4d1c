package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/nodal-works/ferret/backend/internal/server/middleware"
	"github.com/nodal-works/ferret/backend/pkg/correlation"
	"github.com/nodal-works/ferret/backend/pkg/discovery"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// BuildGraphHandler builds a correlation graph from caller-supplied records,
// bypassing the discovery loop. Useful for re-correlating exported result
// sets or records from systems the search backend does not cover.
func BuildGraphHandler(c echo.Context) error {
	type buildGraphBody struct {
		Results []discovery.SearchResult `json:"results" validate:"required"`
	}

	type buildGraphResponse struct {
		Message string             `json:"message"`
		Graph   *correlation.Graph `json:"graph,omitempty"`
	}

	data := new(buildGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, buildGraphResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, buildGraphResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, buildGraphResponse{
			Message: "Unauthorized",
		})
	}

	app := c.(*middleware.AppContext).App
	builder := correlation.NewBuilder(correlation.NewBuilderParams{
		Cache: app.Cache,
	})

	graph, err := builder.Build(c.Request().Context(), data.Results)
	if err != nil {
		logger.Error("Failed to build graph", "err", err)
		return c.JSON(http.StatusInternalServerError, buildGraphResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, buildGraphResponse{
		Message: "Graph built",
		Graph:   graph,
	})
}
