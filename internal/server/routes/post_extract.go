package routes

import (
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/nodal-works/ferret/backend/internal/server/middleware"
	"github.com/nodal-works/ferret/backend/pkg/entity"
	"github.com/nodal-works/ferret/backend/pkg/logger"
)

// ExtractHandler runs entity extraction over raw text or a fetched URL
// without starting an investigation.
func ExtractHandler(c echo.Context) error {
	type extractBody struct {
		Text string `json:"text"`
		URL  string `json:"url"`
	}

	type extractResponse struct {
		Message string                   `json:"message"`
		Result  *entity.ExtractionResult `json:"result,omitempty"`
	}

	data := new(extractBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}
	if data.Text == "" && data.URL == "" {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Either text or url is required",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, extractResponse{
			Message: "Unauthorized",
		})
	}

	text := data.Text
	if text == "" {
		loader := c.(*middleware.AppContext).App.Web
		fetched, err := loader.FetchText(c.Request().Context(), data.URL)
		if err != nil {
			logger.Error("Failed to fetch url for extraction", "err", err)
			return c.JSON(http.StatusBadGateway, extractResponse{
				Message: "Failed to fetch url",
			})
		}
		text = string(fetched)
	}

	extractor := entity.NewExtractor()
	result := extractor.Extract(text)

	return c.JSON(http.StatusOK, extractResponse{
		Message: "Extraction completed",
		Result:  &result,
	})
}
