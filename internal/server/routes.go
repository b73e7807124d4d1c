package server

import (
	"github.com/labstack/echo/v4"

	"github.com/nodal-works/ferret/backend/internal/server/middleware"
	"github.com/nodal-works/ferret/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Investigation routes
	apiRoutes.GET("/investigations", routes.GetInvestigationsHandler, middleware.RequireAnyPermission("investigation.view", "investigation.view:all"))
	apiRoutes.POST("/investigations", routes.CreateInvestigationHandler, middleware.RequirePermission("investigation.create"))
	apiRoutes.GET("/investigations/:id", routes.GetInvestigationHandler, middleware.RequireAnyPermission("investigation.view", "investigation.view:all"))
	apiRoutes.DELETE("/investigations/:id", routes.DeleteInvestigationHandler, middleware.RequirePermission("investigation.delete"))

	// Report routes
	apiRoutes.GET("/investigations/:id/report", routes.GetInvestigationReportHandler, middleware.RequireAnyPermission("investigation.view", "investigation.view:all"))
	apiRoutes.GET("/investigations/:id/report/link", routes.GetInvestigationReportLinkHandler, middleware.RequirePermission("investigation.export"))
	apiRoutes.GET("/investigations/:id/similar", routes.GetSimilarInvestigationsHandler, middleware.RequireAnyPermission("investigation.view", "investigation.view:all"))

	// Standalone extraction and correlation routes
	apiRoutes.POST("/extract", routes.ExtractHandler, middleware.RequirePermission("extraction.run"))
	apiRoutes.POST("/graph", routes.BuildGraphHandler, middleware.RequirePermission("graph.build"))
}
