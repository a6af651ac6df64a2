// Package api registers huginn's HTTP routes.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/huginn/internal/auth"
	"github.com/jonesrussell/north-cloud/huginn/internal/handlers"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/metrics"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
	"github.com/jonesrussell/north-cloud/huginn/internal/server"
)

const serviceName = "huginn"

// Deps are the stores and services behind the routes.
type Deps struct {
	Contractors    handlers.ContractorStore
	Pages          handlers.PageStore
	ForbiddenWords handlers.ForbiddenWordStore
	MCCCodes       handlers.MCCCodeStore
	Sessions       handlers.SessionStore
	Stats          handlers.StatsProvider
	Scanner        handlers.Scanner
	Index          search.Index
	Verifier       *auth.Verifier
	Metrics        *metrics.Metrics
	// Health lists the dependencies probed by /health/ready.
	Health map[string]server.Pinger
	Logger logger.Logger
}

// Routes returns the route setup for server.New.
func Routes(d Deps) func(*gin.Engine) {
	return func(router *gin.Engine) {
		router.Use(d.Metrics.Middleware())

		server.RegisterHealth(router, serviceName, d.Health)
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

		index := d.Index
		if index == nil {
			index = search.NopIndex{}
		}

		contractors := handlers.NewContractorHandler(d.Contractors, d.Pages, d.Scanner, d.Logger)
		words := handlers.NewForbiddenWordHandler(d.ForbiddenWords, d.Logger)
		codes := handlers.NewMCCCodeHandler(d.MCCCodes, d.Logger)
		results := handlers.NewScanResultHandler(d.Pages, d.Logger)
		sessions := handlers.NewScanSessionHandler(d.Sessions, d.Pages, d.Scanner, d.Logger)
		dashboard := handlers.NewDashboardHandler(d.Stats, d.Logger)
		pageSearch := handlers.NewSearchHandler(index, d.Logger)

		v1 := router.Group("/api/v1")
		v1.Use(d.Verifier.Middleware())
		admin := auth.RequireAdmin()

		c := v1.Group("/contractors")
		c.GET("", contractors.List)
		c.POST("", contractors.Create)
		c.GET("/:id", contractors.Get)
		c.PUT("/:id", contractors.Update)
		c.DELETE("/:id", admin, contractors.Delete)
		c.POST("/:id/scan", contractors.Scan)
		c.GET("/:id/pages", contractors.Pages)
		c.GET("/:id/pages/:page_id", contractors.Page)

		fw := v1.Group("/forbidden-words")
		fw.GET("", words.List)
		fw.POST("", words.Create)
		fw.GET("/categories/list", words.Categories)
		fw.POST("/import", words.Import)
		fw.GET("/:id", words.Get)
		fw.PUT("/:id", words.Update)
		fw.DELETE("/:id", admin, words.Delete)

		mcc := v1.Group("/mcc-codes")
		mcc.GET("", codes.List)
		mcc.POST("", codes.Create)
		mcc.GET("/categories/list", codes.Categories)
		mcc.GET("/:id", codes.Get)
		mcc.PUT("/:id", codes.Update)
		mcc.DELETE("/:id", admin, codes.Delete)

		sr := v1.Group("/scan-results")
		sr.GET("", results.List)
		sr.GET("/export", results.Export)

		ss := v1.Group("/scan-sessions")
		ss.GET("", sessions.List)
		ss.GET("/:id", sessions.Get)
		ss.POST("/:id/start", sessions.Start)
		ss.DELETE("/:id", sessions.Delete)

		v1.GET("/dashboard/stats", dashboard.Stats)
		v1.GET("/pages/search", pageSearch.Search)
	}
}
