package bootstrap

import (
	"github.com/jonesrussell/north-cloud/huginn/internal/api"
	"github.com/jonesrussell/north-cloud/huginn/internal/auth"
	"github.com/jonesrussell/north-cloud/huginn/internal/server"
)

// SetupHTTPServer creates the HTTP server with all API routes.
func SetupHTTPServer(s *Services) *server.Server {
	routes := api.Routes(api.Deps{
		Contractors:    s.Contractors,
		Pages:          s.Pages,
		ForbiddenWords: s.ForbiddenWords,
		MCCCodes:       s.MCCCodes,
		Sessions:       s.Sessions,
		Stats:          s.Dashboard,
		Scanner:        s.Orchestrator,
		Index:          s.Index,
		Verifier:       auth.NewVerifier(s.Config.Auth.JWTSecret),
		Metrics:        s.Metrics,
		Health:         s.Health,
		Logger:         s.Log,
	})
	return server.New(s.Config.Server, s.Config.Debug, s.Log, routes)
}
