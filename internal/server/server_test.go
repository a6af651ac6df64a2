package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/server"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newServer(t *testing.T, origins []string, routes func(*gin.Engine)) *server.Server {
	t.Helper()
	return server.New(config.ServerConfig{Port: 0, CORSOrigins: origins}, false, logger.NewNop(), routes)
}

func serve(s *server.Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	var fromCtx bool
	s := newServer(t, nil, func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) {
			_, fromCtx = c.Get("request_id")
			c.Status(http.StatusOK)
		})
	})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
	assert.Len(t, w.Header().Get(server.RequestIDHeader), 36)
	assert.True(t, fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(server.RequestIDHeader, "upstream-1")
	w = serve(s, req)
	assert.Equal(t, "upstream-1", w.Header().Get(server.RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	s := newServer(t, nil, func(r *gin.Engine) {
		r.GET("/boom", func(*gin.Context) { panic("kaboom") })
	})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	s := newServer(t, []string{"http://localhost:3000"}, func(r *gin.Engine) {
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	req := httptest.NewRequest(http.MethodOptions, "/x", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	w := serve(s, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set("Origin", "http://evil.test")
	w = serve(s, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	healthy := true
	s := newServer(t, nil, func(r *gin.Engine) {
		server.RegisterHealth(r, "huginn", map[string]server.Pinger{
			"database": pingFunc(func(context.Context) error {
				if healthy {
					return nil
				}
				return errors.New("connection refused")
			}),
		})
	})

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"huginn"}`, w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w = serve(s, httptest.NewRequest(http.MethodGet, "/health/ready", http.NoBody))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connection refused", body.Checks["database"])
}
