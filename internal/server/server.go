// Package server exposes the status endpoints of a running ETL process:
// liveness, readiness, the latest run report, and Prometheus metrics.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stream-insights/twitch-etl-go/internal/pipeline"
)

// Pinger checks a backing dependency, typically the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the status state behind the HTTP handlers.
type Server struct {
	pinger Pinger

	mu     sync.RWMutex
	latest *pipeline.RunReport
}

// New creates a Server. pinger may be nil when no database is attached.
func New(pinger Pinger) *Server {
	return &Server{pinger: pinger}
}

// SetReport records the report of the most recent run.
func (s *Server) SetReport(report *pipeline.RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = report
}

// Router builds the gin engine with all status routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.livenessProbe)
	router.GET("/readyz", s.readinessProbe)
	router.GET("/report", s.latestReport)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func (s *Server) livenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

func (s *Server) readinessProbe(c *gin.Context) {
	if s.pinger == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":   "UP",
			"database": "not_configured",
			"time":     time.Now(),
		})
		return
	}

	if err := s.pinger.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "unhealthy",
			"error":    err.Error(),
			"time":     time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "UP",
		"database": "healthy",
		"time":     time.Now(),
	})
}

func (s *Server) latestReport(c *gin.Context) {
	s.mu.RLock()
	report := s.latest
	s.mu.RUnlock()

	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has completed yet"})
		return
	}

	c.JSON(http.StatusOK, report)
}
