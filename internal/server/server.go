// Package server exposes the cached usage projection over a local HTTP API,
// for widget or panel consumers that poll over HTTP instead of exec'ing the
// CLI once per render tick.
package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/JillVernus/cc-usageline/internal/cachestore"
	"github.com/JillVernus/cc-usageline/internal/coordinator"
	"github.com/JillVernus/cc-usageline/internal/timeutil"
)

// Server serves the usage projection and the raw cache record.
type Server struct {
	coord *coordinator.Coordinator
	store *cachestore.Store
	ttl   time.Duration
}

// New creates a server around the given coordinator and store.
func New(coord *coordinator.Coordinator, store *cachestore.Store, ttl time.Duration) *Server {
	return &Server{coord: coord, store: store, ttl: ttl}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", s.handleHealth)
	r.GET("/api/usage", s.handleUsage)
	r.GET("/api/usage/record", s.handleRecord)

	return r
}

// Run starts the HTTP server on the given port.
func (s *Server) Run(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("✅ Usage API listening on http://%s", addr)
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUsage runs the coordinator (respecting the TTL and single-flight
// rules) and returns the six-field projection.
func (s *Server) handleUsage(c *gin.Context) {
	c.JSON(http.StatusOK, s.coord.Get(s.ttl))
}

// handleRecord returns the raw cache record. The countdown strings are
// restamped against the current clock with sjson so fields written by other
// implementations of this cache survive untouched.
func (s *Server) handleRecord(c *gin.Context) {
	_, raw := s.store.Read()
	if raw == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no cached usage record"})
		return
	}

	now := time.Now()
	out := raw
	for _, w := range []struct{ atPath, inPath string }{
		{"currentSession.resetsAt", "currentSession.resetsIn"},
		{"weeklyLimits.resetsAt", "weeklyLimits.resetsIn"},
	} {
		at := gjson.GetBytes(out, w.atPath).String()
		if at == "" {
			continue
		}
		if updated, err := sjson.SetBytes(out, w.inPath, timeutil.CountdownFrom(at, now)); err == nil {
			out = updated
		}
	}
	if updated, err := sjson.SetBytes(out, "servedAt", timeutil.FormatTimestamp(now)); err == nil {
		out = updated
	}

	c.Data(http.StatusOK, "application/json", out)
}

// corsMiddleware CORS 中间件（仅本机调试面板使用）
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
