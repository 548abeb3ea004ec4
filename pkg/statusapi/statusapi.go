// Package statusapi exposes ndpid's optional HTTP status surface: a JSON
// snapshot of every worker's counters at GET /stats, and a Prometheus
// scrape target at GET /metrics carrying both HTTP request-latency/count
// metrics and the worker counters. It is only bound when an API address is
// configured; ndpid runs perfectly well without it.
package statusapi

import (
	"context"
	"net/http"
	"time"

	"github.com/els0r/telemetry/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ndpid/ndpid-go/pkg/worker"
)

const (
	maxMultipartMemory = 32 << 20
	serviceName        = "ndpid"
)

// StatsFunc returns a fresh snapshot of every running worker's counters.
type StatsFunc func() []worker.Stats

// Server is the status HTTP server: a thin gin router plus a
// prometheus.Collector that reads through to StatsFunc on every scrape,
// so metrics never drift from what GET /stats reports.
type Server struct {
	addr      string
	statsFn   StatsFunc
	router    *gin.Engine
	srv       *http.Server
	collector *workerCollector
}

// New builds a status server bound to addr (host:port), sourcing worker
// counters from statsFn on every request. ndpid runs at most one of these
// per process, since the request/worker metrics below register with the
// process-wide default Prometheus registerer.
func New(addr string, statsFn StatsFunc, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	s := &Server{
		addr:      addr,
		statsFn:   statsFn,
		router:    router,
		collector: newWorkerCollector(statsFn),
	}

	// Registers both the generic HTTP request-latency/count middleware and
	// s.collector's worker gauges onto the default registry, then exposes
	// them together at GET /metrics.
	metrics.NewPrometheus(serviceName, "status", s.collector).Register(router)

	router.GET("/stats", s.handleStats)

	return s
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.statsFn())
}

const headerTimeout = 30 * time.Second

// Serve blocks, serving the status API on s.addr.
func (s *Server) Serve() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: headerTimeout,
	}
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the status server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
