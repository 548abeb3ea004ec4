package statusapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndpid/ndpid-go/pkg/worker"
)

func fixedStats() []worker.Stats {
	return []worker.Stats{
		{ThreadID: 0, PacketsCaptured: 10, PacketsProcessed: 8, ActiveFlows: 2},
		{ThreadID: 1, PacketsCaptured: 5, PacketsProcessed: 5, ActiveFlows: 1, ErrorOrEOF: true},
	}
}

// sharedServer is built once: els0r/telemetry/metrics.NewPrometheus
// registers the request/worker collectors with the process-wide default
// Prometheus registerer, so a second New() in the same test binary would
// panic on duplicate registration.
var (
	sharedServer     *Server
	sharedServerOnce sync.Once
)

func testServer() *Server {
	sharedServerOnce.Do(func() {
		sharedServer = New("127.0.0.1:0", fixedStats, true)
	})
	return sharedServer
}

func TestStatusServer(t *testing.T) {
	s := testServer()

	t.Run("stats endpoint returns snapshot", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got []worker.Stats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
		assert.EqualValues(t, 10, got[0].PacketsCaptured)
		assert.True(t, got[1].ErrorOrEOF)
	})

	t.Run("metrics endpoint exposes per-worker gauges and request metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "ndpid_worker_active_flows")
		assert.Contains(t, body, `thread_id="1"`)
		assert.Contains(t, body, "ndpid_status_requests_total")
	})

	t.Run("shutdown without serve is a noop", func(t *testing.T) {
		assert.NoError(t, s.Shutdown(nil)) //nolint:staticcheck // srv is nil before Serve
	})
}
