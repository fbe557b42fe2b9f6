package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwygoda/get/internal/worker"
)

var _ worker.Observer = (*Metrics)(nil)

func TestMetrics_TaskDone(t *testing.T) {
	m := New()

	m.TaskDone("fetch", "succeeded")
	m.TaskDone("fetch", "succeeded")
	m.TaskDone("fetch", "requeued")
	m.TaskDone("discovery", "succeeded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasks.WithLabelValues("fetch", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasks.WithLabelValues("fetch", "requeued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasks.WithLabelValues("discovery", "succeeded")))
}

func TestMetrics_RunDone(t *testing.T) {
	m := New()

	m.RunDone("mangadex", nil)
	m.RunDone("mangadex", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mangadex", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("mangadex", "error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.TaskDone("feeds", "dropped")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `get_tasks_total{outcome="dropped",stage="feeds"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
