package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/dockmaster/internal/domain"
)

func TestMetrics_ObserveOperation(t *testing.T) {
	m := NewMetrics()

	m.ObserveOperation("container_recreate", "", 2*time.Second)
	m.ObserveOperation("container_recreate", domain.KindInconsistent, time.Second)
	m.ObserveOperation("compose_create", domain.KindConflict, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("container_recreate", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("container_recreate", string(domain.KindInconsistent))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("compose_create", string(domain.KindConflict))))
	assert.Equal(t, 2, testutil.CollectAndCount(m.OperationDuration))
}

func TestMetrics_ObserveImagePull(t *testing.T) {
	m := NewMetrics()

	m.ObserveImagePull("pulled")
	m.ObserveImagePull("pulled")
	m.ObserveImagePull("local_fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImagePullsTotal.WithLabelValues("pulled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagePullsTotal.WithLabelValues("local_fallback")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.ObserveImagePull("failed")

	assert.Equal(t, 0.0, testutil.ToFloat64(b.ImagePullsTotal.WithLabelValues("failed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveOperation("container_remove", "", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dockmaster_operations_total{operation="container_remove",outcome="success"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
