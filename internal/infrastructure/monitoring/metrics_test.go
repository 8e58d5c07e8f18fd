package monitoring

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMetricsCollector_GenerationMetrics(t *testing.T) {
	m := NewMetricsCollector(nil, zaptest.NewLogger(t))

	m.ObserveAttempt("http_other_error", 120*time.Millisecond)
	m.ObserveAttempt("http_other_error", 80*time.Millisecond)
	m.ObserveAttempt("success", 200*time.Millisecond)
	m.ObserveBackoff(1500 * time.Millisecond)
	m.ObserveGeneration("success", time.Second)
	m.IncRejected()
	m.SetInFlight(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("http_other_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedSubmissions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generationInFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.backoffSeconds))

	m.SetInFlight(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.generationInFlight))
}

func TestMetricsCollector_HTTPMiddleware(t *testing.T) {
	m := NewMetricsCollector(nil, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Use(m.HTTPMiddleware)
	r.Get("/api/v1/recipes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/v1/recipes/1", "/api/v1/recipes/2", "/implicit"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/recipes/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/implicit", "200")))
}

func TestMetricsCollector_GinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetricsCollector(nil, zaptest.NewLogger(t))

	engine := gin.New()
	engine.Use(m.GinMiddleware())
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/healthz", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestMetricsCollector_Handler(t *testing.T) {
	m := NewMetricsCollector(nil, zaptest.NewLogger(t))
	m.ObserveGeneration("schema_violation", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `recipeforge_generations_total{outcome="schema_violation"} 1`)
	assert.Contains(t, string(body), "recipeforge_generation_in_flight 0")
}

func TestMetricsCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetricsCollector(nil, nil)
		NewMetricsCollector(nil, nil)
	})
}

func TestMetricsCollector_UptimeCounterStops(t *testing.T) {
	m := NewMetricsCollector(nil, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.StartUptimeCounter(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("uptime counter did not stop")
	}
}
