package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGeneration(t *testing.T) {
	c := NewCollector()

	c.ObserveGeneration(2*time.Second, nil)
	c.ObserveGeneration(time.Second, errors.New("boom"))
	c.ObserveGeneration(time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generationsTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.generationDuration))
}

func TestObserveConversionAndFetch(t *testing.T) {
	c := NewCollector()

	c.ObserveConversion(nil)
	c.ObserveImageFetch(errors.New("unreachable"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.conversionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.imageFetchesTotal.WithLabelValues("error")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector()
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/download/{job_id}/{format}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/download/abc/glb", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	got := c.httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/download/{job_id}/{format}", "404")
	assert.Equal(t, 1.0, testutil.ToFloat64(got))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveGeneration(time.Second, nil)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "meshgen_generations_total")
	assert.Contains(t, string(body), "go_goroutines")
}
