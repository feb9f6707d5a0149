package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/negroni/v3"
)

func Test_ResponseLoggerMiddleware_RecordsRequestDuration(t *testing.T) {
	n := negroni.New(NewZerologResponseLoggerMiddleware())
	n.UseHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	n.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/pipelines", nil))

	count, err := testutil.GatherAndCount(prometheus.DefaultGatherer,
		"pipeline_builder_request_duration_seconds",
		"pipeline_builder_request_duration_seconds_hist")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 2)
}

func Test_RequestIdMiddleware_SetsResponseHeader(t *testing.T) {
	n := negroni.New(NewZerologRequestIdMiddleware())
	n.UseHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	recorder := httptest.NewRecorder()
	n.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/pipelines", nil))

	assert.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
}
