package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_HTTPMetricsMiddleware_PassThrough(t *testing.T) {
	t.Parallel()
	h := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/batches/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func Test_ObserveItem_And_Score(t *testing.T) {
	t.Parallel()
	ObserveItem(true, "", 2*time.Second)
	ObserveItem(false, "extracting", time.Second)
	ObserveMatchScore(85)
	ObserveMatchScore(-1)
	ObserveMatchScore(101)
}
