package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/boxoffice/internal/model"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/predictions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/predictions/{id}", "404"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/predictions/abc", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/predictions/{id}", "404"))
	assert.Equal(t, before+1, after)
	assert.Positive(t, testutil.CollectAndCount(httpRequestDuration))
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestMiddleware_WithoutRouter(t *testing.T) {
	h := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anything", http.NoBody))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "418")))
}

func TestStatusWriter_FirstHeaderWins(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rr, status: http.StatusOK}
	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusCreated, w.status)
}

func TestObservePrediction(t *testing.T) {
	success := testutil.ToFloat64(predictionsTotal.WithLabelValues("success"))
	invalid := testutil.ToFloat64(predictionsTotal.WithLabelValues("invalid_budget"))

	ObservePrediction(model.PredictionResult{
		Outcome:       model.OutcomeSuccess,
		BestCandidate: "Christopher Nolan",
		Score:         90.9,
	})
	ObservePrediction(model.PredictionResult{Outcome: model.OutcomeInvalidBudget})

	assert.Equal(t, success+1, testutil.ToFloat64(predictionsTotal.WithLabelValues("success")))
	assert.Equal(t, invalid+1, testutil.ToFloat64(predictionsTotal.WithLabelValues("invalid_budget")))
	assert.Equal(t, 1, testutil.CollectAndCount(matchScore))
}
