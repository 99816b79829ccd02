package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/boxoffice/internal/model"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "boxoffice",
			Name:      "predictions_total",
			Help:      "Total number of prediction calls by outcome",
		},
		[]string{"outcome"},
	)

	matchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "boxoffice",
			Name:      "match_score",
			Help:      "Best director match score per prediction",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// ObservePrediction counts a prediction result and, when a candidate was
// scored, records its match score.
func ObservePrediction(res model.PredictionResult) {
	predictionsTotal.WithLabelValues(string(res.Outcome)).Inc()
	if res.BestCandidate != "" {
		matchScore.Observe(res.Score)
	}
}
