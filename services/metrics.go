package services

import "github.com/prometheus/client_golang/prometheus"

var (
	diagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnoses_total",
			Help: "Total number of diagnosis requests by outcome.",
		},
		[]string{"outcome"},
	)
	trainingSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_seconds",
			Help:    "Time spent fitting the decision tree.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
	modelCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "model_cache_hits_total",
			Help: "Total number of diagnoses served by a cached model.",
		},
	)
	corruptLogRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagnosis_log_corrupt_rows_total",
			Help: "Total number of diagnosis log rows skipped because their result could not be decoded.",
		},
	)
)

func init() {
	prometheus.MustRegister(diagnosesTotal, trainingSeconds, modelCacheHits, corruptLogRows)
}
