package importing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_import_rows_total",
		Help: "Rows processed by import batches, by outcome.",
	}, []string{"import_type", "outcome"})

	importBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_import_batches_total",
		Help: "Import batches handled, by result.",
	}, []string{"import_type", "result"})

	importSessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_import_session_transitions_total",
		Help: "Import session status transitions.",
	}, []string{"import_type", "status"})

	importBatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_import_batch_duration_seconds",
		Help:    "Time spent processing one import batch.",
		Buckets: prometheus.DefBuckets,
	}, []string{"import_type"})
)
