// Package metrics exposes the provisioning counters served on the metrics port.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pipelinesProvisionedMetric  = "pipeline_builder_pipelines_provisioned"
	rollbacksMetric             = "pipeline_builder_rollbacks"
	resourcesDeletedMetric      = "pipeline_builder_resources_deleted"
	activeLocksMetric           = "pipeline_builder_active_locks"
	requestDurationMetric       = "pipeline_builder_request_duration_seconds"
	requestDurationBucketMetric = "pipeline_builder_request_duration_seconds_hist"

	outcomeLabel = "outcome"
	kindLabel    = "kind"
	pathLabel    = "path"
	methodLabel  = "method"
)

var (
	nrPipelinesProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: pipelinesProvisionedMetric,
			Help: "The total number of pipeline provisioning attempts by outcome",
		}, []string{outcomeLabel})
	nrRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: rollbacksMetric,
			Help: "The total number of provisioning rollbacks executed",
		})
	nrResourcesDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: resourcesDeletedMetric,
			Help: "The total number of remote resources deleted by kind",
		}, []string{kindLabel})
	resTime = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       requestDurationMetric,
			Help:       "Request duration seconds",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{pathLabel, methodLabel},
	)
	resTimeBucket = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    requestDurationBucketMetric,
			Help:    "Request duration seconds bucket",
			Buckets: DefaultBuckets(),
		},
		[]string{pathLabel, methodLabel},
	)
)

func init() {
	prometheus.MustRegister(resTime)
	prometheus.MustRegister(resTimeBucket)
}

func DefaultBuckets() []float64 {
	return []float64{0.03, 0.1, 0.3, 1, 2, 3, 5, 10}
}

// AddPipelineProvisioned Records one provisioning attempt
func AddPipelineProvisioned(outcome string) {
	nrPipelinesProvisioned.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// AddRollback Records one executed rollback
func AddRollback() {
	nrRollbacks.Inc()
}

// AddResourceDeleted Records one deleted remote resource
func AddResourceDeleted(kind string) {
	nrResourcesDeleted.With(prometheus.Labels{kindLabel: kind}).Inc()
}

// RegisterActiveLocks Exposes the current lock count as a gauge
func RegisterActiveLocks(count func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: activeLocksMetric,
		Help: "The number of currently held editing locks",
	}, count)
}

// AddRequestDuration Add request duration for given endpoint
func AddRequestDuration(path, method string, duration time.Duration) {
	resTime.WithLabelValues(path, method).Observe(duration.Seconds())
	resTimeBucket.WithLabelValues(path, method).Observe(duration.Seconds())
}
