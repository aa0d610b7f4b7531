package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var pipelineFiles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pipeline_files_total",
	Help: "Exam files handled by the data pipeline, labelled by stage and outcome",
}, []string{"stage", "outcome"})

var metadataFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "metadata_fallback_total",
	Help: "Chunks or queries that were tagged with fallback metadata",
}, []string{"kind"})

var semanticCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "semantic_cache_lookups_total",
	Help: "Semantic cache lookups labelled by result",
}, []string{"result"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

// CapturePipelineFile counts one file leaving a pipeline stage (parse, chunk, embed)
// with outcome done, skipped or failed.
func CapturePipelineFile(stage string, outcome string) {
	pipelineFiles.WithLabelValues(stage, outcome).Inc()
}

func CaptureMetadataFallback(kind string) {
	metadataFallbacks.WithLabelValues(kind).Inc()
}

func CaptureSemanticCache(hit bool) {
	if hit {
		semanticCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	semanticCacheLookups.WithLabelValues("miss").Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "job_duration_seconds",
	Help:    "Time a worker spent on a job, labelled by job type and final status.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 180},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
