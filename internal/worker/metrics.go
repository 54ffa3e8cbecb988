package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fable_server_tasks_received_total",
			Help: "Total number of generation tasks received.",
		},
	)
	tasksSucceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fable_server_tasks_succeeded_total",
			Help: "Total number of tasks successfully processed.",
		},
	)
	tasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fable_server_tasks_failed_total",
			Help: "Total number of tasks failed, partitioned by failure reason.",
		},
		[]string{"reason"},
	)
	taskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fable_server_task_duration_seconds",
			Help:    "Histogram of end-to-end generation task durations.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	storiesNarrated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fable_server_stories_narrated_total",
			Help: "Stories with narration outcome, partitioned by result.",
		},
		[]string{"result"},
	)
)

// MetricsIncrementTaskReceived увеличивает счетчик полученных задач.
func MetricsIncrementTaskReceived() {
	tasksReceived.Inc()
}

// MetricsIncrementTaskSucceeded увеличивает счетчик успешных задач.
func MetricsIncrementTaskSucceeded() {
	tasksSucceeded.Inc()
}

// MetricsIncrementTaskFailed увеличивает счетчик неудачных задач с причиной.
func MetricsIncrementTaskFailed(reason string) {
	tasksFailed.With(prometheus.Labels{"reason": reason}).Inc()
}

// MetricsObserveTaskDuration записывает длительность обработки задачи.
func MetricsObserveTaskDuration(seconds float64) {
	taskDuration.Observe(seconds)
}

// MetricsRecordNarration записывает исход озвучки (success/failed/skipped).
func MetricsRecordNarration(result string) {
	storiesNarrated.With(prometheus.Labels{"result": result}).Inc()
}
