package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StepsTotal tracks the current count of steps in each status, refreshed
	// by a Collector on its own polling interval.
	StepsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cstarorch_steps_total",
			Help: "Current number of steps by status",
		},
		[]string{"status"},
	)

	StepsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cstarorch_steps_scheduled_total",
			Help: "Total number of steps handed to a launcher",
		},
	)

	StepsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cstarorch_steps_completed_total",
			Help: "Total number of steps that reached Done",
		},
	)

	StepsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cstarorch_steps_failed_total",
			Help: "Total number of steps that reached Failed",
		},
	)

	StepsAborted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cstarorch_steps_aborted_total",
			Help: "Total number of steps that reached Aborted",
		},
	)

	ActiveTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cstarorch_active_tasks",
			Help: "Number of tasks currently tracked as non-terminal by the launcher",
		},
	)

	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cstarorch_scheduling_latency_seconds",
			Help:    "Time from a step becoming ready to its task being launched",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cstarorch_reconciliation_duration_seconds",
			Help:    "Time taken for one orchestrator reconciliation loop iteration",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cstarorch_reconciliation_cycles_total",
			Help: "Total number of reconciliation loop iterations completed",
		},
	)

	AllocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cstarorch_allocation_duration_seconds",
			Help:    "Time taken to acquire a batch backend allocation",
			Buckets: prometheus.DefBuckets,
		},
	)

	StatusProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cstarorch_status_probe_duration_seconds",
			Help:    "Time taken for a launcher Update call, by launcher kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"launcher"},
	)
)

func init() {
	prometheus.MustRegister(StepsTotal)
	prometheus.MustRegister(StepsScheduled)
	prometheus.MustRegister(StepsCompleted)
	prometheus.MustRegister(StepsFailed)
	prometheus.MustRegister(StepsAborted)
	prometheus.MustRegister(ActiveTasks)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(AllocationDuration)
	prometheus.MustRegister(StatusProbeDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
