package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Environment metrics
	ShipsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipyard_ships_total",
			Help: "Total number of ships in the loaded environment by reachability",
		},
		[]string{"status"},
	)

	ServicesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipyard_services_total",
			Help: "Total number of services in the loaded environment",
		},
	)

	ContainersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipyard_containers_total",
			Help: "Total number of container instances by observed state",
		},
		[]string{"state"},
	)

	// Play metrics
	PlaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipyard_plays_total",
			Help: "Total number of plays run, by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	PlayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipyard_play_duration_seconds",
			Help:    "Duration of a play from first layer to last layer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	LayerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipyard_play_layer_duration_seconds",
			Help:    "Duration of a single ordering layer of parallel container actions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// Container action metrics
	ContainersScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipyard_containers_scheduled_total",
			Help: "Total number of container actions dispatched, by action",
		},
		[]string{"action"},
	)

	ContainersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipyard_containers_failed_total",
			Help: "Total number of container actions that failed, by action and error kind",
		},
		[]string{"action", "kind"},
	)

	ContainerActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipyard_container_action_duration_seconds",
			Help:    "Duration of a single container action against a ship's Docker daemon",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// Image pull metrics
	ImagePullDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipyard_image_pull_duration_seconds",
			Help:    "Duration of an image pull against a ship's Docker daemon",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"ship"},
	)

	ImagePullsCoalesced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipyard_image_pulls_coalesced_total",
			Help: "Total number of image pulls skipped because an identical pull was already in flight",
		},
		[]string{"ship"},
	)

	// Lifecycle check metrics
	LifecycleCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipyard_lifecycle_check_duration_seconds",
			Help:    "Duration of a lifecycle check from first attempt to success or timeout",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"check_type"},
	)

	LifecycleCheckAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipyard_lifecycle_check_attempts_total",
			Help: "Total number of individual lifecycle check attempts, by type and result",
		},
		[]string{"check_type", "result"},
	)

	// Audit metrics
	AuditSinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipyard_audit_sink_errors_total",
			Help: "Total number of audit events a sink failed to deliver",
		},
		[]string{"sink"},
	)
)

func init() {
	// Register environment metrics
	prometheus.MustRegister(ShipsTotal)
	prometheus.MustRegister(ServicesTotal)
	prometheus.MustRegister(ContainersTotal)

	// Register play metrics
	prometheus.MustRegister(PlaysTotal)
	prometheus.MustRegister(PlayDuration)
	prometheus.MustRegister(LayerDuration)

	// Register container action metrics
	prometheus.MustRegister(ContainersScheduled)
	prometheus.MustRegister(ContainersFailed)
	prometheus.MustRegister(ContainerActionDuration)

	// Register image pull metrics
	prometheus.MustRegister(ImagePullDuration)
	prometheus.MustRegister(ImagePullsCoalesced)

	// Register lifecycle check metrics
	prometheus.MustRegister(LifecycleCheckDuration)
	prometheus.MustRegister(LifecycleCheckAttempts)

	// Register audit metrics
	prometheus.MustRegister(AuditSinkErrors)
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
