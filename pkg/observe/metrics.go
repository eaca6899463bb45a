package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-go/trackstore/pkg/store"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "trackstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for action duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "trackstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Action outcome label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusPanic = "panic"
)

// Metrics is a store.Observer that records Prometheus metrics.
//
// Metrics collected:
//   - trackstore_actions_total: Counter of actions by store, action and status
//   - trackstore_action_duration_seconds: Histogram of action duration by store and action
//   - trackstore_changed_paths_total: Counter of changed paths flushed by store
//   - trackstore_notifications_total: Counter of subscriber notifications by store
//   - trackstore_subscribers: Gauge of subscribers with at least one dependency, by store
//   - trackstore_dependency_edges: Gauge of tracked paths, by store
//
// Every call to NewMetrics registers a new set of collectors, so registering
// twice against the same registry panics.
type Metrics struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	changedPaths   *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	subscribers    *prometheus.GaugeVec
	edges          *prometheus.GaugeVec
}

// NewMetrics creates the Prometheus observer and registers its collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "actions_total",
			Help:        "Total number of store actions run",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "action", "status"}),

		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "action_duration_seconds",
			Help:        "Action duration in seconds, including the flush",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store", "action"}),

		changedPaths: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "changed_paths_total",
			Help:        "Total number of changed paths flushed",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of subscribers marked dirty",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Number of subscribers with at least one dependency",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		edges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dependency_edges",
			Help:        "Number of tracked (node, key) paths",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),
	}
}

// BeforeAction implements store.Observer.
func (m *Metrics) BeforeAction(ctx context.Context, _, _ string) context.Context {
	return ctx
}

// AfterAction implements store.Observer.
func (m *Metrics) AfterAction(_ context.Context, ev store.ActionEvent) {
	m.actionsTotal.WithLabelValues(ev.StoreID, ev.Action, status(ev)).Inc()
	m.actionDuration.WithLabelValues(ev.StoreID, ev.Action).Observe(ev.Duration.Seconds())
	m.changedPaths.WithLabelValues(ev.StoreID).Add(float64(ev.Flush.Changed))
	m.notifications.WithLabelValues(ev.StoreID).Add(float64(ev.Flush.Notified))

	if ev.Store != nil {
		tr := ev.Store.Container().Tracker()
		m.subscribers.WithLabelValues(ev.StoreID).Set(float64(tr.Subscribers()))
		m.edges.WithLabelValues(ev.StoreID).Set(float64(tr.Edges()))
	}
}

func status(ev store.ActionEvent) string {
	switch {
	case ev.Panicked:
		return StatusPanic
	case ev.Err != nil:
		return StatusError
	}
	return StatusOK
}
