// Package observe provides store.Observer implementations that export action
// telemetry.
//
// Metrics records Prometheus counters and histograms per store and action;
// Tracing opens one OpenTelemetry span per action. Both attach to a store or
// a factory with store.WithObserver:
//
//	reg := prometheus.NewRegistry()
//	todos, err := store.Create(initial, actions,
//	    store.WithObserver(observe.NewMetrics(observe.WithRegistry(reg))),
//	    store.WithObserver(observe.NewTracing(observe.WithTracerName("todos"))),
//	)
package observe
