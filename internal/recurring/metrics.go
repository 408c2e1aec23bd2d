package recurring

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var metrics = []prometheus.Collector{
	materializedCount,
	skippedCount,
	templateErrorCount,
}

var materializedCount = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "expenses_materialized_total",
		Help: "How many expenses have been created from recurring templates.",
	},
)

var skippedCount = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "expenses_skipped_total",
		Help: "How many occurrences were already materialized and therefore skipped.",
	},
)

var templateErrorCount = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "template_errors_total",
		Help: "How many templates failed during materialization runs.",
	},
)

// RegisterMetrics registers the engine metrics with the default
// Prometheus registry. Registering twice is not an error.
func RegisterMetrics() error {
	for _, c := range metrics {
		err := prometheus.Register(c)

		are := prometheus.AlreadyRegisteredError{}
		if err != nil && !errors.As(err, &are) {
			return fmt.Errorf("could not register %s with Prometheus", c)
		}
	}

	return nil
}

// UnregisterMetrics unregisters the engine metrics.
//
// This is needed to cleanly exit.
func UnregisterMetrics() bool {
	for _, c := range metrics {
		if ok := prometheus.Unregister(c); !ok {
			return false
		}
	}

	return true
}
