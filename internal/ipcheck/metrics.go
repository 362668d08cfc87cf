package ipcheck

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ipintel"

var (
	probesTotal        *prometheus.CounterVec
	stageFailuresTotal *prometheus.CounterVec
	lookupDuration     *prometheus.HistogramVec
	metricsOnce        sync.Once
)

// initMetrics registers the lookup metrics once per process.
// Tests get an isolated registry so parallel packages do not collide.
func initMetrics() {
	metricsOnce.Do(func() {
		var registry prometheus.Registerer = prometheus.DefaultRegisterer
		if testing.Testing() {
			registry = prometheus.NewRegistry()
		}

		probesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dnsbl",
			Name:      "probes_total",
			Help:      "DNSBL probes by zone and outcome.",
		}, []string{"zone", "status"})

		stageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "asn",
			Name:      "stage_failures_total",
			Help:      "Team Cymru pipeline failures by stage.",
		}, []string{"stage"})

		lookupDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of complete lookups by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})

		registry.MustRegister(probesTotal, stageFailuresTotal, lookupDuration)
	})
}

func incProbe(zone string, status string) {
	if probesTotal != nil {
		probesTotal.WithLabelValues(zone, status).Inc()
	}
}

func incStageFailure(stage string) {
	if stageFailuresTotal != nil {
		stageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

func observeLookup(operation string, start time.Time) {
	if lookupDuration != nil {
		lookupDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
