// Package metrics exposes prometheus instrumentation for the credential
// subsystem. Registration happens once on Init; recording before Init is a
// no-op so libraries and tests can stay unaware of the metrics pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authenticationsTotal *prometheus.CounterVec
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter
	rotationsTotal       *prometheus.CounterVec
	resolutionAttempts   *prometheus.CounterVec

	registerOnce sync.Once
)

// Init registers all subsystem metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		authenticationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credkit_authentications_total",
				Help: "Total authentication attempts by result",
			},
			[]string{"result"},
		)

		cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "credkit_auth_cache_hits_total",
			Help: "Total authentication cache hits",
		})

		cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "credkit_auth_cache_misses_total",
			Help: "Total authentication cache misses",
		})

		rotationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credkit_rotations_total",
				Help: "Total token rotations by status",
			},
			[]string{"status"},
		)

		resolutionAttempts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credkit_resolution_attempts_total",
				Help: "Secret source resolution attempts by source and outcome",
			},
			[]string{"source", "outcome"},
		)
	})
}

// RecordAuthentication counts an authentication attempt.
// result is "ok" or "rejected".
func RecordAuthentication(result string) {
	if authenticationsTotal != nil {
		authenticationsTotal.WithLabelValues(result).Inc()
	}
}

// RecordCacheHit counts an auth cache hit.
func RecordCacheHit() {
	if cacheHitsTotal != nil {
		cacheHitsTotal.Inc()
	}
}

// RecordCacheMiss counts an auth cache miss.
func RecordCacheMiss() {
	if cacheMissesTotal != nil {
		cacheMissesTotal.Inc()
	}
}

// RecordRotation counts a rotation. status is one of: ok, failed.
func RecordRotation(status string) {
	if rotationsTotal != nil {
		rotationsTotal.WithLabelValues(status).Inc()
	}
}

// RecordResolutionAttempt counts a source attempt during resolution.
// outcome is one of: ok, not_found, unavailable, invalid.
func RecordResolutionAttempt(source, outcome string) {
	if resolutionAttempts != nil {
		resolutionAttempts.WithLabelValues(source, outcome).Inc()
	}
}
