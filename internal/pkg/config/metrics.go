package config

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics tracks configuration loads of one component:
//
//	feedwatch_<component>_config_load_timestamp
//	feedwatch_<component>_config_validation_errors_total{field}
//	feedwatch_<component>_config_fallbacks_total{field}
//	feedwatch_<component>_config_fallback_active
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge

	fallbacks int
}

// NewConfigMetrics registers the metrics with reg, or with the default
// registry when reg is nil.
func NewConfigMetrics(component string, reg prometheus.Registerer) *ConfigMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	sub := component + "_config"

	return &ConfigMetrics{
		LoadTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "feedwatch", Subsystem: sub, Name: "load_timestamp",
			Help: "Unix timestamp of the last configuration load",
		}),
		ValidationErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedwatch", Subsystem: sub, Name: "validation_errors_total",
			Help: "Configuration values rejected by validation",
		}, []string{"field"}),
		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedwatch", Subsystem: sub, Name: "fallbacks_total",
			Help: "Configuration values replaced by their default",
		}, []string{"field"}),
		FallbackActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "feedwatch", Subsystem: sub, Name: "fallback_active",
			Help: "1 if any configuration fallback is active",
		}),
	}
}

func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback counts a fallback for field and raises FallbackActive.
func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
	m.fallbacks++
	m.FallbackActive.Set(1)
}

// ResetFallbacks clears FallbackActive before a fresh load.
func (m *ConfigMetrics) ResetFallbacks() {
	m.fallbacks = 0
	m.FallbackActive.Set(0)
}

// Fallbacks returns the number of fallbacks since the last reset.
func (m *ConfigMetrics) Fallbacks() int {
	return m.fallbacks
}

// Track logs and counts a fallback in r, then returns the value to use.
func Track[T any](m *ConfigMetrics, logger *slog.Logger, field string, r Result[T]) T {
	if r.FallbackApplied {
		m.RecordValidationError(field)
		m.RecordFallback(field)
		logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", r.Warning))
	}
	return r.Value
}
