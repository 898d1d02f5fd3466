package metrics

import "time"

// Item outcomes recorded by RecordItems.
const (
	OutcomeFetched   = "fetched"
	OutcomeStale     = "stale"
	OutcomeEmpty     = "empty"
	OutcomeMatched   = "matched"
	OutcomeDuplicate = "duplicate"
	OutcomeStaged    = "staged"
)

// Cycle results recorded by RecordCycle.
const (
	CycleSuccess = "success"
	CyclePartial = "partial"
	CycleAborted = "aborted"
)

// RecordCycle records the result and duration of a monitoring cycle.
// A success also moves the last-success timestamp forward.
func RecordCycle(result string, duration time.Duration) {
	CyclesTotal.WithLabelValues(result).Inc()
	CycleDuration.Observe(duration.Seconds())
	if result == CycleSuccess {
		LastCycleSuccess.SetToCurrentTime()
	}
}

// RecordSourceFetchError records a failed fetch for a source kind.
func RecordSourceFetchError(kind string) {
	SourceFetchErrors.WithLabelValues(kind).Inc()
}

// RecordSourcePass records the duration of one source pass.
func RecordSourcePass(kind string, duration time.Duration) {
	SourcePassDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordItems adds n items with the given outcome. Zero counts are ignored.
func RecordItems(kind, outcome string, n int) {
	if n <= 0 {
		return
	}
	ItemsTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

// UpdateSourcesActive sets the number of sources visited by a cycle.
func UpdateSourcesActive(count int) {
	SourcesActive.Set(float64(count))
}

// RecordNotification records a notification attempt.
// Result should be one of "sent", "failed", "throttled" or "dropped".
func RecordNotification(channel, result string, duration time.Duration) {
	NotificationsTotal.WithLabelValues(channel, result).Inc()
	if duration > 0 {
		NotificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
	}
}

// RecordBreakerState sets the state gauge of a breaker. state follows the
// gobreaker numbering; to is its name, counted only on transitions.
func RecordBreakerState(name string, state int, to string, transition bool) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	if transition {
		CircuitBreakerTransitions.WithLabelValues(name, to).Inc()
	}
}
