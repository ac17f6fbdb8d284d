package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Жизненный цикл бронирований
	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_booking_transitions_total",
			Help: "Booking transitions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_ledger_entries_total",
			Help: "Escrow ledger entries by type and status",
		},
		[]string{"type", "status"},
	)

	LedgerInvariantViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_ledger_invariant_violations_total",
			Help: "Rejected ledger writes by transaction type",
		},
		[]string{"type"},
	)

	DisputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_disputes_total",
			Help: "Dispute lifecycle events",
		},
		[]string{"event"},
	)

	// Лимиты тарифов
	QuotaDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_quota_decisions_total",
			Help: "Quota checks by counter and decision",
		},
		[]string{"counter", "decision"},
	)

	// Задача обхода подписок
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_subscription_sweep_runs_total",
			Help: "Subscription sweep runs by outcome",
		},
		[]string{"outcome"},
	)

	SweepActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_subscription_sweep_actions_total",
			Help: "Subscription sweep actions by kind",
		},
		[]string{"action"},
	)

	SweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collab_subscription_sweep_duration_seconds",
			Help:    "Duration of a subscription sweep run",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Уведомления
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_notifications_total",
			Help: "Notification deliveries by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)

	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collab_notifications_dropped_total",
			Help: "Notification intents dropped because the queue was full or the dispatcher stopped",
		},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_http_requests_total",
			Help: "HTTP requests by method, route and status class",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collab_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	GoroutinePanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_goroutine_panics_total",
			Help: "Recovered panics in background goroutines",
		},
		[]string{"goroutine"},
	)
)

func RecordBookingTransition(action string, err error) {
	BookingTransitionsTotal.WithLabelValues(action, outcome(err)).Inc()
}

func RecordLedgerEntry(txType, status string) {
	LedgerEntriesTotal.WithLabelValues(txType, status).Inc()
}

func RecordLedgerViolation(txType string) {
	LedgerInvariantViolationsTotal.WithLabelValues(txType).Inc()
}

func RecordDispute(event string) {
	DisputesTotal.WithLabelValues(event).Inc()
}

func RecordQuotaDecision(counter, decision string) {
	QuotaDecisionsTotal.WithLabelValues(counter, decision).Inc()
}

func RecordSweepRun(err error, seconds float64) {
	SweepRunsTotal.WithLabelValues(outcome(err)).Inc()
	SweepDurationSeconds.Observe(seconds)
}

func RecordSweepAction(action string, n int) {
	if n > 0 {
		SweepActionsTotal.WithLabelValues(action).Add(float64(n))
	}
}

func RecordNotification(sink string, err error) {
	NotificationsTotal.WithLabelValues(sink, outcome(err)).Inc()
}

func RecordNotificationDropped() {
	NotificationsDroppedTotal.Inc()
}

func RecordHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(seconds)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func RecordGoroutinePanic(name string) {
	GoroutinePanicsTotal.WithLabelValues(name).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
