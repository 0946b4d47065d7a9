package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhub_bookings_total",
			Help: "Total number of bookings by outcome",
		},
		[]string{"status"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhub_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	SeatConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhub_seat_conflicts_total",
			Help: "Total number of rejected seat conflicts",
		},
	)

	DiscountsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhub_discounts_applied_total",
			Help: "Total number of discount ledger entries appended",
		},
		[]string{"discount_type", "action_type"},
	)

	PassConsumptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhub_pass_consumptions_total",
			Help: "Total number of pass uses consumed",
		},
	)

	PassCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhub_pass_compensations_total",
			Help: "Total number of pass consumptions rolled back after a downstream failure",
		},
	)

	CreditConsumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhub_credit_consumed_units_total",
			Help: "Total credit consumed in base currency units",
		},
	)

	CreditGrantsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhub_credit_grants_expired_total",
			Help: "Total number of credit grants expired by the sweeper",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhub_notifications_total",
			Help: "Total number of notifications by type and status",
		},
		[]string{"type", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskhub_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordDiscount(discountType, actionType string) {
	DiscountsAppliedTotal.WithLabelValues(discountType, actionType).Inc()
}

func RecordNotification(notificationType, status string) {
	NotificationsTotal.WithLabelValues(notificationType, status).Inc()
}

func RecordCreditConsumed(amount float64) {
	CreditConsumedTotal.Add(amount)
}
