package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/bookings", "200", 0.5)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/bookings", "200"))
	assert.Equal(t, float64(1), count)
}

func TestRecordHTTPRequestMultiple(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/auth/login", "401", 0.05)

	successCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "200"))
	failCount := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/auth/login", "401"))

	assert.Equal(t, float64(2), successCount)
	assert.Equal(t, float64(1), failCount)
}

func TestRecordBooking(t *testing.T) {
	BookingsTotal.Reset()

	RecordBooking("created")
	RecordBooking("confirmed")
	RecordBooking("confirmed")

	created := testutil.ToFloat64(BookingsTotal.WithLabelValues("created"))
	confirmed := testutil.ToFloat64(BookingsTotal.WithLabelValues("confirmed"))

	assert.Equal(t, float64(1), created)
	assert.Equal(t, float64(2), confirmed)
}

func TestRecordDiscount(t *testing.T) {
	DiscountsAppliedTotal.Reset()

	RecordDiscount("CREDIT", "ORIGINAL_BOOKING")
	RecordDiscount("CREDIT", "ORIGINAL_BOOKING")
	RecordDiscount("PASS", "ORIGINAL_BOOKING")
	RecordDiscount("PROMO_CODE", "RESCHEDULE")

	credit := testutil.ToFloat64(DiscountsAppliedTotal.WithLabelValues("CREDIT", "ORIGINAL_BOOKING"))
	pass := testutil.ToFloat64(DiscountsAppliedTotal.WithLabelValues("PASS", "ORIGINAL_BOOKING"))
	promo := testutil.ToFloat64(DiscountsAppliedTotal.WithLabelValues("PROMO_CODE", "RESCHEDULE"))

	assert.Equal(t, float64(2), credit)
	assert.Equal(t, float64(1), pass)
	assert.Equal(t, float64(1), promo)
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("booking_confirmation", "sent")
	RecordNotification("booking_confirmation", "failed")
	RecordNotification("cancellation", "sent")

	sent := testutil.ToFloat64(NotificationsTotal.WithLabelValues("booking_confirmation", "sent"))
	failed := testutil.ToFloat64(NotificationsTotal.WithLabelValues("booking_confirmation", "failed"))
	cancelSent := testutil.ToFloat64(NotificationsTotal.WithLabelValues("cancellation", "sent"))

	assert.Equal(t, float64(1), sent)
	assert.Equal(t, float64(1), failed)
	assert.Equal(t, float64(1), cancelSent)
}

func TestRecordCreditConsumed(t *testing.T) {
	before := testutil.ToFloat64(CreditConsumedTotal)

	RecordCreditConsumed(12.5)
	RecordCreditConsumed(7.5)

	assert.Equal(t, before+20, testutil.ToFloat64(CreditConsumedTotal))
}

func TestNotificationQueueLength(t *testing.T) {
	NotificationQueueLength.Set(10)
	assert.Equal(t, float64(10), testutil.ToFloat64(NotificationQueueLength))

	NotificationQueueLength.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(NotificationQueueLength))
}
