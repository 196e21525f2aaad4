package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/attendly/ticketing/pkg/telemetry"
)

var (
	// Registration counters
	RegistrationsReserved  *telemetry.Counter
	RegistrationsConfirmed *telemetry.Counter
	RegistrationsExpired   *telemetry.Counter
	RegistrationsFailed    *telemetry.Counter
	RegistrationsCancelled *telemetry.Counter
	CheckIns               *telemetry.Counter

	// Error tracking counters
	ErrorsTotal       *telemetry.Counter
	SlowRequestsTotal *telemetry.Counter

	// Histograms
	ReservationDuration *telemetry.Histogram
	RequestDuration     *telemetry.Histogram

	// Gauges
	ActiveReservations *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all registration metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	RegistrationsReserved, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_reservations_total",
		Description: "Total number of ticket reservations created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RegistrationsConfirmed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_confirmations_total",
		Description: "Total number of registrations confirmed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RegistrationsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_expirations_total",
		Description: "Total number of expired reservations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RegistrationsFailed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_failures_total",
		Description: "Total number of failed registrations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RegistrationsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_cancellations_total",
		Description: "Total number of cancelled registrations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CheckIns, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_checkins_total",
		Description: "Total number of attendee check-ins",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	// Duration from reservation to confirmation
	ReservationDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "registration_reservation_duration_seconds",
		Description: "Duration from reservation to confirmation",
		Unit:        "s",
	}, []float64{1, 5, 10, 30, 60, 120, 300, 600, 900})
	if err != nil {
		return err
	}

	// Request duration histogram for latency tracking (p50, p90, p99)
	RequestDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "registration_request_duration_seconds",
		Description: "HTTP request duration in seconds",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})
	if err != nil {
		return err
	}

	ErrorsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_errors_total",
		Description: "Total number of errors by type",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	SlowRequestsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_slow_requests_total",
		Description: "Total number of slow requests (>1s)",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ActiveReservations, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "registration_active_reservations",
		Description: "Current number of active (pending) reservations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordReservation records a reservation metric
func RecordReservation(ctx context.Context, eventID, tierID string, quantity int) {
	if RegistrationsReserved != nil {
		RegistrationsReserved.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("tier_id", tierID),
			attribute.Int("quantity", quantity),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Inc(ctx)
	}
}

// RecordConfirmation records a registration confirmation metric
func RecordConfirmation(ctx context.Context, eventID string, durationSeconds float64) {
	if RegistrationsConfirmed != nil {
		RegistrationsConfirmed.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if ReservationDuration != nil {
		ReservationDuration.Record(ctx, durationSeconds,
			attribute.String("event_id", eventID),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Dec(ctx)
	}
}

// RecordExpiration records a reservation expiration metric
func RecordExpiration(ctx context.Context, eventID string, count int64) {
	if RegistrationsExpired != nil {
		RegistrationsExpired.Add(ctx, count,
			attribute.String("event_id", eventID),
		)
	}
	if ActiveReservations != nil {
		ActiveReservations.Add(ctx, -count)
	}
}

// RecordFailure records a registration failure metric
func RecordFailure(ctx context.Context, eventID, reason string) {
	if RegistrationsFailed != nil {
		RegistrationsFailed.Inc(ctx,
			attribute.String("event_id", eventID),
			attribute.String("reason", reason),
		)
	}
}

// RecordCancellation records a registration cancellation metric
func RecordCancellation(ctx context.Context, eventID string, wasPending bool) {
	if RegistrationsCancelled != nil {
		RegistrationsCancelled.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
	if wasPending && ActiveReservations != nil {
		ActiveReservations.Dec(ctx)
	}
}

// RecordCheckIn records an attendee check-in metric
func RecordCheckIn(ctx context.Context, eventID string) {
	if CheckIns != nil {
		CheckIns.Inc(ctx,
			attribute.String("event_id", eventID),
		)
	}
}

// RecordError records an error by type and operation
func RecordError(ctx context.Context, errorType, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("error_type", errorType),
			attribute.String("operation", operation),
		)
	}
}

// RecordRequestDuration records HTTP request duration and tracks slow requests
func RecordRequestDuration(ctx context.Context, operation string, durationSeconds float64) {
	if RequestDuration != nil {
		RequestDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
		)
	}
	if durationSeconds > 1.0 && SlowRequestsTotal != nil {
		SlowRequestsTotal.Inc(ctx,
			attribute.String("operation", operation),
		)
	}
}
