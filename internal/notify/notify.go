package notify

import (
	"context"
	"errors"
	"time"

	"nurse-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventType string

const (
	EventBookingCreated   EventType = "booking.created"
	EventBookingAccepted  EventType = "booking.accepted"
	EventBookingCancelled EventType = "booking.cancelled"
	EventArrivalMarked    EventType = "booking.arrival_marked"
	EventArrivalConfirmed EventType = "booking.arrival_confirmed"
	EventServiceStarted   EventType = "booking.service_started"
	EventBookingCompleted EventType = "booking.completed"
)

// Event is a committed booking transition.
type Event struct {
	Type        EventType            `json:"type"`
	BookingID   uuid.UUID            `json:"booking_id"`
	BookingCode string               `json:"booking_code"`
	ProviderID  uuid.UUID            `json:"provider_id"`
	PatientID   uuid.UUID            `json:"patient_id"`
	Status      entity.BookingStatus `json:"status"`
	ActorRole   entity.UserRole      `json:"actor_role"`
	OccurredAt  time.Time            `json:"occurred_at"`

	// Set only on the events where they are meaningful.
	ArrivalExpiresAt *time.Time `json:"arrival_expires_at,omitempty"`
	ActualDuration   *int       `json:"actual_duration,omitempty"`
	ActualCost       *float64   `json:"actual_cost,omitempty"`
	CancelReason     *string    `json:"cancel_reason,omitempty"`
}

func NewEvent(t EventType, b *entity.Booking, actor entity.UserRole, at time.Time) Event {
	return Event{
		Type:           t,
		BookingID:      b.ID,
		BookingCode:    b.BookingCode,
		ProviderID:     b.ProviderID,
		PatientID:      b.PatientID,
		Status:         b.Status,
		ActorRole:      actor,
		OccurredAt:     at,
		ActualDuration: b.ActualDuration,
		ActualCost:     b.ActualCost,
		CancelReason:   b.CancelReason,
	}
}

// Dispatcher delivers committed events. Errors are logged by the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

type logDispatcher struct {
	log *zap.Logger
}

// NewLogDispatcher only records events. Used when no channel is configured.
func NewLogDispatcher(log *zap.Logger) Dispatcher {
	return &logDispatcher{log: log.With(zap.String("notifier", "log"))}
}

func (d *logDispatcher) Dispatch(_ context.Context, event Event) error {
	d.log.Info("Booking event",
		zap.String("type", string(event.Type)),
		zap.String("booking_id", event.BookingID.String()),
		zap.String("status", string(event.Status)),
	)
	return nil
}

type multiDispatcher []Dispatcher

// Multi fans out to every dispatcher and joins the errors.
func Multi(dispatchers ...Dispatcher) Dispatcher {
	var ds multiDispatcher
	for _, d := range dispatchers {
		if d != nil {
			ds = append(ds, d)
		}
	}
	return ds
}

func (m multiDispatcher) Dispatch(ctx context.Context, event Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
