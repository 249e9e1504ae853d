package lifecycle

import (
	"time"

	"nurse-booking/internal/data/entity"
)

const (
	OpAccept         = "accept"
	OpCancel         = "cancel"
	OpMarkArrival    = "mark_arrival"
	OpConfirmArrival = "confirm_arrival"
	OpStartService   = "start_service"
	OpStopService    = "stop_service"
)

// DeriveStatus computes the status from the timestamp set. Cancellation is
// the only fact not implied by the other timestamps.
func DeriveStatus(b *entity.Booking) entity.BookingStatus {
	switch {
	case b.CancelledAt != nil:
		return entity.BookingStatusCancelled
	case b.ServiceEndedAt != nil:
		return entity.BookingStatusCompleted
	case b.ServiceStartedAt != nil:
		return entity.BookingStatusInProgress
	case b.AcceptedAt != nil:
		return entity.BookingStatusConfirmed
	default:
		return entity.BookingStatusPending
	}
}

// Machine applies booking transitions. Every method mutates b only when it
// returns nil; on error b is untouched.
type Machine struct {
	ArrivalWindow time.Duration
}

func NewMachine(arrivalWindow time.Duration) *Machine {
	if arrivalWindow <= 0 {
		arrivalWindow = DefaultArrivalWindow
	}
	return &Machine{ArrivalWindow: arrivalWindow}
}

// Accept: PENDING -> CONFIRMED. Quota is checked by the caller.
func (m *Machine) Accept(b *entity.Booking, now time.Time) error {
	if DeriveStatus(b) != entity.BookingStatusPending {
		return refuse(OpAccept, b, "only pending bookings can be accepted")
	}
	t := now
	b.AcceptedAt = &t
	m.settle(b, now)
	return nil
}

// Cancel only from PENDING / CONFIRMED
func (m *Machine) Cancel(b *entity.Booking, now time.Time, by entity.UserRole, reason string) error {
	switch DeriveStatus(b) {
	case entity.BookingStatusPending, entity.BookingStatusConfirmed:
	default:
		return refuse(OpCancel, b, "only pending or confirmed bookings can be cancelled")
	}
	t := notBefore(now, b.AcceptedAt, b.NurseArrivedAt, b.ArrivalConfirmedAt)
	b.CancelledAt = &t
	role := by
	b.CancelledBy = &role
	if reason != "" {
		r := reason
		b.CancelReason = &r
	}
	m.settle(b, now)
	return nil
}

func (m *Machine) MarkArrival(b *entity.Booking, now time.Time) error {
	if DeriveStatus(b) != entity.BookingStatusConfirmed {
		return refuse(OpMarkArrival, b, "arrival can only be marked on a confirmed booking")
	}
	if b.NurseArrivedAt != nil {
		return refuse(OpMarkArrival, b, "arrival already marked")
	}
	t := notBefore(now, b.AcceptedAt)
	b.NurseArrivedAt = &t
	m.settle(b, now)
	return nil
}

// ConfirmArrival is the patient's side of the handshake. Expiry is evaluated
// here, against the same window ArrivalWindowFor reports to clients.
func (m *Machine) ConfirmArrival(b *entity.Booking, now time.Time) error {
	if DeriveStatus(b) != entity.BookingStatusConfirmed {
		return refuse(OpConfirmArrival, b, "arrival can only be confirmed on a confirmed booking")
	}
	if b.NurseArrivedAt == nil {
		return refuse(OpConfirmArrival, b, "provider has not marked arrival")
	}
	if b.ArrivalConfirmedAt != nil {
		return refuse(OpConfirmArrival, b, "arrival already confirmed")
	}
	if ArrivalWindowFor(*b.NurseArrivedAt, m.ArrivalWindow).Expired(now) {
		return ErrConfirmationExpired
	}
	t := notBefore(now, b.NurseArrivedAt)
	b.ArrivalConfirmedAt = &t
	m.settle(b, now)
	return nil
}

func (m *Machine) StartService(b *entity.Booking, now time.Time) error {
	if b.ServiceStartedAt != nil {
		return refuse(OpStartService, b, "service already started")
	}
	if DeriveStatus(b) != entity.BookingStatusConfirmed {
		return refuse(OpStartService, b, "service can only start on a confirmed booking")
	}
	if b.ArrivalConfirmedAt == nil {
		return refuse(OpStartService, b, "arrival has not been confirmed by the patient")
	}
	t := notBefore(now, b.ArrivalConfirmedAt)
	b.ServiceStartedAt = &t
	m.settle(b, now)
	return nil
}

// StopService closes the session and freezes duration and cost.
func (m *Machine) StopService(b *entity.Booking, now time.Time) error {
	if b.ServiceStartedAt == nil {
		return refuse(OpStopService, b, "service has not started")
	}
	if b.ServiceEndedAt != nil {
		return refuse(OpStopService, b, "service already stopped")
	}
	if DeriveStatus(b) != entity.BookingStatusInProgress {
		return refuse(OpStopService, b, "service can only stop on an in-progress booking")
	}
	t := notBefore(now, b.ServiceStartedAt)
	minutes := BilledMinutes(t.Sub(*b.ServiceStartedAt))
	cost := Cost(b.HourlyRate, minutes)
	b.ServiceEndedAt = &t
	b.ActualDuration = &minutes
	b.ActualCost = &cost
	m.settle(b, now)
	return nil
}

func (m *Machine) settle(b *entity.Booking, now time.Time) {
	b.Status = DeriveStatus(b)
	b.UpdatedAt = now
}

// notBefore keeps timestamps ordered when the clock steps back.
func notBefore(now time.Time, earlier ...*time.Time) time.Time {
	t := now
	for _, e := range earlier {
		if e != nil && e.After(t) {
			t = *e
		}
	}
	return t
}
