package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition can leave the status.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type ServiceType string

const (
	ServiceHomeVisit    ServiceType = "home_visit"
	ServiceWoundCare    ServiceType = "wound_care"
	ServiceElderlyCare  ServiceType = "elderly_care"
	ServicePostSurgery  ServiceType = "post_surgery"
	ServiceConsultation ServiceType = "consultation"
	ServiceInjection    ServiceType = "injection"
)

// Booking is a single engagement between one patient and one provider.
// Status is derived from the timestamp set; see lifecycle.DeriveStatus.
type Booking struct {
	Base
	BookingCode string        `db:"booking_code"`
	ProviderID  uuid.UUID     `db:"provider_id"`
	PatientID   uuid.UUID     `db:"patient_id"`
	ServiceType ServiceType   `db:"service_type"`
	ScheduledAt time.Time     `db:"scheduled_at"`
	Address     string        `db:"address"`
	Notes       *string       `db:"notes"`
	HourlyRate  float64       `db:"hourly_rate"`
	Status      BookingStatus `db:"status"`

	AcceptedAt         *time.Time `db:"accepted_at"`
	NurseArrivedAt     *time.Time `db:"nurse_arrived_at"`
	ArrivalConfirmedAt *time.Time `db:"arrival_confirmed_at"`
	ServiceStartedAt   *time.Time `db:"service_started_at"`
	ServiceEndedAt     *time.Time `db:"service_ended_at"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	CancelledBy        *UserRole  `db:"cancelled_by"`
	CancelReason       *string    `db:"cancel_reason"`

	ActualDuration *int     `db:"actual_duration"`
	ActualCost     *float64 `db:"actual_cost"`
}

// Clone returns a deep copy so a transition can be applied without touching
// the loaded record until it is persisted.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Notes = cloneString(b.Notes)
	c.AcceptedAt = cloneTime(b.AcceptedAt)
	c.NurseArrivedAt = cloneTime(b.NurseArrivedAt)
	c.ArrivalConfirmedAt = cloneTime(b.ArrivalConfirmedAt)
	c.ServiceStartedAt = cloneTime(b.ServiceStartedAt)
	c.ServiceEndedAt = cloneTime(b.ServiceEndedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	c.CancelReason = cloneString(b.CancelReason)
	if b.CancelledBy != nil {
		role := *b.CancelledBy
		c.CancelledBy = &role
	}
	if b.ActualDuration != nil {
		d := *b.ActualDuration
		c.ActualDuration = &d
	}
	if b.ActualCost != nil {
		cost := *b.ActualCost
		c.ActualCost = &cost
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
