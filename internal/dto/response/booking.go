package response

import (
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/lifecycle"
)

type BookingResponse struct {
	ID                 string               `json:"id"`
	BookingCode        string               `json:"booking_code"`
	ProviderID         string               `json:"provider_id"`
	PatientID          string               `json:"patient_id"`
	ServiceType        entity.ServiceType   `json:"service_type"`
	ScheduledAt        time.Time            `json:"scheduled_at"`
	Address            string               `json:"address"`
	Notes              *string              `json:"notes,omitempty"`
	HourlyRate         float64              `json:"hourly_rate"`
	Status             entity.BookingStatus `json:"status"`
	AcceptedAt         *time.Time           `json:"accepted_at,omitempty"`
	NurseArrivedAt     *time.Time           `json:"nurse_arrived_at,omitempty"`
	ArrivalConfirmedAt *time.Time           `json:"arrival_confirmed_at,omitempty"`
	ServiceStartedAt   *time.Time           `json:"service_started_at,omitempty"`
	ServiceEndedAt     *time.Time           `json:"service_ended_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy        *entity.UserRole     `json:"cancelled_by,omitempty"`
	CancelReason       *string              `json:"cancel_reason,omitempty"`
	ActualDuration     *int                 `json:"actual_duration,omitempty"`
	ActualCost         *float64             `json:"actual_cost,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`

	ArrivalWindow *ArrivalWindowResponse     `json:"arrival_window,omitempty"`
	Session       *lifecycle.SessionEstimate `json:"session,omitempty"`
}

// ArrivalWindowResponse is the countdown clients render while the patient
// has not yet confirmed the arrival.
type ArrivalWindowResponse struct {
	OpensAt          time.Time `json:"opens_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	SecondsRemaining int       `json:"seconds_remaining"`
	Expired          bool      `json:"expired"`
}

// BookingToResponse maps a booking and computes its live projections as of now.
func BookingToResponse(b *entity.Booking, now time.Time, window time.Duration) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID.String(),
		BookingCode:        b.BookingCode,
		ProviderID:         b.ProviderID.String(),
		PatientID:          b.PatientID.String(),
		ServiceType:        b.ServiceType,
		ScheduledAt:        b.ScheduledAt,
		Address:            b.Address,
		Notes:              b.Notes,
		HourlyRate:         b.HourlyRate,
		Status:             lifecycle.DeriveStatus(b),
		AcceptedAt:         b.AcceptedAt,
		NurseArrivedAt:     b.NurseArrivedAt,
		ArrivalConfirmedAt: b.ArrivalConfirmedAt,
		ServiceStartedAt:   b.ServiceStartedAt,
		ServiceEndedAt:     b.ServiceEndedAt,
		CancelledAt:        b.CancelledAt,
		CancelledBy:        b.CancelledBy,
		CancelReason:       b.CancelReason,
		ActualDuration:     b.ActualDuration,
		ActualCost:         b.ActualCost,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}

	if b.NurseArrivedAt != nil && b.ArrivalConfirmedAt == nil && b.CancelledAt == nil {
		w := lifecycle.ArrivalWindowFor(*b.NurseArrivedAt, window)
		resp.ArrivalWindow = &ArrivalWindowResponse{
			OpensAt:          w.OpensAt,
			ExpiresAt:        w.ExpiresAt,
			SecondsRemaining: int(w.Remaining(now) / time.Second),
			Expired:          w.Expired(now),
		}
	}

	if est, ok := lifecycle.EstimateSession(b, now); ok {
		resp.Session = &est
	}

	return resp
}
