package request

import "time"

type CreateBookingRequest struct {
	ProviderID  string    `json:"provider_id" validate:"required,uuid4"`
	ServiceType string    `json:"service_type" validate:"required,oneof=home_visit wound_care elderly_care post_surgery consultation injection"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required,future"`
	Address     string    `json:"address" validate:"required,min=5,max=500"`
	Notes       *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED IN_PROGRESS COMPLETED CANCELLED"`
}
