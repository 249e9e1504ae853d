package response

import (
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/lifecycle"
)

type QuotaStatusResponse struct {
	ProviderID         string                    `json:"provider_id"`
	Plan               entity.SubscriptionPlan   `json:"plan"`
	Status             entity.SubscriptionStatus `json:"status"`
	BookingsUsed       int                       `json:"bookings_used"`
	BookingLimit       *int                      `json:"booking_limit"`
	Remaining          *int                      `json:"remaining"`
	Unlimited          bool                      `json:"unlimited"`
	TrialEndsAt        *time.Time                `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart time.Time                 `json:"current_period_start"`
	CanAccept          bool                      `json:"can_accept"`
	DenyReason         lifecycle.DenyReason      `json:"deny_reason,omitempty"`
}

// SubscriptionToQuota reports the ledger entry together with the admission
// decision a new accept would get right now.
func SubscriptionToQuota(sub *entity.Subscription, now time.Time) QuotaStatusResponse {
	decision := lifecycle.Admit(sub, now)
	resp := QuotaStatusResponse{
		ProviderID:         sub.ProviderID.String(),
		Plan:               sub.Plan,
		Status:             sub.Status,
		BookingsUsed:       sub.BookingsUsed,
		BookingLimit:       sub.BookingLimit,
		Unlimited:          sub.Unlimited(),
		TrialEndsAt:        sub.TrialEndsAt,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CanAccept:          decision.Allowed,
		DenyReason:         decision.Reason,
	}
	if !sub.Unlimited() {
		remaining := sub.Remaining()
		resp.Remaining = &remaining
	}
	return resp
}

type ProviderStatusResponse struct {
	ProviderID    string          `json:"provider_id"`
	Profession    entity.UserRole `json:"profession"`
	IsVerified    bool            `json:"is_verified"`
	OnDuty        bool            `json:"on_duty"`
	DutyChangedAt *time.Time      `json:"duty_changed_at,omitempty"`
}

func ProviderToStatus(p *entity.Provider) ProviderStatusResponse {
	return ProviderStatusResponse{
		ProviderID:    p.UserID.String(),
		Profession:    p.Profession,
		IsVerified:    p.IsVerified,
		OnDuty:        p.OnDuty,
		DutyChangedAt: p.DutyChangedAt,
	}
}
