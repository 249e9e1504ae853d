package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "TRIAL"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Terminal reports whether the ledger entry can no longer admit bookings
// until a new subscription replaces it.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionExpired || s == SubscriptionCancelled
}

type SubscriptionPlan string

const (
	PlanTrial     SubscriptionPlan = "trial"
	PlanBasic     SubscriptionPlan = "basic"
	PlanPro       SubscriptionPlan = "pro"
	PlanUnlimited SubscriptionPlan = "unlimited"
)

// Subscription is the provider's quota ledger entry.
// A nil BookingLimit means unlimited.
type Subscription struct {
	Base
	ProviderID         uuid.UUID          `db:"provider_id"`
	Plan               SubscriptionPlan   `db:"plan"`
	Status             SubscriptionStatus `db:"status"`
	BookingsUsed       int                `db:"bookings_used"`
	BookingLimit       *int               `db:"booking_limit"`
	TrialEndsAt        *time.Time         `db:"trial_ends_at"`
	CurrentPeriodStart time.Time          `db:"current_period_start"`
}

// Unlimited reports whether the plan has no booking cap.
func (s *Subscription) Unlimited() bool {
	return s.BookingLimit == nil
}

// Remaining returns the slots left, or -1 when unlimited.
func (s *Subscription) Remaining() int {
	if s.BookingLimit == nil {
		return -1
	}
	left := *s.BookingLimit - s.BookingsUsed
	if left < 0 {
		return 0
	}
	return left
}
