package lifecycle

import (
	"fmt"
	"time"

	"nurse-booking/internal/data/entity"
)

type DenyReason string

const (
	DenyNoSubscription DenyReason = "no_subscription"
	DenyPaused         DenyReason = "status_paused"
	DenyExpired        DenyReason = "status_expired"
	DenyCancelled      DenyReason = "status_cancelled"
	DenyTrialEnded     DenyReason = "trial_ended"
	DenyLimitReached   DenyReason = "limit_reached"
)

// Decision is the admission controller's answer for one provider.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allowed decision, otherwise an *AdmissionError.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &AdmissionError{Reason: d.Reason}
}

// Admit decides whether a provider with this ledger entry may take one more
// booking. sub may be nil when the provider has no subscription.
func Admit(sub *entity.Subscription, now time.Time) Decision {
	if sub == nil {
		return deny(DenyNoSubscription)
	}
	switch sub.Status {
	case entity.SubscriptionPaused:
		return deny(DenyPaused)
	case entity.SubscriptionExpired:
		return deny(DenyExpired)
	case entity.SubscriptionCancelled:
		return deny(DenyCancelled)
	case entity.SubscriptionTrial:
		if sub.TrialEndsAt != nil && now.After(*sub.TrialEndsAt) {
			return deny(DenyTrialEnded)
		}
	case entity.SubscriptionActive:
	default:
		return deny(DenyReason(fmt.Sprintf("status_%s", sub.Status)))
	}
	if sub.BookingLimit != nil && sub.BookingsUsed >= *sub.BookingLimit {
		return deny(DenyLimitReached)
	}
	return allow()
}

// Consume charges one booking against an admitted ledger entry and pauses
// it when the limit is reached. Repositories must perform the same update
// atomically; this is the reference the SQL mirrors.
func Consume(sub *entity.Subscription, now time.Time) error {
	if d := Admit(sub, now); !d.Allowed {
		return d.Err()
	}
	sub.BookingsUsed++
	if sub.BookingLimit != nil && sub.BookingsUsed >= *sub.BookingLimit {
		sub.Status = entity.SubscriptionPaused
	}
	sub.UpdatedAt = now
	return nil
}

// PlanLimits maps plans to their booking caps. A nil value is unlimited.
type PlanLimits map[entity.SubscriptionPlan]*int

// Limit returns the cap for a plan, and false for an unknown plan.
func (p PlanLimits) Limit(plan entity.SubscriptionPlan) (*int, bool) {
	limit, ok := p[plan]
	if !ok {
		return nil, false
	}
	if limit == nil {
		return nil, true
	}
	v := *limit
	return &v, true
}

// ApplyPlan switches the ledger entry to a plan. reset starts a new billing
// cycle; without it usage carries over and the entry pauses again at once
// if the new cap is already met.
func ApplyPlan(sub *entity.Subscription, plan entity.SubscriptionPlan, limit *int, reset bool, now time.Time) {
	sub.Plan = plan
	sub.BookingLimit = limit
	sub.Status = entity.SubscriptionActive
	sub.TrialEndsAt = nil
	if reset {
		sub.BookingsUsed = 0
		sub.CurrentPeriodStart = now
	}
	if limit != nil && sub.BookingsUsed >= *limit {
		sub.Status = entity.SubscriptionPaused
	}
	sub.UpdatedAt = now
}
