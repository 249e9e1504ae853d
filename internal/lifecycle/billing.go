package lifecycle

import (
	"math"
	"time"

	"nurse-booking/internal/data/entity"
)

// BilledMinutes rounds a session length up to whole minutes; a partial
// minute is billed as a full one.
func BilledMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

// Cost prices minutes at the hourly rate, rounded half up to the nearest
// whole currency unit. Rates carry two decimals, so the sum runs in cents.
func Cost(hourlyRate float64, minutes int) float64 {
	if minutes <= 0 || hourlyRate <= 0 {
		return 0
	}
	cents := int64(math.Round(hourlyRate * 100))
	// cents*minutes/6000 is the cost in units; +3000 rounds half up
	return float64((cents*int64(minutes) + 3000) / 6000)
}

// SessionEstimate is the read-only projection of a running session.
type SessionEstimate struct {
	ElapsedMinutes int     `json:"elapsed_minutes"`
	EstimatedCost  float64 `json:"estimated_cost"`
	Running        bool    `json:"running"`
}

// EstimateSession projects the cost of the session as of now. Once the
// session is stopped it returns the frozen figures.
func EstimateSession(b *entity.Booking, now time.Time) (SessionEstimate, bool) {
	if b.ServiceStartedAt == nil {
		return SessionEstimate{}, false
	}
	if b.ServiceEndedAt != nil && b.ActualDuration != nil && b.ActualCost != nil {
		return SessionEstimate{ElapsedMinutes: *b.ActualDuration, EstimatedCost: *b.ActualCost}, true
	}
	minutes := BilledMinutes(now.Sub(*b.ServiceStartedAt))
	return SessionEstimate{
		ElapsedMinutes: minutes,
		EstimatedCost:  Cost(b.HourlyRate, minutes),
		Running:        true,
	}, true
}
