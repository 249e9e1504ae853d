package lifecycle

import "time"

// DefaultArrivalWindow is how long the patient has to confirm the
// provider's arrival.
const DefaultArrivalWindow = 5 * time.Minute

// ArrivalWindow is the confirmation window anchored at the arrival mark.
type ArrivalWindow struct {
	OpensAt   time.Time `json:"opens_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func ArrivalWindowFor(arrivedAt time.Time, window time.Duration) ArrivalWindow {
	return ArrivalWindow{OpensAt: arrivedAt, ExpiresAt: arrivedAt.Add(window)}
}

// Expired is true strictly after ExpiresAt; confirming exactly at the
// deadline still succeeds.
func (w ArrivalWindow) Expired(now time.Time) bool {
	return now.After(w.ExpiresAt)
}

// Remaining is the countdown clients display, floored at zero and truncated
// to whole seconds.
func (w ArrivalWindow) Remaining(now time.Time) time.Duration {
	if w.Expired(now) {
		return 0
	}
	return w.ExpiresAt.Sub(now).Truncate(time.Second)
}
