package utils

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateBookingCode creates a human-readable booking reference.
// Format: NB-YYYYMMDD-HHMMSS-NNNN
func GenerateBookingCode(now time.Time) string {
	return fmt.Sprintf("NB-%s-%s-%04d",
		now.Format("20060102"),
		now.Format("150405"),
		rand.IntN(10000),
	)
}
