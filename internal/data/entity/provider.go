package entity

import (
	"time"

	"github.com/google/uuid"
)

// Provider is the nurse/doctor profile the booking engine reads. The on-duty
// flag here is the single authoritative availability record.
type Provider struct {
	UserID        uuid.UUID  `db:"user_id"`
	Profession    UserRole   `db:"profession"`
	HourlyRate    float64    `db:"hourly_rate"`
	IsVerified    bool       `db:"is_verified"`
	OnDuty        bool       `db:"on_duty"`
	DutyChangedAt *time.Time `db:"duty_changed_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
