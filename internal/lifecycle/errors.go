package lifecycle

import (
	"errors"
	"fmt"

	"nurse-booking/internal/data/entity"
)

var (
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrConfirmationExpired = errors.New("arrival confirmation expired")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
)

// TransitionError describes why an operation was refused for the booking's
// current state. It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Op     string
	Status entity.BookingStatus
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: booking is %s: %s", e.Op, e.Status, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func refuse(op string, b *entity.Booking, reason string) error {
	return &TransitionError{Op: op, Status: DeriveStatus(b), Reason: reason}
}

// AdmissionError carries the denial reason from the admission controller.
// It matches ErrQuotaExceeded with errors.Is.
type AdmissionError struct {
	Reason DenyReason
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Reason)
}

func (e *AdmissionError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
