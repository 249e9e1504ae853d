package usecase

import (
	"errors"
	"fmt"

	"nurse-booking/internal/lifecycle"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a subscription change does not fit the
	// entry's current status.
	ErrConflict = errors.New("conflict")

	ErrBookingNotFound      = fmt.Errorf("booking %w", lifecycle.ErrNotFound)
	ErrSubscriptionNotFound = fmt.Errorf("subscription %w", lifecycle.ErrNotFound)
	ErrProviderNotFound     = fmt.Errorf("provider %w", lifecycle.ErrNotFound)
)

// ValidationError carries per-field messages for the client.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, utils.FormatValidationErrors(e.Fields))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, &ValidationError{Fields: map[string]string{field: "Must be a valid UUID"}}
	}
	return id, nil
}
