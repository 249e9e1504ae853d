package adaptor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/usecase"
	"nurse-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var resp utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{
			name:    "validation",
			err:     &usecase.ValidationError{Fields: map[string]string{"Address": "This field is required"}},
			code:    http.StatusBadRequest,
			message: "Validation failed",
		},
		{
			name:    "forbidden",
			err:     fmt.Errorf("accept booking x: %w", lifecycle.ErrUnauthorized),
			code:    http.StatusForbidden,
			message: "You are not allowed to perform this action on this booking",
		},
		{
			name:    "booking not found",
			err:     fmt.Errorf("accept booking x: %w", usecase.ErrBookingNotFound),
			code:    http.StatusNotFound,
			message: "Booking not found",
		},
		{
			name:    "subscription not found",
			err:     usecase.ErrSubscriptionNotFound,
			code:    http.StatusNotFound,
			message: "Subscription not found",
		},
		{
			name:    "quota",
			err:     fmt.Errorf("accept booking x: %w", &lifecycle.AdmissionError{Reason: lifecycle.DenyLimitReached}),
			code:    http.StatusPaymentRequired,
			message: "Booking quota exhausted, upgrade your plan to accept more bookings",
		},
		{
			name:    "expired",
			err:     fmt.Errorf("confirm_arrival booking x: %w", lifecycle.ErrConfirmationExpired),
			code:    http.StatusGone,
			message: "The arrival confirmation window has expired",
		},
		{
			name:    "invalid transition",
			err:     &lifecycle.TransitionError{Op: "start_service", Status: entity.BookingStatusPending, Reason: "nope"},
			code:    http.StatusConflict,
			message: "This action is not allowed in the booking's current state",
		},
		{
			name:    "subscription conflict",
			err:     fmt.Errorf("%w: already cancelled", usecase.ErrConflict),
			code:    http.StatusConflict,
			message: "The subscription's current state does not allow this change",
		},
		{
			name:    "unexpected",
			err:     errors.New("connection refused"),
			code:    http.StatusInternalServerError,
			message: "Internal server error, please try again",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zap.NewNop(), tt.err, "op")

			assert.Equal(t, tt.code, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Status)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestHandleServiceError_QuotaReasonIsExposed(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(), &lifecycle.AdmissionError{Reason: lifecycle.DenyTrialEnded}, "accept booking")

	resp := decode(t, rec)
	assert.Equal(t, map[string]any{"reason": "trial_ended"}, resp.Errors)
}
