package adaptor

import (
	"errors"
	"net/http"

	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/usecase"
	"nurse-booking/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps service errors to responses. Each kind has its own
// status and message so clients can react without parsing text.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		verr       *usecase.ValidationError
		admission  *lifecycle.AdmissionError
		transition *lifecycle.TransitionError
	)

	switch {
	case errors.As(err, &verr):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, "Validation failed", verr.Fields)

	case errors.Is(err, lifecycle.ErrUnauthorized):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, "You are not allowed to perform this action on this booking")

	case errors.Is(err, usecase.ErrBookingNotFound):
		utils.ResponseNotFound(w, "Booking not found")

	case errors.Is(err, usecase.ErrSubscriptionNotFound):
		utils.ResponseNotFound(w, "Subscription not found")

	case errors.Is(err, usecase.ErrProviderNotFound):
		utils.ResponseNotFound(w, "Provider not found")

	case errors.Is(err, lifecycle.ErrNotFound):
		utils.ResponseNotFound(w, "Resource not found")

	case errors.As(err, &admission):
		log.Info(operation+" refused - quota exceeded", zap.String("reason", string(admission.Reason)))
		utils.ResponsePaymentRequired(w, "Booking quota exhausted, upgrade your plan to accept more bookings",
			map[string]string{"reason": string(admission.Reason)})

	case errors.Is(err, lifecycle.ErrConfirmationExpired):
		utils.ResponseGone(w, "The arrival confirmation window has expired")

	case errors.As(err, &transition):
		utils.ResponseConflict(w, "This action is not allowed in the booking's current state", map[string]string{
			"operation": transition.Op,
			"status":    string(transition.Status),
			"reason":    transition.Reason,
		})

	case errors.Is(err, usecase.ErrConflict):
		utils.ResponseConflict(w, "The subscription's current state does not allow this change", nil)

	default:
		log.Error(operation+" failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error, please try again")
	}
}

func actorFrom(w http.ResponseWriter, r *http.Request) (utils.Actor, bool) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return actor, ok
}
