package adaptor

import (
	"encoding/json"
	"net/http"

	"nurse-booking/internal/dto/request"
	"nurse-booking/internal/usecase"
	"nurse-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	service usecase.QuotaService
	log     *zap.Logger
}

func NewSubscriptionHandler(service usecase.QuotaService, log *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		log:     log.With(zap.String("handler", "subscription")),
	}
}

// MyQuota handles GET /api/providers/me/quota (provider)
func (h *SubscriptionHandler) MyQuota(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if !actor.IsProvider() {
		utils.ResponseForbidden(w, "Only providers have a booking quota")
		return
	}

	quota, err := h.service.GetQuotaStatus(r.Context(), actor.ID.String())
	if err != nil {
		handleServiceError(w, h.log, err, "get quota")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	utils.ResponseSuccess(w, "success", quota)
}

// ==================== ADMIN METHODS ====================

// GetSubscription handles GET /api/admin/subscriptions/{providerId}
func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	quota, err := h.service.GetQuotaStatus(r.Context(), chi.URLParam(r, "providerId"))
	if err != nil {
		handleServiceError(w, h.log, err, "get subscription")
		return
	}

	utils.ResponseSuccess(w, "success", quota)
}

// StartTrial handles POST /api/admin/subscriptions/{providerId}/trial
func (h *SubscriptionHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	quota, err := h.service.StartTrial(r.Context(), chi.URLParam(r, "providerId"))
	if err != nil {
		handleServiceError(w, h.log, err, "start trial")
		return
	}

	utils.ResponseCreated(w, "Trial started", quota)
}

// Renew handles POST /api/admin/subscriptions/{providerId}/renew
func (h *SubscriptionHandler) Renew(w http.ResponseWriter, r *http.Request) {
	var req request.ChangePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	quota, err := h.service.Renew(r.Context(), chi.URLParam(r, "providerId"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "renew subscription")
		return
	}

	utils.ResponseSuccess(w, "Subscription renewed", quota)
}

// Upgrade handles POST /api/admin/subscriptions/{providerId}/upgrade
func (h *SubscriptionHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	var req request.ChangePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	quota, err := h.service.Upgrade(r.Context(), chi.URLParam(r, "providerId"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "upgrade subscription")
		return
	}

	utils.ResponseSuccess(w, "Subscription upgraded", quota)
}

// Cancel handles POST /api/admin/subscriptions/{providerId}/cancel
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	quota, err := h.service.CancelSubscription(r.Context(), chi.URLParam(r, "providerId"))
	if err != nil {
		handleServiceError(w, h.log, err, "cancel subscription")
		return
	}

	utils.ResponseSuccess(w, "Subscription cancelled", quota)
}
