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

type ProviderHandler struct {
	service usecase.ProviderService
	log     *zap.Logger
}

func NewProviderHandler(service usecase.ProviderService, log *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		service: service,
		log:     log.With(zap.String("handler", "provider")),
	}
}

// SetDuty handles PUT /api/providers/me/duty (provider)
func (h *ProviderHandler) SetDuty(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.SetDutyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	status, err := h.service.SetDuty(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "set duty")
		return
	}

	utils.ResponseSuccess(w, "Duty status updated", status)
}

// GetStatus handles GET /api/providers/{id}/status. Always read fresh.
func (h *ProviderHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetProviderStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get provider status")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	utils.ResponseSuccess(w, "success", status)
}
