package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nurse-booking/internal/dto/request"
	"nurse-booking/internal/dto/response"
	"nurse-booking/internal/usecase"
	"nurse-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings (patient)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking requested", booking)
}

// ListBookings handles GET /api/bookings
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &request.ListBookingsRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.QueryInt(query.Get("page"), 1),
			PerPage: utils.QueryInt(query.Get("per_page"), request.DefaultPerPage),
		},
		Status: query.Get("status"),
	}

	bookings, err := h.service.ListBookings(r.Context(), actor, req)
	if err != nil {
		handleServiceError(w, h.log, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req request.CancelBookingRequest
	// body boleh kosong
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CancelBooking(r.Context(), actor, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "Booking cancelled", booking)
}

type bookingOp func(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)

// step serves the body-less lifecycle endpoints.
func (h *BookingHandler) step(op bookingOp, operation, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(w, r)
		if !ok {
			return
		}

		booking, err := op(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, h.log, err, operation)
			return
		}

		utils.ResponseSuccess(w, message, booking)
	}
}

// AcceptBooking handles POST /api/bookings/{id}/accept (provider)
func (h *BookingHandler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	h.step(h.service.AcceptBooking, "accept booking", "Booking accepted").ServeHTTP(w, r)
}

// MarkArrival handles POST /api/bookings/{id}/arrival (provider)
func (h *BookingHandler) MarkArrival(w http.ResponseWriter, r *http.Request) {
	h.step(h.service.MarkArrival, "mark arrival", "Arrival recorded, waiting for patient confirmation").ServeHTTP(w, r)
}

// ConfirmArrival handles POST /api/bookings/{id}/arrival/confirm (patient)
func (h *BookingHandler) ConfirmArrival(w http.ResponseWriter, r *http.Request) {
	h.step(h.service.ConfirmArrival, "confirm arrival", "Arrival confirmed").ServeHTTP(w, r)
}

// StartService handles POST /api/bookings/{id}/session/start (provider)
func (h *BookingHandler) StartService(w http.ResponseWriter, r *http.Request) {
	h.step(h.service.StartService, "start service", "Service session started").ServeHTTP(w, r)
}

// StopService handles POST /api/bookings/{id}/session/stop (provider)
func (h *BookingHandler) StopService(w http.ResponseWriter, r *http.Request) {
	h.step(h.service.StopService, "stop service", "Service session completed").ServeHTTP(w, r)
}
