package adaptor

import (
	"nurse-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Booking      *BookingHandler
	Subscription *SubscriptionHandler
	Provider     *ProviderHandler
	Health       *HealthHandler
}

func NewHandler(service *usecase.Service, db Pinger, log *zap.Logger) *Handler {
	return &Handler{
		Booking:      NewBookingHandler(service.Booking, log),
		Subscription: NewSubscriptionHandler(service.Quota, log),
		Provider:     NewProviderHandler(service.Provider, log),
		Health:       NewHealthHandler(db, log),
	}
}
