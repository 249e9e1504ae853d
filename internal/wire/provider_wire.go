package wire

import (
	"nurse-booking/internal/adaptor"
	"nurse-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireProvider(
	r chi.Router,
	providerHandler *adaptor.ProviderHandler,
	subscriptionHandler *adaptor.SubscriptionHandler,
	log *zap.Logger,
) {
	r.Route("/providers", func(r chi.Router) {
		// Any authenticated user may look up duty status
		r.Get("/{id}/status", providerHandler.GetStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Providers(log))

			r.Get("/me/quota", subscriptionHandler.MyQuota)
			r.Put("/me/duty", providerHandler.SetDuty)
		})
	})
}
