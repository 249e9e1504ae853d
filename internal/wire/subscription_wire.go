package wire

import (
	"nurse-booking/internal/adaptor"
	"nurse-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireSubscription(r chi.Router, subscriptionHandler *adaptor.SubscriptionHandler, log *zap.Logger) {
	r.Route("/admin/subscriptions/{providerId}", func(r chi.Router) {
		r.Use(middleware.Admin(log))

		r.Get("/", subscriptionHandler.GetSubscription)
		r.Post("/trial", subscriptionHandler.StartTrial)
		r.Post("/renew", subscriptionHandler.Renew)
		r.Post("/upgrade", subscriptionHandler.Upgrade)
		r.Post("/cancel", subscriptionHandler.Cancel)
	})
}
