package usecase

import (
	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/notify"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/metrics"
	"nurse-booking/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by the services.
type Deps struct {
	Clock    clock.Clock
	Notifier notify.Dispatcher
	Metrics  *metrics.BookingMetrics
}

type Service struct {
	Booking  BookingService
	Quota    QuotaService
	Provider ProviderService
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewLogDispatcher(log)
	}

	return &Service{
		Booking:  NewBookingService(repo, deps, config.Booking, log),
		Quota:    NewQuotaService(repo, deps.Clock, PlanLimitsFromConfig(config.Subscription), config.Subscription, log),
		Provider: NewProviderService(repo, deps.Clock, log),
	}
}

// PlanLimitsFromConfig builds the booking cap of every plan.
func PlanLimitsFromConfig(cfg utils.SubscriptionConfig) lifecycle.PlanLimits {
	trial, basic, pro := cfg.TrialBookingLimit, cfg.BasicLimit, cfg.ProLimit
	return lifecycle.PlanLimits{
		entity.PlanTrial:     &trial,
		entity.PlanBasic:     &basic,
		entity.PlanPro:       &pro,
		entity.PlanUnlimited: nil,
	}
}
