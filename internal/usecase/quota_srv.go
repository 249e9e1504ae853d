package usecase

import (
	"context"
	"fmt"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/dto/request"
	"nurse-booking/internal/dto/response"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaService manages the provider's quota ledger. Admission itself runs in
// the booking accept path; these are the reads and the billing entry points.
type QuotaService interface {
	GetQuotaStatus(ctx context.Context, providerID string) (*response.QuotaStatusResponse, error)

	StartTrial(ctx context.Context, providerID string) (*response.QuotaStatusResponse, error)
	Renew(ctx context.Context, providerID string, req *request.ChangePlanRequest) (*response.QuotaStatusResponse, error)
	Upgrade(ctx context.Context, providerID string, req *request.ChangePlanRequest) (*response.QuotaStatusResponse, error)
	CancelSubscription(ctx context.Context, providerID string) (*response.QuotaStatusResponse, error)

	ExpireTrials(ctx context.Context) (int64, error)
}

type quotaService struct {
	repo   *repository.Repository
	clock  clock.Clock
	limits lifecycle.PlanLimits
	cfg    utils.SubscriptionConfig
	log    *zap.Logger
}

func NewQuotaService(repo *repository.Repository, clk clock.Clock, limits lifecycle.PlanLimits, cfg utils.SubscriptionConfig, log *zap.Logger) QuotaService {
	return &quotaService{
		repo:   repo,
		clock:  clk,
		limits: limits,
		cfg:    cfg,
		log:    log.With(zap.String("service", "quota")),
	}
}

func (s *quotaService) GetQuotaStatus(ctx context.Context, providerID string) (*response.QuotaStatusResponse, error) {
	id, err := parseID("provider_id", providerID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.Subscription.FindByProviderID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quota status: %w", err)
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}

	resp := response.SubscriptionToQuota(sub, s.clock.Now())
	return &resp, nil
}

func (s *quotaService) StartTrial(ctx context.Context, providerID string) (*response.QuotaStatusResponse, error) {
	return s.change(ctx, "start trial", providerID, func(tx *repository.Repository, id uuid.UUID, sub *entity.Subscription, now time.Time) (*entity.Subscription, error) {
		if sub != nil && !sub.Status.Terminal() {
			return nil, fmt.Errorf("%w: provider already has a %s subscription", ErrConflict, sub.Status)
		}
		provider, err := tx.Provider.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, ErrProviderNotFound
		}

		limit, _ := s.limits.Limit(entity.PlanTrial)
		trialEnds := now.AddDate(0, 0, s.cfg.TrialDays)
		return &entity.Subscription{
			Base:               entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			ProviderID:         id,
			Plan:               entity.PlanTrial,
			Status:             entity.SubscriptionTrial,
			BookingLimit:       limit,
			TrialEndsAt:        &trialEnds,
			CurrentPeriodStart: now,
		}, nil
	})
}

// Renew starts a new billing cycle on plan. A closed entry is replaced by a
// fresh one.
func (s *quotaService) Renew(ctx context.Context, providerID string, req *request.ChangePlanRequest) (*response.QuotaStatusResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	plan := entity.SubscriptionPlan(req.Plan)
	limit, ok := s.limits.Limit(plan)
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"Plan": "Unknown plan"}}
	}

	return s.change(ctx, "renew subscription", providerID, func(tx *repository.Repository, id uuid.UUID, sub *entity.Subscription, now time.Time) (*entity.Subscription, error) {
		if sub == nil || sub.Status.Terminal() {
			provider, err := tx.Provider.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if provider == nil {
				return nil, ErrProviderNotFound
			}
			sub = &entity.Subscription{
				Base:       entity.Base{ID: uuid.New(), CreatedAt: now},
				ProviderID: id,
			}
		}
		lifecycle.ApplyPlan(sub, plan, limit, true, now)
		return sub, nil
	})
}

// Upgrade switches plan mid-cycle; usage carries over.
func (s *quotaService) Upgrade(ctx context.Context, providerID string, req *request.ChangePlanRequest) (*response.QuotaStatusResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	plan := entity.SubscriptionPlan(req.Plan)
	limit, ok := s.limits.Limit(plan)
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"Plan": "Unknown plan"}}
	}

	return s.change(ctx, "upgrade subscription", providerID, func(_ *repository.Repository, _ uuid.UUID, sub *entity.Subscription, now time.Time) (*entity.Subscription, error) {
		if sub == nil {
			return nil, ErrSubscriptionNotFound
		}
		if sub.Status.Terminal() {
			return nil, fmt.Errorf("%w: subscription is %s, renew instead", ErrConflict, sub.Status)
		}
		// usage carries over, so the new cap must still cover it
		if limit != nil && sub.BookingsUsed > *limit {
			return nil, fmt.Errorf("%w: %d bookings used exceeds the %s limit of %d", ErrConflict, sub.BookingsUsed, plan, *limit)
		}
		lifecycle.ApplyPlan(sub, plan, limit, false, now)
		return sub, nil
	})
}

func (s *quotaService) CancelSubscription(ctx context.Context, providerID string) (*response.QuotaStatusResponse, error) {
	return s.change(ctx, "cancel subscription", providerID, func(_ *repository.Repository, _ uuid.UUID, sub *entity.Subscription, now time.Time) (*entity.Subscription, error) {
		if sub == nil {
			return nil, ErrSubscriptionNotFound
		}
		if sub.Status.Terminal() {
			return nil, fmt.Errorf("%w: subscription is already %s", ErrConflict, sub.Status)
		}
		sub.Status = entity.SubscriptionCancelled
		sub.UpdatedAt = now
		return sub, nil
	})
}

func (s *quotaService) ExpireTrials(ctx context.Context) (int64, error) {
	n, err := s.repo.Subscription.ExpireTrials(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("Expired trial subscriptions", zap.Int64("count", n))
	}
	return n, nil
}

type ledgerChange func(tx *repository.Repository, providerID uuid.UUID, current *entity.Subscription, now time.Time) (*entity.Subscription, error)

// change locks the provider's ledger entry, applies fn and saves the result.
func (s *quotaService) change(ctx context.Context, op, providerID string, fn ledgerChange) (*response.QuotaStatusResponse, error) {
	id, err := parseID("provider_id", providerID)
	if err != nil {
		return nil, err
	}

	var saved *entity.Subscription
	var now time.Time
	err = s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Subscription.FindByProviderIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now = s.clock.Now()
		next, err := fn(tx, id, current, now)
		if err != nil {
			return err
		}
		if err := tx.Subscription.Save(ctx, next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		s.log.Warn("Subscription change refused",
			zap.Error(err),
			zap.String("op", op),
			zap.String("provider_id", providerID),
		)
		return nil, fmt.Errorf("%s for provider %s: %w", op, providerID, err)
	}

	s.log.Info("Subscription changed",
		zap.String("op", op),
		zap.String("provider_id", providerID),
		zap.String("plan", string(saved.Plan)),
		zap.String("status", string(saved.Status)),
	)

	resp := response.SubscriptionToQuota(saved, now)
	return &resp, nil
}
