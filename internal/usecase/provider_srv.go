package usecase

import (
	"context"
	"fmt"

	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/dto/request"
	"nurse-booking/internal/dto/response"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/utils"

	"go.uber.org/zap"
)

// ProviderService owns the on-duty flag. It is always read from the store;
// nothing keeps a local copy.
type ProviderService interface {
	SetDuty(ctx context.Context, actor utils.Actor, req *request.SetDutyRequest) (*response.ProviderStatusResponse, error)
	GetProviderStatus(ctx context.Context, providerID string) (*response.ProviderStatusResponse, error)
}

type providerService struct {
	repo  *repository.Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewProviderService(repo *repository.Repository, clk clock.Clock, log *zap.Logger) ProviderService {
	return &providerService{
		repo:  repo,
		clock: clk,
		log:   log.With(zap.String("service", "provider")),
	}
}

func (s *providerService) SetDuty(ctx context.Context, actor utils.Actor, req *request.SetDutyRequest) (*response.ProviderStatusResponse, error) {
	if !actor.IsProvider() {
		return nil, fmt.Errorf("%w: only providers have a duty status", lifecycle.ErrUnauthorized)
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	provider, err := s.repo.Provider.SetDuty(ctx, actor.ID, *req.OnDuty, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("set duty: %w", err)
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	s.log.Info("Provider duty changed",
		zap.String("provider_id", actor.ID.String()),
		zap.Bool("on_duty", provider.OnDuty),
	)

	resp := response.ProviderToStatus(provider)
	return &resp, nil
}

func (s *providerService) GetProviderStatus(ctx context.Context, providerID string) (*response.ProviderStatusResponse, error) {
	id, err := parseID("provider_id", providerID)
	if err != nil {
		return nil, err
	}

	provider, err := s.repo.Provider.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get provider status: %w", err)
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}

	resp := response.ProviderToStatus(provider)
	return &resp, nil
}
