package usecase

import (
	"context"
	"testing"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/dto/request"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newQuotaFixture(t *testing.T) (*memStore, *clock.Manual, QuotaService, uuid.UUID) {
	t.Helper()
	store := newMemStore()
	clk := clock.NewManual(start)
	cfg := utils.SubscriptionConfig{TrialDays: 14, TrialBookingLimit: 5, BasicLimit: 20, ProLimit: 60}
	svc := NewQuotaService(store.repository(), clk, PlanLimitsFromConfig(cfg), cfg, zap.NewNop())

	providerID := uuid.New()
	store.putProvider(&entity.Provider{UserID: providerID, Profession: entity.RoleDoctor, HourlyRate: 1500, IsVerified: true})
	return store, clk, svc, providerID
}

func TestQuotaService_StartTrial(t *testing.T) {
	store, _, svc, providerID := newQuotaFixture(t)
	ctx := context.Background()

	resp, err := svc.StartTrial(ctx, providerID.String())
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionTrial, resp.Status)
	assert.Equal(t, 5, *resp.BookingLimit)
	assert.Equal(t, 5, *resp.Remaining)
	assert.True(t, resp.CanAccept)
	assert.Equal(t, start.AddDate(0, 0, 14), *resp.TrialEndsAt)

	_, err = svc.StartTrial(ctx, providerID.String())
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.StartTrial(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrProviderNotFound)

	assert.Equal(t, entity.PlanTrial, store.subscription(providerID).Plan)
}

func TestQuotaService_GetQuotaStatusReportsDenial(t *testing.T) {
	store, _, svc, providerID := newQuotaFixture(t)
	store.putSub(&entity.Subscription{
		Base:         entity.Base{ID: uuid.New()},
		ProviderID:   providerID,
		Plan:         entity.PlanBasic,
		Status:       entity.SubscriptionPaused,
		BookingsUsed: 20,
		BookingLimit: intPtr(20),
	})

	resp, err := svc.GetQuotaStatus(context.Background(), providerID.String())
	require.NoError(t, err)
	assert.False(t, resp.CanAccept)
	assert.Equal(t, lifecycle.DenyPaused, resp.DenyReason)
	assert.Equal(t, 0, *resp.Remaining)

	_, err = svc.GetQuotaStatus(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestQuotaService_UpgradeKeepsUsage(t *testing.T) {
	store, _, svc, providerID := newQuotaFixture(t)
	ctx := context.Background()
	store.putSub(&entity.Subscription{
		Base:         entity.Base{ID: uuid.New()},
		ProviderID:   providerID,
		Plan:         entity.PlanTrial,
		Status:       entity.SubscriptionPaused,
		BookingsUsed: 5,
		BookingLimit: intPtr(5),
	})

	resp, err := svc.Upgrade(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "basic"})
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionActive, resp.Status)
	assert.Equal(t, 5, resp.BookingsUsed)
	assert.Equal(t, 15, *resp.Remaining)
	assert.Nil(t, resp.TrialEndsAt)

	resp, err = svc.Upgrade(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "unlimited"})
	require.NoError(t, err)
	assert.True(t, resp.Unlimited)
	assert.Nil(t, resp.Remaining)
	assert.True(t, resp.CanAccept)

	_, err = svc.Upgrade(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "gold"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQuotaService_DowngradeBelowUsageIsRejected(t *testing.T) {
	store, _, svc, providerID := newQuotaFixture(t)
	ctx := context.Background()
	store.putSub(&entity.Subscription{
		Base:         entity.Base{ID: uuid.New()},
		ProviderID:   providerID,
		Plan:         entity.PlanPro,
		Status:       entity.SubscriptionActive,
		BookingsUsed: 30,
		BookingLimit: intPtr(60),
	})

	_, err := svc.Upgrade(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "basic"})
	assert.ErrorIs(t, err, ErrConflict)

	stored := store.subscription(providerID)
	assert.Equal(t, entity.PlanPro, stored.Plan)
	assert.Equal(t, 60, *stored.BookingLimit)
	assert.Equal(t, entity.SubscriptionActive, stored.Status)

	// exactly at the cap is allowed and pauses
	store.putSub(&entity.Subscription{
		Base:         entity.Base{ID: uuid.New()},
		ProviderID:   providerID,
		Plan:         entity.PlanPro,
		Status:       entity.SubscriptionActive,
		BookingsUsed: 20,
		BookingLimit: intPtr(60),
	})
	resp, err := svc.Upgrade(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "basic"})
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionPaused, resp.Status)
	assert.Equal(t, 0, *resp.Remaining)
}

func TestQuotaService_RenewResetsCycle(t *testing.T) {
	store, clk, svc, providerID := newQuotaFixture(t)
	ctx := context.Background()
	store.putSub(&entity.Subscription{
		Base:               entity.Base{ID: uuid.New()},
		ProviderID:         providerID,
		Plan:               entity.PlanBasic,
		Status:             entity.SubscriptionPaused,
		BookingsUsed:       20,
		BookingLimit:       intPtr(20),
		CurrentPeriodStart: start,
	})

	clk.Advance(30 * 24 * time.Hour)
	resp, err := svc.Renew(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "pro"})
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionActive, resp.Status)
	assert.Equal(t, 0, resp.BookingsUsed)
	assert.Equal(t, 60, *resp.BookingLimit)
	assert.Equal(t, clk.Now(), resp.CurrentPeriodStart)
}

func TestQuotaService_CancelThenRenew(t *testing.T) {
	store, _, svc, providerID := newQuotaFixture(t)
	ctx := context.Background()

	_, err := svc.StartTrial(ctx, providerID.String())
	require.NoError(t, err)

	resp, err := svc.CancelSubscription(ctx, providerID.String())
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionCancelled, resp.Status)
	assert.Equal(t, lifecycle.DenyCancelled, resp.DenyReason)

	_, err = svc.CancelSubscription(ctx, providerID.String())
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Upgrade(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "pro"})
	assert.ErrorIs(t, err, ErrConflict)

	old := store.subscription(providerID)
	resp, err = svc.Renew(ctx, providerID.String(), &request.ChangePlanRequest{Plan: "basic"})
	require.NoError(t, err)
	assert.Equal(t, entity.SubscriptionActive, resp.Status)
	assert.NotEqual(t, old.ID, store.subscription(providerID).ID)
}

func TestQuotaService_ExpireTrials(t *testing.T) {
	store, clk, svc, providerID := newQuotaFixture(t)
	ctx := context.Background()

	_, err := svc.StartTrial(ctx, providerID.String())
	require.NoError(t, err)

	n, err := svc.ExpireTrials(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(15 * 24 * time.Hour)
	n, err = svc.ExpireTrials(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, entity.SubscriptionExpired, store.subscription(providerID).Status)
}
