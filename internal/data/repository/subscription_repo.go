package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SubscriptionRepository interface {
	FindByProviderID(ctx context.Context, providerID uuid.UUID) (*entity.Subscription, error)
	FindByProviderIDForUpdate(ctx context.Context, providerID uuid.UUID) (*entity.Subscription, error)

	// ConsumeSlot admits and charges one booking in a single statement.
	// It returns nil, nil when the ledger does not admit the provider.
	ConsumeSlot(ctx context.Context, providerID uuid.UUID, now time.Time) (*entity.Subscription, error)

	// Save inserts the entry or replaces the provider's existing one.
	Save(ctx context.Context, sub *entity.Subscription) error
	ExpireTrials(ctx context.Context, now time.Time) (int64, error)
}

const subscriptionColumns = `id, provider_id, plan, status, bookings_used, booking_limit, trial_ends_at,
		current_period_start, created_at, updated_at`

type subscriptionRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewSubscriptionRepository(db database.Querier, log *zap.Logger) SubscriptionRepository {
	return &subscriptionRepository{
		db:  db,
		log: log.With(zap.String("repository", "subscription")),
	}
}

func scanSubscription(row rowScanner) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.ProviderID,
		&sub.Plan,
		&sub.Status,
		&sub.BookingsUsed,
		&sub.BookingLimit,
		&sub.TrialEndsAt,
		&sub.CurrentPeriodStart,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) (*entity.Subscription, error) {
	return r.findOne(ctx, providerID, false)
}

func (r *subscriptionRepository) FindByProviderIDForUpdate(ctx context.Context, providerID uuid.UUID) (*entity.Subscription, error) {
	return r.findOne(ctx, providerID, true)
}

func (r *subscriptionRepository) findOne(ctx context.Context, providerID uuid.UUID, lock bool) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, providerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find subscription",
			zap.Error(err),
			zap.String("provider_id", providerID.String()),
		)
		return nil, fmt.Errorf("find subscription for provider %s: %w", providerID.String(), err)
	}

	return sub, nil
}

// ConsumeSlot mirrors lifecycle.Consume. Concurrent callers serialize on the
// row; the loser re-evaluates the WHERE clause against the winner's update,
// so the last slot cannot be spent twice and the entry is paused in the same
// write that fills it.
func (r *subscriptionRepository) ConsumeSlot(ctx context.Context, providerID uuid.UUID, now time.Time) (*entity.Subscription, error) {
	query := `
		UPDATE subscriptions
		SET bookings_used = bookings_used + 1,
		    status = CASE
		        WHEN booking_limit IS NOT NULL AND bookings_used + 1 >= booking_limit THEN 'PAUSED'
		        ELSE status
		    END,
		    updated_at = $2
		WHERE provider_id = $1
		  AND status IN ('TRIAL', 'ACTIVE')
		  AND (status <> 'TRIAL' OR trial_ends_at IS NULL OR trial_ends_at >= $2)
		  AND (booking_limit IS NULL OR bookings_used < booking_limit)
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.db.QueryRow(ctx, query, providerID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to consume booking slot",
			zap.Error(err),
			zap.String("provider_id", providerID.String()),
		)
		return nil, fmt.Errorf("consume booking slot for provider %s: %w", providerID.String(), err)
	}

	return sub, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, provider_id, plan, status, bookings_used, booking_limit,
		                           trial_ends_at, current_period_start, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider_id) DO UPDATE
		SET id = EXCLUDED.id, plan = EXCLUDED.plan, status = EXCLUDED.status,
		    bookings_used = EXCLUDED.bookings_used, booking_limit = EXCLUDED.booking_limit,
		    trial_ends_at = EXCLUDED.trial_ends_at, current_period_start = EXCLUDED.current_period_start,
		    created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		sub.ID,
		sub.ProviderID,
		sub.Plan,
		sub.Status,
		sub.BookingsUsed,
		sub.BookingLimit,
		sub.TrialEndsAt,
		sub.CurrentPeriodStart,
		sub.CreatedAt,
		sub.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to save subscription",
			zap.Error(err),
			zap.String("provider_id", sub.ProviderID.String()),
			zap.String("status", string(sub.Status)),
		)
		return fmt.Errorf("save subscription for provider %s: %w", sub.ProviderID.String(), err)
	}

	return nil
}

func (r *subscriptionRepository) ExpireTrials(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE subscriptions
		SET status = 'EXPIRED', updated_at = $1
		WHERE status = 'TRIAL' AND trial_ends_at IS NOT NULL AND trial_ends_at < $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to expire trials", zap.Error(err))
		return 0, fmt.Errorf("expire trials: %w", err)
	}

	return result.RowsAffected(), nil
}
