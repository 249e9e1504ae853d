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

type ProviderRepository interface {
	FindByID(ctx context.Context, userID uuid.UUID) (*entity.Provider, error)
	// SetDuty updates the authoritative on-duty flag and returns the new row.
	SetDuty(ctx context.Context, userID uuid.UUID, onDuty bool, now time.Time) (*entity.Provider, error)
}

const providerColumns = `user_id, profession, hourly_rate, is_verified, on_duty, duty_changed_at, updated_at`

type providerRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewProviderRepository(db database.Querier, log *zap.Logger) ProviderRepository {
	return &providerRepository{
		db:  db,
		log: log.With(zap.String("repository", "provider")),
	}
}

func scanProvider(row rowScanner) (*entity.Provider, error) {
	var p entity.Provider
	err := row.Scan(
		&p.UserID,
		&p.Profession,
		&p.HourlyRate,
		&p.IsVerified,
		&p.OnDuty,
		&p.DutyChangedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *providerRepository) FindByID(ctx context.Context, userID uuid.UUID) (*entity.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE user_id = $1`

	provider, err := scanProvider(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find provider",
			zap.Error(err),
			zap.String("provider_id", userID.String()),
		)
		return nil, fmt.Errorf("find provider %s: %w", userID.String(), err)
	}

	return provider, nil
}

func (r *providerRepository) SetDuty(ctx context.Context, userID uuid.UUID, onDuty bool, now time.Time) (*entity.Provider, error) {
	query := `
		UPDATE providers
		SET on_duty = $2,
		    duty_changed_at = CASE WHEN on_duty = $2 THEN duty_changed_at ELSE $3 END,
		    updated_at = $3
		WHERE user_id = $1
		RETURNING ` + providerColumns

	provider, err := scanProvider(r.db.QueryRow(ctx, query, userID, onDuty, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to update provider duty",
			zap.Error(err),
			zap.String("provider_id", userID.String()),
			zap.Bool("on_duty", onDuty),
		)
		return nil, fmt.Errorf("set duty for provider %s: %w", userID.String(), err)
	}

	return provider, nil
}
