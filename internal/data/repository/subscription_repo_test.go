package repository

import (
	"context"
	"testing"
	"time"

	"nurse-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var subscriptionColumnNames = []string{
	"id", "provider_id", "plan", "status", "bookings_used", "booking_limit", "trial_ends_at",
	"current_period_start", "created_at", "updated_at",
}

func addSubscriptionRow(rows *pgxmock.Rows, s *entity.Subscription) *pgxmock.Rows {
	return rows.AddRow(s.ID, s.ProviderID, s.Plan, s.Status, s.BookingsUsed, s.BookingLimit, s.TrialEndsAt,
		s.CurrentPeriodStart, s.CreatedAt, s.UpdatedAt)
}

func TestSubscriptionRepository_ConsumeSlotReturnsUpdatedEntry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepository(mock, zap.NewNop())
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	limit := 5
	after := &entity.Subscription{
		Base:               entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ProviderID:         uuid.New(),
		Plan:               entity.PlanTrial,
		Status:             entity.SubscriptionPaused,
		BookingsUsed:       5,
		BookingLimit:       &limit,
		CurrentPeriodStart: now,
	}

	mock.ExpectQuery(`UPDATE subscriptions\s+SET bookings_used = bookings_used \+ 1`).
		WithArgs(after.ProviderID, now).
		WillReturnRows(addSubscriptionRow(pgxmock.NewRows(subscriptionColumnNames), after))

	got, err := repo.ConsumeSlot(context.Background(), after.ProviderID, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.BookingsUsed)
	assert.Equal(t, entity.SubscriptionPaused, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_ConsumeSlotNotAdmissible(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepository(mock, zap.NewNop())
	providerID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`bookings_used < booking_limit`).
		WithArgs(providerID, now).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.ConsumeSlot(context.Background(), providerID, now)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Admission and the charge must be one conditional UPDATE; the row lock it
// takes is what keeps concurrent accepts from spending the last slot twice.
func TestSubscriptionRepository_ConsumeSlotGuardsInOneStatement(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepository(mock, zap.NewNop())
	providerID := uuid.New()
	now := time.Now().UTC()

	guard := `(?s)^UPDATE subscriptions SET bookings_used = bookings_used \+ 1.*` +
		`WHERE provider_id = \$1 AND status IN \('TRIAL', 'ACTIVE'\) ` +
		`AND \(status <> 'TRIAL' OR trial_ends_at IS NULL OR trial_ends_at >= \$2\) ` +
		`AND \(booking_limit IS NULL OR bookings_used < booking_limit\) RETURNING`
	mock.ExpectQuery(guard).
		WithArgs(providerID, now).
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.ConsumeSlot(context.Background(), providerID, now)
	require.NoError(t, err)
	assert.Nil(t, got)
	// no read-then-write: exactly one statement reached the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_SaveUpserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepository(mock, zap.NewNop())
	now := time.Now().UTC()
	sub := &entity.Subscription{
		Base:               entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ProviderID:         uuid.New(),
		Plan:               entity.PlanUnlimited,
		Status:             entity.SubscriptionActive,
		CurrentPeriodStart: now,
	}

	mock.ExpectExec(`ON CONFLICT \(provider_id\) DO UPDATE`).
		WithArgs(sub.ID, sub.ProviderID, sub.Plan, sub.Status, sub.BookingsUsed, sub.BookingLimit,
			sub.TrialEndsAt, sub.CurrentPeriodStart, sub.CreatedAt, sub.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Save(context.Background(), sub))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionRepository_ExpireTrials(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSubscriptionRepository(mock, zap.NewNop())
	now := time.Now().UTC()

	mock.ExpectExec(`SET status = 'EXPIRED'`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := repo.ExpireTrials(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
