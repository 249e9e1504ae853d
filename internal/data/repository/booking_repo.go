package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingFilter narrows listing queries. At least one of PatientID or
// ProviderID must be set unless the caller is an admin listing.
type BookingFilter struct {
	PatientID  *uuid.UUID
	ProviderID *uuid.UUID
	Status     *entity.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	Update(ctx context.Context, booking *entity.Booking) error
	List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*entity.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int64, error)

	// FindStaleArrivals returns confirmed bookings whose arrival was marked
	// before cutoff and never confirmed.
	FindStaleArrivals(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error)
	CountStaleArrivals(ctx context.Context, cutoff time.Time) (int64, error)
}

const bookingColumns = `id, booking_code, provider_id, patient_id, service_type, scheduled_at, address, notes,
		hourly_rate, status, accepted_at, nurse_arrived_at, arrival_confirmed_at, service_started_at,
		service_ended_at, cancelled_at, cancelled_by, cancel_reason, actual_duration, actual_cost,
		created_at, updated_at`

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.BookingCode,
		&booking.ProviderID,
		&booking.PatientID,
		&booking.ServiceType,
		&booking.ScheduledAt,
		&booking.Address,
		&booking.Notes,
		&booking.HourlyRate,
		&booking.Status,
		&booking.AcceptedAt,
		&booking.NurseArrivedAt,
		&booking.ArrivalConfirmedAt,
		&booking.ServiceStartedAt,
		&booking.ServiceEndedAt,
		&booking.CancelledAt,
		&booking.CancelledBy,
		&booking.CancelReason,
		&booking.ActualDuration,
		&booking.ActualCost,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, booking_code, provider_id, patient_id, service_type, scheduled_at,
		                      address, notes, hourly_rate, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingCode,
		booking.ProviderID,
		booking.PatientID,
		booking.ServiceType,
		booking.ScheduledAt,
		booking.Address,
		booking.Notes,
		booking.HourlyRate,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_code", booking.BookingCode),
			zap.String("patient_id", booking.PatientID.String()),
			zap.String("provider_id", booking.ProviderID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingCode, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, id, false)
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, id, true)
}

func (r *bookingRepository) findOne(ctx context.Context, id uuid.UUID, lock bool) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.Bool("for_update", lock),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

// Update writes the lifecycle columns. Identity, parties and the locked
// price are never rewritten.
func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET status = $2, accepted_at = $3, nurse_arrived_at = $4, arrival_confirmed_at = $5,
		    service_started_at = $6, service_ended_at = $7, cancelled_at = $8, cancelled_by = $9,
		    cancel_reason = $10, actual_duration = $11, actual_cost = $12, updated_at = $13
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Status,
		booking.AcceptedAt,
		booking.NurseArrivedAt,
		booking.ArrivalConfirmedAt,
		booking.ServiceStartedAt,
		booking.ServiceEndedAt,
		booking.CancelledAt,
		booking.CancelledBy,
		booking.CancelReason,
		booking.ActualDuration,
		booking.ActualCost,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(booking.Status)),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s: %w", booking.ID.String(), lifecycle.ErrNotFound)
	}

	return nil
}

func (f BookingFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if f.ProviderID != nil {
		args = append(args, *f.ProviderID)
		conds = append(conds, fmt.Sprintf("provider_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	where, args := filter.where()
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list bookings",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) Count(ctx context.Context, filter BookingFilter) (int64, error) {
	where, args := filter.where()
	query := `SELECT COUNT(*) FROM bookings` + where

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return 0, fmt.Errorf("count bookings: %w", err)
	}

	return count, nil
}

// arrival marked before $1, never confirmed
const staleArrivalWhere = `WHERE status = 'CONFIRMED'
		  AND nurse_arrived_at IS NOT NULL
		  AND arrival_confirmed_at IS NULL
		  AND nurse_arrived_at < $1`

func (r *bookingRepository) FindStaleArrivals(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings ` + staleArrivalWhere + `
		ORDER BY nurse_arrived_at
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		r.log.Error("Failed to find stale arrivals",
			zap.Error(err),
			zap.Time("cutoff", cutoff),
		)
		return nil, fmt.Errorf("find stale arrivals: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) CountStaleArrivals(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings `+staleArrivalWhere, cutoff).Scan(&total)
	if err != nil {
		r.log.Error("Failed to count stale arrivals", zap.Error(err), zap.Time("cutoff", cutoff))
		return 0, fmt.Errorf("count stale arrivals: %w", err)
	}
	return total, nil
}

func (r *bookingRepository) collect(rows pgx.Rows) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}
	return bookings, nil
}
