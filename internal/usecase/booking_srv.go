package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/dto/request"
	"nurse-booking/internal/dto/response"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/notify"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/metrics"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const StaleArrivalReason = "arrival_confirmation_expired"

type BookingService interface {
	// Patient
	CreateBooking(ctx context.Context, actor utils.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	ConfirmArrival(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)

	// Provider
	AcceptBooking(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)
	MarkArrival(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)
	StartService(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)
	StopService(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)

	// Either party or admin
	CancelBooking(ctx context.Context, actor utils.Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error)
	ListBookings(ctx context.Context, actor utils.Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// Maintenance
	CancelStaleArrival(ctx context.Context, bookingID uuid.UUID) (*response.BookingResponse, error)
}

type bookingService struct {
	repo          *repository.Repository
	machine       *lifecycle.Machine
	clock         clock.Clock
	notifier      notify.Dispatcher
	metrics       *metrics.BookingMetrics
	notifyTimeout time.Duration
	log           *zap.Logger
}

func NewBookingService(repo *repository.Repository, deps Deps, cfg utils.BookingConfig, log *zap.Logger) BookingService {
	timeout := cfg.NotificationTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &bookingService{
		repo:          repo,
		machine:       lifecycle.NewMachine(cfg.ArrivalWindow),
		clock:         deps.Clock,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		notifyTimeout: timeout,
		log:           log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor utils.Actor, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if actor.Role != entity.RolePatient {
		return nil, fmt.Errorf("%w: only patients can request bookings", lifecycle.ErrUnauthorized)
	}

	if err := validate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}

	providerID, err := parseID("provider_id", req.ProviderID)
	if err != nil {
		return nil, err
	}

	provider, err := s.repo.Provider.FindByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if provider == nil {
		return nil, ErrProviderNotFound
	}
	if !provider.IsVerified {
		return nil, &ValidationError{Fields: map[string]string{"provider_id": "Provider is not verified"}}
	}

	now := s.clock.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingCode: utils.GenerateBookingCode(now),
		ProviderID:  provider.UserID,
		PatientID:   actor.ID,
		ServiceType: entity.ServiceType(req.ServiceType),
		ScheduledAt: req.ScheduledAt.UTC(),
		Address:     req.Address,
		Notes:       req.Notes,
		HourlyRate:  provider.HourlyRate,
		Status:      entity.BookingStatusPending,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("patient_id", actor.ID.String()),
			zap.String("provider_id", providerID.String()),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_code", booking.BookingCode),
		zap.String("provider_id", booking.ProviderID.String()),
		zap.Float64("hourly_rate", booking.HourlyRate),
	)
	s.metrics.ObserveTransition("create", "ok")
	s.dispatch(ctx, notify.NewEvent(notify.EventBookingCreated, booking, actor.Role, now))

	resp := response.BookingToResponse(booking, now, s.machine.ArrivalWindow)
	return &resp, nil
}

func (s *bookingService) AcceptBooking(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	return s.transition(ctx, actor, bookingID, transition{
		op:        lifecycle.OpAccept,
		event:     notify.EventBookingAccepted,
		authorize: requireProvider,
		apply: func(tx *repository.Repository, b *entity.Booking, now time.Time) error {
			if err := s.machine.Accept(b, now); err != nil {
				return err
			}
			return s.consumeSlot(ctx, tx, b.ProviderID, now)
		},
	})
}

func (s *bookingService) CancelBooking(ctx context.Context, actor utils.Actor, bookingID string, req *request.CancelBookingRequest) (*response.BookingResponse, error) {
	if req == nil {
		req = &request.CancelBookingRequest{}
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, bookingID, transition{
		op:        lifecycle.OpCancel,
		event:     notify.EventBookingCancelled,
		authorize: requirePartyOrAdmin,
		apply: func(_ *repository.Repository, b *entity.Booking, now time.Time) error {
			return s.machine.Cancel(b, now, actor.Role, req.Reason)
		},
	})
}

func (s *bookingService) MarkArrival(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	return s.transition(ctx, actor, bookingID, transition{
		op:        lifecycle.OpMarkArrival,
		event:     notify.EventArrivalMarked,
		authorize: requireProvider,
		apply: func(_ *repository.Repository, b *entity.Booking, now time.Time) error {
			return s.machine.MarkArrival(b, now)
		},
	})
}

func (s *bookingService) ConfirmArrival(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	return s.transition(ctx, actor, bookingID, transition{
		op:        lifecycle.OpConfirmArrival,
		event:     notify.EventArrivalConfirmed,
		authorize: requirePatient,
		apply: func(_ *repository.Repository, b *entity.Booking, now time.Time) error {
			return s.machine.ConfirmArrival(b, now)
		},
	})
}

func (s *bookingService) StartService(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	return s.transition(ctx, actor, bookingID, transition{
		op:        lifecycle.OpStartService,
		event:     notify.EventServiceStarted,
		authorize: requireProvider,
		apply: func(_ *repository.Repository, b *entity.Booking, now time.Time) error {
			return s.machine.StartService(b, now)
		},
	})
}

func (s *bookingService) StopService(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	resp, err := s.transition(ctx, actor, bookingID, transition{
		op:        lifecycle.OpStopService,
		event:     notify.EventBookingCompleted,
		authorize: requireProvider,
		apply: func(_ *repository.Repository, b *entity.Booking, now time.Time) error {
			return s.machine.StopService(b, now)
		},
	})
	if err == nil && resp.ActualDuration != nil {
		s.metrics.ObserveBilledMinutes(*resp.ActualDuration)
	}
	return resp, err
}

// CancelStaleArrival cancels a booking whose arrival confirmation window has
// passed. The staleness is re-checked under the row lock, so a patient who
// confirms while the sweeper runs wins.
func (s *bookingService) CancelStaleArrival(ctx context.Context, bookingID uuid.UUID) (*response.BookingResponse, error) {
	return s.transition(ctx, utils.SystemActor, bookingID.String(), transition{
		op:    lifecycle.OpCancel,
		event: notify.EventBookingCancelled,
		authorize: func(actor utils.Actor, _ *entity.Booking) error {
			if actor.Role != entity.RoleSystem {
				return lifecycle.ErrUnauthorized
			}
			return nil
		},
		apply: func(_ *repository.Repository, b *entity.Booking, now time.Time) error {
			if b.NurseArrivedAt == nil || b.ArrivalConfirmedAt != nil {
				return &lifecycle.TransitionError{Op: lifecycle.OpCancel, Status: lifecycle.DeriveStatus(b), Reason: "no unconfirmed arrival"}
			}
			if !lifecycle.ArrivalWindowFor(*b.NurseArrivedAt, s.machine.ArrivalWindow).Expired(now) {
				return &lifecycle.TransitionError{Op: lifecycle.OpCancel, Status: lifecycle.DeriveStatus(b), Reason: "arrival window still open"}
			}
			return s.machine.Cancel(b, now, entity.RoleSystem, StaleArrivalReason)
		},
	})
}

func (s *bookingService) GetBooking(ctx context.Context, actor utils.Actor, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if err := requirePartyOrAdmin(actor, booking); err != nil {
		s.log.Warn("Booking read denied",
			zap.String("booking_id", bookingID),
			zap.String("actor_id", actor.ID.String()),
		)
		return nil, err
	}

	resp := response.BookingToResponse(booking, s.clock.Now(), s.machine.ArrivalWindow)
	return &resp, nil
}

func (s *bookingService) ListBookings(ctx context.Context, actor utils.Actor, req *request.ListBookingsRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = 10
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var filter repository.BookingFilter
	switch {
	case actor.Role == entity.RolePatient:
		filter.PatientID = &actor.ID
	case actor.IsProvider():
		filter.ProviderID = &actor.ID
	case actor.IsAdmin():
	default:
		return nil, fmt.Errorf("%w: role %s cannot list bookings", lifecycle.ErrUnauthorized, actor.Role)
	}
	if req.Status != "" {
		status := entity.BookingStatus(req.Status)
		filter.Status = &status
	}

	bookings, err := s.repo.Booking.List(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list bookings",
			zap.Error(err),
			zap.String("actor_id", actor.ID.String()),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	total, err := s.repo.Booking.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	now := s.clock.Now()
	items := make([]response.BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = response.BookingToResponse(b, now, s.machine.ArrivalWindow)
	}

	return response.NewPaginatedResponse(items, req.Page, req.Limit(), total), nil
}

type transition struct {
	op        string
	event     notify.EventType
	authorize func(actor utils.Actor, b *entity.Booking) error
	// apply mutates the working copy; tx is the transaction it runs in.
	apply func(tx *repository.Repository, b *entity.Booking, now time.Time) error
}

// transition: lock, authorize, apply on a copy, save. Notify after commit.
func (s *bookingService) transition(ctx context.Context, actor utils.Actor, bookingID string, t transition) (*response.BookingResponse, error) {
	id, err := parseID("id", bookingID)
	if err != nil {
		return nil, err
	}

	var updated *entity.Booking
	var now time.Time
	err = s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		current, err := tx.Booking.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrBookingNotFound
		}
		if err := t.authorize(actor, current); err != nil {
			return err
		}

		// read after the lock so timestamps follow commit order
		now = s.clock.Now()
		candidate := current.Clone()
		if err := t.apply(tx, candidate, now); err != nil {
			return err
		}

		if err := tx.Booking.Update(ctx, candidate); err != nil {
			return err
		}
		updated = candidate
		return nil
	})
	if err != nil {
		s.metrics.ObserveTransition(t.op, resultLabel(err))
		s.logRefusal(t.op, id, actor, err)
		return nil, fmt.Errorf("%s booking %s: %w", t.op, id, err)
	}

	s.metrics.ObserveTransition(t.op, "ok")
	s.log.Info("Booking transition applied",
		zap.String("op", t.op),
		zap.String("booking_id", id.String()),
		zap.String("status", string(updated.Status)),
		zap.String("actor_role", string(actor.Role)),
	)

	event := notify.NewEvent(t.event, updated, actor.Role, now)
	if t.event == notify.EventArrivalMarked && updated.NurseArrivedAt != nil {
		expires := lifecycle.ArrivalWindowFor(*updated.NurseArrivedAt, s.machine.ArrivalWindow).ExpiresAt
		event.ArrivalExpiresAt = &expires
	}
	s.dispatch(ctx, event)

	resp := response.BookingToResponse(updated, now, s.machine.ArrivalWindow)
	return &resp, nil
}

// consumeSlot runs inside the caller's tx
func (s *bookingService) consumeSlot(ctx context.Context, tx *repository.Repository, providerID uuid.UUID, now time.Time) error {
	sub, err := tx.Subscription.ConsumeSlot(ctx, providerID, now)
	if err != nil {
		return err
	}
	if sub != nil {
		if sub.Status == entity.SubscriptionPaused {
			s.log.Info("Booking quota exhausted, subscription paused",
				zap.String("provider_id", providerID.String()),
				zap.Int("bookings_used", sub.BookingsUsed),
			)
		}
		return nil
	}

	ledger, err := tx.Subscription.FindByProviderID(ctx, providerID)
	if err != nil {
		return err
	}
	decision := lifecycle.Admit(ledger, now)
	reason := decision.Reason
	if decision.Allowed {
		reason = lifecycle.DenyLimitReached
	}
	s.metrics.ObserveQuotaDenial(string(reason))
	return &lifecycle.AdmissionError{Reason: reason}
}

func (s *bookingService) dispatch(ctx context.Context, event notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.Dispatch(ctx, event); err != nil {
		s.metrics.ObserveNotifyFailure(string(event.Type))
		s.log.Warn("Failed to deliver booking notification",
			zap.Error(err),
			zap.String("type", string(event.Type)),
			zap.String("booking_id", event.BookingID.String()),
		)
	}
}

func (s *bookingService) logRefusal(op string, id uuid.UUID, actor utils.Actor, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("op", op),
		zap.String("booking_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
	}
	if resultLabel(err) == "error" {
		s.log.Error("Booking transition failed", fields...)
		return
	}
	s.log.Warn("Booking transition refused", fields...)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, lifecycle.ErrConfirmationExpired):
		return "confirmation_expired"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, lifecycle.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func requireProvider(actor utils.Actor, b *entity.Booking) error {
	if !actor.IsProvider() || actor.ID != b.ProviderID {
		return fmt.Errorf("%w: actor is not the booking's provider", lifecycle.ErrUnauthorized)
	}
	return nil
}

func requirePatient(actor utils.Actor, b *entity.Booking) error {
	if actor.Role != entity.RolePatient || actor.ID != b.PatientID {
		return fmt.Errorf("%w: actor is not the booking's patient", lifecycle.ErrUnauthorized)
	}
	return nil
}

func requirePartyOrAdmin(actor utils.Actor, b *entity.Booking) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsProvider() && actor.ID == b.ProviderID {
		return nil
	}
	if actor.Role == entity.RolePatient && actor.ID == b.PatientID {
		return nil
	}
	return fmt.Errorf("%w: actor is not a party to the booking", lifecycle.ErrUnauthorized)
}
