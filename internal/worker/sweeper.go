package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/usecase"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/metrics"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultBatchSize = 100
	runTimeout       = 45 * time.Second
)

// StaleArrivalFinder lists and counts confirmed bookings whose arrival was
// marked before cutoff and never confirmed.
type StaleArrivalFinder interface {
	FindStaleArrivals(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error)
	CountStaleArrivals(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cleaner drops idle per-client state, e.g. rate limiter buckets.
type Cleaner interface {
	Cleanup(now time.Time) int
}

type Deps struct {
	Quota    usecase.QuotaService
	Bookings usecase.BookingService
	Finder   StaleArrivalFinder
	Clock    clock.Clock
	Metrics  *metrics.BookingMetrics
	Limiter  Cleaner
}

// Sweeper runs the periodic maintenance jobs: trial expiry and the
// expired-arrival policy.
type Sweeper struct {
	deps      Deps
	cfg       utils.BookingConfig
	batchSize int
	cron      *cron.Cron
	log       *zap.Logger
}

func NewSweeper(deps Deps, cfg utils.BookingConfig, log *zap.Logger) *Sweeper {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	log = log.With(zap.String("worker", "sweeper"))
	cl := cronLogger{log.Sugar()}

	return &Sweeper{
		deps:      deps,
		cfg:       cfg,
		batchSize: defaultBatchSize,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Start schedules RunOnce on the configured cron schedule.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("Sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper %q: %w", s.cfg.SweepSchedule, err)
	}

	s.cron.Start()
	s.log.Info("Sweeper started", zap.String("schedule", s.cfg.SweepSchedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Sweeper stop timed out")
	}
}

// RunOnce runs every job once. A failing job does not stop the others.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	var errs []error

	if _, err := s.deps.Quota.ExpireTrials(ctx); err != nil {
		errs = append(errs, fmt.Errorf("expire trials: %w", err))
	}

	if err := s.sweepArrivals(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stale arrivals: %w", err))
	}

	if s.deps.Limiter != nil {
		if n := s.deps.Limiter.Cleanup(s.deps.Clock.Now()); n > 0 {
			s.log.Debug("Dropped idle rate limit buckets", zap.Int("count", n))
		}
	}

	return errors.Join(errs...)
}

func (s *Sweeper) sweepArrivals(ctx context.Context) error {
	cutoff := s.deps.Clock.Now().Add(-s.cfg.ArrivalWindow)
	stale, err := s.deps.Finder.FindStaleArrivals(ctx, cutoff, s.batchSize)
	if err != nil {
		return err
	}

	var errs []error
	if s.cfg.ExpiredArrivalPolicy == utils.ArrivalPolicyCancel {
		for _, b := range stale {
			if err := s.cancelStale(ctx, b.ID); err != nil {
				errs = append(errs, err)
			}
		}
	} else {
		for _, b := range stale {
			s.log.Warn("Arrival confirmation expired, holding booking",
				zap.String("booking_id", b.ID.String()),
				zap.String("provider_id", b.ProviderID.String()),
				zap.Time("nurse_arrived_at", *b.NurseArrivedAt))
		}
	}

	// batch is capped, the gauge is not
	total, err := s.deps.Finder.CountStaleArrivals(ctx, cutoff)
	if err != nil {
		errs = append(errs, err)
	} else {
		s.deps.Metrics.SetStaleArrivals(int(total))
	}
	return errors.Join(errs...)
}

func (s *Sweeper) cancelStale(ctx context.Context, id uuid.UUID) error {
	_, err := s.deps.Bookings.CancelStaleArrival(ctx, id)
	if err == nil {
		s.log.Info("Cancelled booking with expired arrival confirmation", zap.String("booking_id", id.String()))
		return nil
	}

	// Confirmed or cancelled since it was listed.
	var terr *lifecycle.TransitionError
	if errors.As(err, &terr) {
		s.log.Debug("Stale booking moved on before cancel", zap.String("booking_id", id.String()), zap.String("reason", terr.Reason))
		return nil
	}
	return fmt.Errorf("cancel booking %s: %w", id, err)
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
