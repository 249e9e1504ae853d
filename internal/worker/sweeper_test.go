package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/dto/response"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/usecase"
	"nurse-booking/pkg/clock"
	"nurse-booking/pkg/metrics"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubQuota struct {
	usecase.QuotaService
	calls int
	err   error
}

func (s *stubQuota) ExpireTrials(context.Context) (int64, error) {
	s.calls++
	return 0, s.err
}

type stubBookings struct {
	usecase.BookingService
	cancelled []uuid.UUID
	errs      map[uuid.UUID]error
}

func (s *stubBookings) CancelStaleArrival(_ context.Context, id uuid.UUID) (*response.BookingResponse, error) {
	if err := s.errs[id]; err != nil {
		return nil, err
	}
	s.cancelled = append(s.cancelled, id)
	return &response.BookingResponse{ID: id.String()}, nil
}

type stubFinder struct {
	stale  []*entity.Booking
	total  int64 // rows behind the batch; defaults to len(stale)
	err    error
	cutoff time.Time
	limit  int
}

func (s *stubFinder) FindStaleArrivals(_ context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error) {
	s.cutoff, s.limit = cutoff, limit
	return s.stale, s.err
}

func (s *stubFinder) CountStaleArrivals(context.Context, time.Time) (int64, error) {
	if s.total > 0 {
		return s.total, nil
	}
	return int64(len(s.stale)), nil
}

type stubCleaner struct{ at time.Time }

func (c *stubCleaner) Cleanup(now time.Time) int {
	c.at = now
	return 1
}

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func staleBooking() *entity.Booking {
	arrived := start.Add(-10 * time.Minute)
	return &entity.Booking{Base: entity.Base{ID: uuid.New()}, ProviderID: uuid.New(), Status: entity.BookingStatusConfirmed, NurseArrivedAt: &arrived}
}

func newTestSweeper(policy string, finder *stubFinder, bookings *stubBookings, quota *stubQuota) (*Sweeper, *prometheus.Registry, *stubCleaner) {
	reg := prometheus.NewRegistry()
	cleaner := &stubCleaner{}
	s := NewSweeper(Deps{
		Quota:    quota,
		Bookings: bookings,
		Finder:   finder,
		Clock:    clock.NewManual(start),
		Metrics:  metrics.NewBookingMetrics(reg),
		Limiter:  cleaner,
	}, utils.BookingConfig{
		ArrivalWindow:        5 * time.Minute,
		ExpiredArrivalPolicy: policy,
		SweepSchedule:        "@every 1m",
	}, zap.NewNop())
	return s, reg, cleaner
}

func staleGauge(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "nurse_booking_arrival_stale_unconfirmed" {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("stale arrivals gauge not registered")
	return 0
}

func TestRunOnce_HoldPolicyOnlyCounts(t *testing.T) {
	finder := &stubFinder{stale: []*entity.Booking{staleBooking(), staleBooking()}}
	bookings := &stubBookings{}
	quota := &stubQuota{}
	s, reg, cleaner := newTestSweeper(utils.ArrivalPolicyHold, finder, bookings, quota)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, 1, quota.calls)
	assert.Equal(t, start.Add(-5*time.Minute), finder.cutoff)
	assert.Equal(t, defaultBatchSize, finder.limit)
	assert.Empty(t, bookings.cancelled)
	assert.Equal(t, 2.0, staleGauge(t, reg))
	assert.Equal(t, start, cleaner.at)
}

func TestRunOnce_GaugeCountsBeyondBatch(t *testing.T) {
	finder := &stubFinder{stale: []*entity.Booking{staleBooking()}, total: 250}
	s, reg, _ := newTestSweeper(utils.ArrivalPolicyHold, finder, &stubBookings{}, &stubQuota{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 250.0, staleGauge(t, reg))
}

func TestRunOnce_CancelPolicy(t *testing.T) {
	confirmed, cancelled, broken := staleBooking(), staleBooking(), staleBooking()
	// only the broken one is still stale after the run
	finder := &stubFinder{stale: []*entity.Booking{confirmed, cancelled, broken}, total: 1}
	bookings := &stubBookings{errs: map[uuid.UUID]error{
		confirmed.ID: &lifecycle.TransitionError{Op: lifecycle.OpCancel, Status: entity.BookingStatusConfirmed, Reason: "no unconfirmed arrival"},
		broken.ID:    errors.New("connection reset"),
	}}
	s, reg, _ := newTestSweeper(utils.ArrivalPolicyCancel, finder, bookings, &stubQuota{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken.ID.String())

	assert.Equal(t, []uuid.UUID{cancelled.ID}, bookings.cancelled)
	assert.Equal(t, 1.0, staleGauge(t, reg))
}

func TestRunOnce_JobFailuresAreIndependent(t *testing.T) {
	finder := &stubFinder{err: errors.New("query failed")}
	quota := &stubQuota{err: errors.New("db down")}
	s, _, cleaner := newTestSweeper(utils.ArrivalPolicyHold, finder, &stubBookings{}, quota)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expire trials")
	assert.Contains(t, err.Error(), "stale arrivals")
	assert.Equal(t, start, cleaner.at)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	s := NewSweeper(Deps{}, utils.BookingConfig{SweepSchedule: "every now and then"}, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestSweeper(utils.ArrivalPolicyHold, &stubFinder{}, &stubBookings{}, &stubQuota{})
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
