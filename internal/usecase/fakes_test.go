package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/internal/data/repository"
	"nurse-booking/internal/lifecycle"
	"nurse-booking/internal/notify"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for PostgreSQL. Transactions are
// serialized and roll back to a snapshot on error, which is the behaviour
// the row locks give the real store.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	bookings  map[uuid.UUID]*entity.Booking
	subs      map[uuid.UUID]*entity.Subscription
	providers map[uuid.UUID]*entity.Provider
	users     map[uuid.UUID]*entity.User
}

func newMemStore() *memStore {
	return &memStore{
		bookings:  map[uuid.UUID]*entity.Booking{},
		subs:      map[uuid.UUID]*entity.Subscription{},
		providers: map[uuid.UUID]*entity.Provider{},
		users:     map[uuid.UUID]*entity.User{},
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:         memUsers{m},
		Provider:     memProviders{m},
		Booking:      memBookings{m},
		Subscription: memSubs{m},
		Tx:           m,
	}
}

func (m *memStore) WithinTx(ctx context.Context, fn func(repo *repository.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	bookings := make(map[uuid.UUID]*entity.Booking, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v.Clone()
	}
	subs := make(map[uuid.UUID]*entity.Subscription, len(m.subs))
	for k, v := range m.subs {
		subs[k] = cloneSub(v)
	}
	m.mu.Unlock()

	if err := fn(m.repository()); err != nil {
		m.mu.Lock()
		m.bookings, m.subs = bookings, subs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) booking(id uuid.UUID) *entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		return b.Clone()
	}
	return nil
}

func (m *memStore) subscription(providerID uuid.UUID) *entity.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[providerID]; ok {
		return cloneSub(s)
	}
	return nil
}

func (m *memStore) putBooking(b *entity.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b.Clone()
}

func (m *memStore) putSub(s *entity.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ProviderID] = cloneSub(s)
}

func (m *memStore) putProvider(p *entity.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.providers[p.UserID] = &cp
}

func cloneSub(s *entity.Subscription) *entity.Subscription {
	cp := *s
	if s.BookingLimit != nil {
		v := *s.BookingLimit
		cp.BookingLimit = &v
	}
	if s.TrialEndsAt != nil {
		v := *s.TrialEndsAt
		cp.TrialEndsAt = &v
	}
	return &cp
}

type memBookings struct{ m *memStore }

func (r memBookings) Create(_ context.Context, b *entity.Booking) error {
	r.m.putBooking(b)
	return nil
}

func (r memBookings) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.m.booking(id), nil
}

func (r memBookings) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r memBookings) Update(_ context.Context, b *entity.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.bookings[b.ID]; !ok {
		return errors.New("booking not found")
	}
	r.m.bookings[b.ID] = b.Clone()
	return nil
}

func (r memBookings) matching(f repository.BookingFilter) []*entity.Booking {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*entity.Booking
	for _, b := range r.m.bookings {
		if f.PatientID != nil && b.PatientID != *f.PatientID {
			continue
		}
		if f.ProviderID != nil && b.ProviderID != *f.ProviderID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memBookings) List(_ context.Context, f repository.BookingFilter, limit, offset int) ([]*entity.Booking, error) {
	all := r.matching(f)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memBookings) Count(_ context.Context, f repository.BookingFilter) (int64, error) {
	return int64(len(r.matching(f))), nil
}

func (r memBookings) FindStaleArrivals(_ context.Context, cutoff time.Time, limit int) ([]*entity.Booking, error) {
	status := entity.BookingStatusConfirmed
	var out []*entity.Booking
	for _, b := range r.matching(repository.BookingFilter{Status: &status}) {
		if b.NurseArrivedAt != nil && b.ArrivalConfirmedAt == nil && b.NurseArrivedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memBookings) CountStaleArrivals(ctx context.Context, cutoff time.Time) (int64, error) {
	stale, _ := r.FindStaleArrivals(ctx, cutoff, 1<<30)
	return int64(len(stale)), nil
}

type memSubs struct{ m *memStore }

func (r memSubs) FindByProviderID(_ context.Context, providerID uuid.UUID) (*entity.Subscription, error) {
	return r.m.subscription(providerID), nil
}

func (r memSubs) FindByProviderIDForUpdate(ctx context.Context, providerID uuid.UUID) (*entity.Subscription, error) {
	return r.FindByProviderID(ctx, providerID)
}

func (r memSubs) ConsumeSlot(_ context.Context, providerID uuid.UUID, now time.Time) (*entity.Subscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sub, ok := r.m.subs[providerID]
	if !ok {
		return nil, nil
	}
	next := cloneSub(sub)
	if err := lifecycle.Consume(next, now); err != nil {
		return nil, nil
	}
	r.m.subs[providerID] = next
	return cloneSub(next), nil
}

func (r memSubs) Save(_ context.Context, sub *entity.Subscription) error {
	// mirrors subscriptions_not_over_limit
	if sub.BookingLimit != nil && sub.BookingsUsed > *sub.BookingLimit {
		return errors.New("subscriptions_not_over_limit violated")
	}
	r.m.putSub(sub)
	return nil
}

func (r memSubs) ExpireTrials(_ context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, s := range r.m.subs {
		if s.Status == entity.SubscriptionTrial && s.TrialEndsAt != nil && s.TrialEndsAt.Before(now) {
			s.Status = entity.SubscriptionExpired
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

type memProviders struct{ m *memStore }

func (r memProviders) FindByID(_ context.Context, id uuid.UUID) (*entity.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p, ok := r.m.providers[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r memProviders) SetDuty(_ context.Context, id uuid.UUID, onDuty bool, now time.Time) (*entity.Provider, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.providers[id]
	if !ok {
		return nil, nil
	}
	if p.OnDuty != onDuty {
		t := now
		p.DutyChangedAt = &t
	}
	p.OnDuty = onDuty
	p.UpdatedAt = now
	cp := *p
	return &cp, nil
}

type memUsers struct{ m *memStore }

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Dispatch(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, len(n.events))
	for i, e := range n.events {
		out[i] = e.Type
	}
	return out
}
