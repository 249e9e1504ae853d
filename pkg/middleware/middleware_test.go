package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nurse-booking/internal/data/entity"
	"nurse-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSessions struct {
	session *entity.Session
	err     error
	gotTok  string
}

func (s *stubSessions) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	s.gotTok = token
	return s.session, s.err
}

func actorEcho(t *testing.T, want *utils.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := utils.GetActorFromContext(r.Context())
		require.True(t, ok)
		if want != nil {
			assert.Equal(t, *want, actor)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthSession(t *testing.T) {
	userID := uuid.New()
	sessions := &stubSessions{session: &entity.Session{UserID: userID, Role: entity.RoleDoctor}}
	want := utils.Actor{ID: userID, Role: entity.RoleDoctor}
	h := AuthSession(sessions, zap.NewNop())(actorEcho(t, &want))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"valid", "Bearer 0b6f1c0e-8d43-4c55-9f0a-2d1b2c3d4e5f", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Equal(t, "0b6f1c0e-8d43-4c55-9f0a-2d1b2c3d4e5f", sessions.gotTok)
}

func TestAuthSession_UnknownAndFailingLookups(t *testing.T) {
	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer tok")
		return r
	}

	rec := httptest.NewRecorder()
	AuthSession(&stubSessions{}, zap.NewNop())(actorEcho(t, nil)).ServeHTTP(rec, req())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	AuthSession(&stubSessions{err: errors.New("db down")}, zap.NewNop())(actorEcho(t, nil)).ServeHTTP(rec, req())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Providers(zap.NewNop())(ok)

	serve := func(actor *utils.Actor) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			r = r.WithContext(utils.SetActorContext(r.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&utils.Actor{ID: uuid.New(), Role: entity.RolePatient}))
	assert.Equal(t, http.StatusNoContent, serve(&utils.Actor{ID: uuid.New(), Role: entity.RoleNurse}))
	assert.Equal(t, http.StatusNoContent, serve(&utils.Actor{ID: uuid.New(), Role: entity.RoleDoctor}))
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2, zap.NewNop())
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 0, l.Cleanup(time.Now()))
	assert.Equal(t, 2, l.Cleanup(time.Now().Add(time.Hour)))
}

func TestRecover(t *testing.T) {
	h := Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bookings", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}
