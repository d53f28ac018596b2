package redis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

type fakeBackend struct {
	data map[string][]byte
	ttl  map[string]time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (f *fakeBackend) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeBackend) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeBackend) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func newTestStore(backend SessionBackend) *SessionStore {
	return NewSessionStore(backend, sessions.Options{Path: "/", MaxAge: 3600, HttpOnly: true}, []byte("0123456789abcdef0123456789abcdef"))
}

func roundTrip(t *testing.T, store *SessionStore, prev *http.Cookie, mutate func(s *sessions.Session)) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if prev != nil {
		req.AddCookie(prev)
	}
	rec := httptest.NewRecorder()

	s, err := store.Get(req, "sid")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	mutate(s)
	if err := s.Save(req, rec); err != nil {
		t.Fatalf("save session: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestSessionStore_PersistsValues(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(backend)

	cookie := roundTrip(t, store, nil, func(s *sessions.Session) {
		if !s.IsNew {
			t.Fatalf("expected new session")
		}
		s.Values["user_id"] = int64(42)
		s.AddFlash("welcome", "success")
	})

	if len(backend.data) != 1 {
		t.Fatalf("expected one stored session, got %d", len(backend.data))
	}
	for key, ttl := range backend.ttl {
		if !strings.HasPrefix(key, "session:") {
			t.Fatalf("unexpected key %q", key)
		}
		if ttl != time.Hour {
			t.Fatalf("expected ttl of MaxAge, got %v", ttl)
		}
	}
	if strings.Contains(cookie.Value, "42") {
		t.Fatalf("cookie must carry only the signed id")
	}

	roundTrip(t, store, cookie, func(s *sessions.Session) {
		if s.IsNew {
			t.Fatalf("expected existing session")
		}
		if s.Values["user_id"] != int64(42) {
			t.Fatalf("expected user_id 42, got %v", s.Values["user_id"])
		}
		flashes := s.Flashes("success")
		if len(flashes) != 1 || flashes[0] != "welcome" {
			t.Fatalf("unexpected flashes: %v", flashes)
		}
	})
}

func TestSessionStore_ExpiredValuesStartFresh(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(backend)

	cookie := roundTrip(t, store, nil, func(s *sessions.Session) { s.Values["user_id"] = int64(1) })
	for k := range backend.data {
		delete(backend.data, k)
	}

	roundTrip(t, store, cookie, func(s *sessions.Session) {
		if !s.IsNew {
			t.Fatalf("expected a fresh session once values are gone")
		}
		if _, ok := s.Values["user_id"]; ok {
			t.Fatalf("expected no user_id")
		}
	})
}

func TestSessionStore_NegativeMaxAgeDeletes(t *testing.T) {
	backend := newFakeBackend()
	store := newTestStore(backend)

	cookie := roundTrip(t, store, nil, func(s *sessions.Session) { s.Values["user_id"] = int64(1) })

	expired := roundTrip(t, store, cookie, func(s *sessions.Session) { s.Options.MaxAge = -1 })
	if len(backend.data) != 0 {
		t.Fatalf("expected stored session to be deleted")
	}
	if expired.MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got MaxAge %d", expired.MaxAge)
	}
}

func TestSessionStore_TamperedCookie(t *testing.T) {
	store := newTestStore(newFakeBackend())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "forged"})

	s, err := store.New(req, "sid")
	if err == nil {
		t.Fatalf("expected decode error for forged cookie")
	}
	if s == nil || !s.IsNew || s.ID != "" {
		t.Fatalf("expected a fresh session alongside the error, got %+v", s)
	}
}
