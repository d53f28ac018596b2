package redis

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix = "session:"
	// defaultTTL applies to browser-session cookies (MaxAge == 0).
	defaultTTL = 24 * time.Hour
)

func init() {
	// gorilla stores flashes as []interface{}.
	gob.Register([]interface{}{})
}

// SessionBackend is the subset of the go-redis client used by SessionStore.
type SessionBackend interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionStore is a gorilla/sessions Store that keeps session values in
// Redis. The cookie carries only the signed session id.
// Key format: session:<uuid>
type SessionStore struct {
	backend SessionBackend
	codecs  []securecookie.Codec
	Options *sessions.Options
}

// NewSessionStore returns a SessionStore signing ids with keyPairs, as
// accepted by securecookie.CodecsFromPairs.
func NewSessionStore(backend SessionBackend, opts sessions.Options, keyPairs ...[]byte) *SessionStore {
	return &SessionStore{
		backend: backend,
		codecs:  securecookie.CodecsFromPairs(keyPairs...),
		Options: &opts,
	}
}

// Get returns the session cached for this request, loading it on first use.
func (s *SessionStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie, or returns a fresh
// one when there is no cookie or the stored values have expired.
func (s *SessionStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.codecs...); err != nil {
		session.ID = ""
		return session, err
	}

	found, err := s.load(r.Context(), session)
	if err != nil {
		return session, err
	}
	session.IsNew = !found
	return session, nil
}

// Save persists the session values and writes the id cookie. A negative
// MaxAge deletes the stored values and expires the cookie.
func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Del(ctx, s.key(session.ID)).Err(); err != nil {
				return fmt.Errorf("session delete: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if err := s.store(ctx, session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("session encode id: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *SessionStore) load(ctx context.Context, session *sessions.Session) (bool, error) {
	raw, err := s.backend.Get(ctx, s.key(session.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("session load: %w", err)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&session.Values); err != nil {
		return false, fmt.Errorf("session decode: %w", err)
	}
	return true, nil
}

func (s *SessionStore) store(ctx context.Context, session *sessions.Session) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(session.Values); err != nil {
		return fmt.Errorf("session encode: %w", err)
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := s.backend.Set(ctx, s.key(session.ID), buf.Bytes(), ttl).Err(); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

func (s *SessionStore) key(id string) string {
	return sessionPrefix + id
}
