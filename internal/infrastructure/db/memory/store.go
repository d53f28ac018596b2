// Package memory is a process-local implementation of ports.Store. Units of
// work buffer their writes and apply them atomically on Commit, re-checking
// the unique username and email constraints against the committed state.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
)

var ErrTxDone = errors.New("memory: unit of work already finished")

type Store struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		users: make(map[int64]domain.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Len returns the number of committed users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *Store) Users() ports.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) Begin(ctx context.Context) (ports.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &unitOfWork{store: s, dirty: make(map[int64]domain.User)}, nil
}

func (s *Store) allocID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *Store) get(id int64) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

func (s *Store) snapshot() map[int64]domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]domain.User, len(s.users))
	for id, u := range s.users {
		out[id] = u
	}
	return out
}

// apply writes the given users under the lock after checking uniqueness.
func (s *Store) apply(changes map[int64]domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[int64]domain.User, len(s.users)+len(changes))
	for id, u := range s.users {
		merged[id] = u
	}
	for id, u := range changes {
		merged[id] = u
	}
	for id, u := range changes {
		if err := checkUnique(merged, id, u); err != nil {
			return err
		}
	}
	for id, u := range changes {
		s.users[id] = u
	}
	return nil
}

func checkUnique(users map[int64]domain.User, id int64, u domain.User) error {
	for otherID, other := range users {
		if otherID == id {
			continue
		}
		if other.Username == u.Username {
			return domain.ErrUserExists
		}
		if other.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	return nil
}

type unitOfWork struct {
	store *Store
	dirty map[int64]domain.User
	done  bool
}

func (w *unitOfWork) Users() ports.UserRepository {
	return &userRepository{store: w.store, uow: w}
}

func (w *unitOfWork) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.store.apply(w.dirty)
}

func (w *unitOfWork) Rollback() error {
	w.done = true
	w.dirty = nil
	return nil
}

// view is the state visible inside the unit of work.
func (w *unitOfWork) view() map[int64]domain.User {
	users := w.store.snapshot()
	for id, u := range w.dirty {
		users[id] = u
	}
	return users
}

type userRepository struct {
	store *Store
	uow   *unitOfWork
}

func (r *userRepository) view() map[int64]domain.User {
	if r.uow != nil {
		return r.uow.view()
	}
	return r.store.snapshot()
}

func (r *userRepository) write(u domain.User) error {
	if r.uow != nil {
		if r.uow.done {
			return ErrTxDone
		}
		if err := checkUnique(r.uow.view(), u.ID, u); err != nil {
			return err
		}
		r.uow.dirty[u.ID] = u
		return nil
	}
	return r.store.apply(map[int64]domain.User{u.ID: u})
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkUnique(r.view(), 0, *user); err != nil {
		return nil, err
	}

	created := *user
	created.ID = r.store.allocID()
	created.JoinedAt = r.store.now()
	if created.AvatarURL == "" {
		created.AvatarURL = domain.DefaultAvatarURL
	}
	if err := r.write(created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.uow != nil {
		if u, ok := r.uow.dirty[id]; ok {
			return &u, nil
		}
	}
	u, ok := r.store.get(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, u := range r.view() {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := r.view()[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	return r.write(*user)
}
