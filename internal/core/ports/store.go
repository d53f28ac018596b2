package ports

import (
	"context"

	"github.com/dndboard/dndboard/internal/core/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts the user and fills in ID and JoinedAt. Uniqueness
	// violations are reported as domain.ErrUserExists or domain.ErrEmailTaken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Update writes the mutable profile fields of an existing user.
	Update(ctx context.Context, user *domain.User) error
}

// Tx finalizes a unit of work.
type Tx interface {
	Commit() error
	// Rollback discards staged changes. Calling it after Commit is a no-op.
	Rollback() error
}

// UnitOfWork is a transaction-scoped view of the store.
type UnitOfWork interface {
	Tx
	Users() UserRepository
}

// Store is the persistence layer. Users() runs each call on its own;
// Begin opens a unit of work the caller must finalize.
type Store interface {
	Users() UserRepository
	Begin(ctx context.Context) (UnitOfWork, error)
}
