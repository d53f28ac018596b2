package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dndboard/dndboard/internal/core/ports"
)

// Store implements ports.Store on a *sql.DB.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Users returns a repository that runs each statement on its own.
func (s *Store) Users() ports.UserRepository {
	return NewUserRepository(s.db)
}

// Begin opens a transaction. Repositories vended by the returned unit of
// work run inside it.
func (s *Store) Begin(ctx context.Context) (ports.UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &unitOfWork{tx: tx}, nil
}

type unitOfWork struct {
	tx *sql.Tx
}

func (u *unitOfWork) Users() ports.UserRepository {
	return NewUserRepository(u.tx)
}

func (u *unitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

func (u *unitOfWork) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
