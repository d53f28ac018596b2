package ports

import (
	"context"

	"github.com/dndboard/dndboard/internal/core/domain"
)

// SignupInput carries the plaintext credentials of a new user.
type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileEdit carries the user-editable profile fields.
type ProfileEdit struct {
	Email     string
	FirstName string
	LastName  string
	Style     string
	Bio       string
	AvatarURL string
}

// StagedUser is a user change that is not persisted until Commit.
type StagedUser struct {
	User *domain.User
	Tx   Tx
}

// Commit persists the staged change.
func (s *StagedUser) Commit() error {
	return s.Tx.Commit()
}

// Rollback discards the staged change. Safe to defer after Commit.
func (s *StagedUser) Rollback() error {
	return s.Tx.Rollback()
}

// IdentityService covers signup, authentication and profile edits.
type IdentityService interface {
	Signup(ctx context.Context, in SignupInput) (*StagedUser, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Update(ctx context.Context, userID int64, edit ProfileEdit) (*StagedUser, error)
	FindUser(ctx context.Context, id int64) (*domain.User, error)
}
