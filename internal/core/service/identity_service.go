package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
)

// IdentityService implements signup, login and profile edits.
type IdentityService struct {
	store    ports.Store
	hashCost int
	log      zerolog.Logger
}

// NewIdentityService returns an IdentityService. A hashCost outside bcrypt's
// accepted range falls back to bcrypt.DefaultCost.
func NewIdentityService(store ports.Store, hashCost int, log zerolog.Logger) *IdentityService {
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	return &IdentityService{store: store, hashCost: hashCost, log: log}
}

// Signup hashes the password and stages a new user. The caller commits or
// rolls back the returned change.
func (s *IdentityService) Signup(ctx context.Context, in ports.SignupInput) (*ports.StagedUser, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("signup: hash password: %w", err)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("signup: begin: %w", err)
	}

	created, err := uow.Users().Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		AvatarURL:    domain.DefaultAvatarURL,
	})
	if err != nil {
		_ = uow.Rollback()
		if isConflict(err) {
			s.log.Debug().Str("username", username).Err(err).Msg("signup rejected")
			return nil, err
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	return &ports.StagedUser{User: created, Tx: uow}, nil
}

// Authenticate returns the user when the password matches the stored hash.
// Unknown users and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.Users().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Update stages profile edits for the given user. Edits do not require the
// password again; the session already proves who is editing.
func (s *IdentityService) Update(ctx context.Context, userID int64, edit ports.ProfileEdit) (*ports.StagedUser, error) {
	email := strings.TrimSpace(edit.Email)
	if email == "" {
		return nil, domain.ErrInvalidInput
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update: begin: %w", err)
	}

	user, err := uow.Users().FindByID(ctx, userID)
	if err != nil {
		_ = uow.Rollback()
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update: %w", err)
	}

	user.Email = email
	user.FirstName = strings.TrimSpace(edit.FirstName)
	user.LastName = strings.TrimSpace(edit.LastName)
	user.Style = strings.TrimSpace(edit.Style)
	user.Bio = strings.TrimSpace(edit.Bio)
	user.AvatarURL = strings.TrimSpace(edit.AvatarURL)
	if user.AvatarURL == "" {
		user.AvatarURL = domain.DefaultAvatarURL
	}

	if err := uow.Users().Update(ctx, user); err != nil {
		_ = uow.Rollback()
		if isConflict(err) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update: %w", err)
	}

	return &ports.StagedUser{User: user, Tx: uow}, nil
}

// FindUser loads a user by id.
func (s *IdentityService) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.store.Users().FindByID(ctx, id)
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrUserExists) || errors.Is(err, domain.ErrEmailTaken)
}
