package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dndboard/dndboard/internal/core/domain"
)

const (
	uniqueViolation    = "23505"
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
	selectUserColumns  = `SELECT id, username, email, password, COALESCE(role, ''), COALESCE(bio, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(style, ''), join_date, COALESCE(avatar, '') FROM users`
)

// UserRepository implements ports.UserRepository on PostgreSQL.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills in the generated id and join date.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `INSERT INTO users (username, email, password, first_name, last_name, avatar)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, join_date`

	avatar := user.AvatarURL
	if avatar == "" {
		avatar = domain.DefaultAvatarURL
	}

	created := *user
	created.AvatarURL = avatar
	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash,
		nullString(user.FirstName), nullString(user.LastName), avatar,
	).Scan(&created.ID, &created.JoinedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE id = $1`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, selectUserColumns+` WHERE username = $1`, username)
}

// Update writes the profile fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `UPDATE users
		SET email = $1, first_name = $2, last_name = $3, style = $4, bio = $5, avatar = $6
		WHERE id = $7`

	res, err := r.db.ExecContext(ctx, query,
		user.Email, nullString(user.FirstName), nullString(user.LastName),
		nullString(user.Style), nullString(user.Bio), nullString(user.AvatarURL),
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.Role, &u.Bio, &u.FirstName, &u.LastName, &u.Style,
		&u.JoinedAt, &u.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

// mapError turns unique violations into domain conflicts.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return domain.ErrUserExists
		case emailConstraint:
			return domain.ErrEmailTaken
		}
		return domain.ErrUserExists
	}
	return fmt.Errorf("db error: %w", err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
