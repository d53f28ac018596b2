package domain

import (
	"errors"
	"time"
)

// DefaultAvatarURL is shown for users that never set an avatar.
const DefaultAvatarURL = "https://thumbs.dreamstime.com/b/default-avatar-profile-vector-user-profile-default-avatar-profile-vector-user-profile-profile-179376714.jpg"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// User models a registered player.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Style        string    `json:"style,omitempty"`
	JoinedAt     time.Time `json:"join_date"`
	AvatarURL    string    `json:"avatar"`
}

// Avatar returns the user's avatar URL, falling back to DefaultAvatarURL.
func (u *User) Avatar() string {
	if u.AvatarURL == "" {
		return DefaultAvatarURL
	}
	return u.AvatarURL
}

// DisplayName prefers the first name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
