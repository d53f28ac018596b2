package handler

import (
	"strings"

	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
)

type SignupForm struct {
	Username  string `form:"username"   validate:"required,max=50"`
	Email     string `form:"email"      validate:"required,email,max=254"`
	Password  string `form:"password"   validate:"required,min=6,max=72"`
	FirstName string `form:"first_name" validate:"max=50"`
	LastName  string `form:"last_name"  validate:"max=50"`
}

func (f SignupForm) input() ports.SignupInput {
	return ports.SignupInput{
		Username:  f.Username,
		Email:     f.Email,
		Password:  f.Password,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type ProfileForm struct {
	Email     string `form:"email"      validate:"required,email,max=254"`
	FirstName string `form:"first_name" validate:"max=50"`
	LastName  string `form:"last_name"  validate:"max=50"`
	Style     string `form:"style"      validate:"max=100"`
	Bio       string `form:"bio"        validate:"max=2000"`
	AvatarURL string `form:"avatar_url" validate:"omitempty,url"`
}

func profileFormFor(u *domain.User) ProfileForm {
	f := ProfileForm{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Style:     u.Style,
		Bio:       u.Bio,
	}
	if u.AvatarURL != domain.DefaultAvatarURL {
		f.AvatarURL = u.AvatarURL
	}
	return f
}

func (f ProfileForm) edit() ports.ProfileEdit {
	return ports.ProfileEdit{
		Email:     strings.TrimSpace(f.Email),
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Style:     f.Style,
		Bio:       f.Bio,
		AvatarURL: strings.TrimSpace(f.AvatarURL),
	}
}

// formPage is the template data of every form page.
type formPage[T any] struct {
	Form   T
	Errors FormErrors
}
