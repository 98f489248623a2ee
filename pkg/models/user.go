package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FirstName     *string   `json:"first_name,omitempty"`
	LastName      *string   `json:"last_name,omitempty"`
	FullName      *string   `json:"full_name,omitempty"`
	PhoneNumber   *string   `json:"phone_number,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	Disabled      bool      `json:"disabled"`
	PasswordHash  *string   `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Tenants []TenantUser `json:"tenants,omitempty"`
}

type SignUpRequest struct {
	Email           string     `json:"email" validate:"required,email,max=255"`
	Password        string     `json:"password" validate:"required,min=8,max=72,maxbytes=72"`
	InvitationToken *string    `json:"invitation_token,omitempty"`
	TenantID        *uuid.UUID `json:"tenant_id,omitempty"`
}

type SignInRequest struct {
	Email           string     `json:"email" validate:"required,email"`
	Password        string     `json:"password" validate:"required"`
	InvitationToken *string    `json:"invitation_token,omitempty"`
	TenantID        *uuid.UUID `json:"tenant_id,omitempty"`
}

type ProfileInput struct {
	FirstName   *string `json:"first_name,omitempty" validate:"omitempty,max=80"`
	LastName    *string `json:"last_name,omitempty" validate:"omitempty,max=175"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,max=24"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,maxbytes=72"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
