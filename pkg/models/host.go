package models

import "github.com/google/uuid"

type Host struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      *string   `json:"phone,omitempty"`
	Department *string   `json:"department,omitempty"`
	IsActive   bool      `json:"is_active"`
	Audit
}

type HostInput struct {
	FirstName  string  `json:"first_name" validate:"required,max=255"`
	LastName   string  `json:"last_name" validate:"required,max=255"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=64"`
	Department *string `json:"department,omitempty" validate:"omitempty,max=255"`
	IsActive   *bool   `json:"is_active,omitempty"`
	ImportFields
}
