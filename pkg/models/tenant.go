package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	URL           *string    `json:"url,omitempty"`
	Plan          PlanKey    `json:"plan"`
	PlanStatus    PlanStatus `json:"plan_status"`
	PlanUpdatedAt *time.Time `json:"plan_updated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type TenantInput struct {
	Name string  `json:"name" validate:"required,max=255"`
	URL  *string `json:"url,omitempty" validate:"omitempty,max=63,hostname_rfc1123"`
}

type ChangePlanRequest struct {
	Plan PlanKey `json:"plan" validate:"required,oneof=free growth enterprise"`
}

type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipInvited MembershipStatus = "invited"
	MembershipPending MembershipStatus = "pending"
)

type TenantUser struct {
	ID              uuid.UUID        `json:"id"`
	TenantID        uuid.UUID        `json:"tenant_id"`
	UserID          uuid.UUID        `json:"user_id"`
	Roles           []string         `json:"roles"`
	Status          MembershipStatus `json:"status"`
	InvitationToken *string          `json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	Tenant *Tenant `json:"tenant,omitempty"`
	User   *User   `json:"user,omitempty"`
}

type InviteUsersRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,dive,required,email"`
	Roles  []string `json:"roles" validate:"required,min=1"`
}

type UpdateRolesRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Roles  []string  `json:"roles" validate:"required,min=1"`
}
