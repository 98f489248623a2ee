package models

import (
	"github.com/google/uuid"
)

type VisitorStatus string

const (
	VisitorStatusExpected   VisitorStatus = "expected"
	VisitorStatusCheckedIn  VisitorStatus = "checked_in"
	VisitorStatusCheckedOut VisitorStatus = "checked_out"
	VisitorStatusDenied     VisitorStatus = "denied"
)

var visitorTransitions = map[VisitorStatus][]VisitorStatus{
	VisitorStatusExpected:   {VisitorStatusCheckedIn, VisitorStatusDenied},
	VisitorStatusCheckedIn:  {VisitorStatusCheckedOut},
	VisitorStatusCheckedOut: {VisitorStatusCheckedIn},
	VisitorStatusDenied:     {VisitorStatusExpected},
}

// CanTransitionTo reports whether a visitor in status s may move to next.
func (s VisitorStatus) CanTransitionTo(next VisitorStatus) bool {
	for _, allowed := range visitorTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Visitor struct {
	ID             uuid.UUID     `json:"id"`
	TenantID       uuid.UUID     `json:"tenant_id"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Email          *string       `json:"email,omitempty"`
	Phone          *string       `json:"phone,omitempty"`
	Company        *string       `json:"company,omitempty"`
	DocumentNumber *string       `json:"document_number,omitempty"`
	PhotoURL       *string       `json:"photo_url,omitempty"`
	Status         VisitorStatus `json:"status"`
	Notes          *string       `json:"notes,omitempty"`
	Audit
}

type VisitorInput struct {
	FirstName      string        `json:"first_name" validate:"required,max=255"`
	LastName       string        `json:"last_name" validate:"required,max=255"`
	Email          *string       `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone          *string       `json:"phone,omitempty" validate:"omitempty,max=64"`
	Company        *string       `json:"company,omitempty" validate:"omitempty,max=255"`
	DocumentNumber *string       `json:"document_number,omitempty" validate:"omitempty,max=64"`
	PhotoURL       *string       `json:"photo_url,omitempty" validate:"omitempty,url"`
	Status         VisitorStatus `json:"status,omitempty" validate:"omitempty,oneof=expected checked_in checked_out denied"`
	Notes          *string       `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ImportFields
}
