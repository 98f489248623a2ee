package models

import (
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingStatusScheduled  MeetingStatus = "scheduled"
	MeetingStatusInProgress MeetingStatus = "in_progress"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusCancelled  MeetingStatus = "cancelled"
)

type Meeting struct {
	ID           uuid.UUID     `json:"id"`
	TenantID     uuid.UUID     `json:"tenant_id"`
	VisitorID    uuid.UUID     `json:"visitor_id"`
	HostID       uuid.UUID     `json:"host_id"`
	Purpose      string        `json:"purpose"`
	Location     *string       `json:"location,omitempty"`
	ScheduledAt  time.Time     `json:"scheduled_at"`
	CheckedInAt  *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time    `json:"checked_out_at,omitempty"`
	Status       MeetingStatus `json:"status"`
	Audit
}

type MeetingInput struct {
	VisitorID    uuid.UUID     `json:"visitor_id" validate:"required"`
	HostID       uuid.UUID     `json:"host_id" validate:"required"`
	Purpose      string        `json:"purpose" validate:"required,max=500"`
	Location     *string       `json:"location,omitempty" validate:"omitempty,max=255"`
	ScheduledAt  time.Time     `json:"scheduled_at" validate:"required"`
	CheckedInAt  *time.Time    `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time    `json:"checked_out_at,omitempty"`
	Status       MeetingStatus `json:"status,omitempty" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
	ImportFields
}
