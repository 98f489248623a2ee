package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeverThreshold is the body temperature in °C at or above which a screening fails.
var FeverThreshold = decimal.RequireFromString("38.0")

type Questionnaire struct {
	ID           uuid.UUID        `json:"id"`
	TenantID     uuid.UUID        `json:"tenant_id"`
	VisitorID    uuid.UUID        `json:"visitor_id"`
	MeetingID    *uuid.UUID       `json:"meeting_id,omitempty"`
	Temperature  *decimal.Decimal `json:"temperature,omitempty"`
	HasSymptoms  bool             `json:"has_symptoms"`
	RecentTravel bool             `json:"recent_travel"`
	CloseContact bool             `json:"close_contact"`
	Answers      map[string]any   `json:"answers,omitempty"`
	Passed       bool             `json:"passed"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Audit
}

type QuestionnaireInput struct {
	VisitorID    uuid.UUID        `json:"visitor_id" validate:"required"`
	MeetingID    *uuid.UUID       `json:"meeting_id,omitempty"`
	Temperature  *decimal.Decimal `json:"temperature,omitempty"`
	HasSymptoms  bool             `json:"has_symptoms"`
	RecentTravel bool             `json:"recent_travel"`
	CloseContact bool             `json:"close_contact"`
	Answers      map[string]any   `json:"answers,omitempty"`
	SubmittedAt  *time.Time       `json:"submitted_at,omitempty"`
	ImportFields

	// Passed is computed by the service and never read from requests.
	Passed bool `json:"-"`
}

// Screen reports whether the answers clear the visitor for entry.
func (q QuestionnaireInput) Screen() bool {
	if q.HasSymptoms || q.RecentTravel || q.CloseContact {
		return false
	}
	if q.Temperature != nil && q.Temperature.GreaterThanOrEqual(FeverThreshold) {
		return false
	}
	return true
}
