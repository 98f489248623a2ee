package servicetest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/models"
)

var TenantID = uuid.MustParse("7b0f4a52-3f3e-4f5a-9a55-2f7c2a1d9e01")

func audit(in models.ImportFields, now time.Time) models.Audit {
	return models.Audit{ImportHash: in.ImportHash, CreatedAt: now, UpdatedAt: now}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func contains(value, search string) bool {
	return search == "" || strings.Contains(strings.ToLower(value), strings.ToLower(search))
}

func NewVisitorMemory() *Memory[models.Visitor, models.VisitorInput] {
	return NewMemory(MemoryConfig[models.Visitor, models.VisitorInput]{
		Entity: "visitor",
		New: func(id uuid.UUID, in models.VisitorInput, now time.Time) models.Visitor {
			status := in.Status
			if status == "" {
				status = models.VisitorStatusExpected
			}
			return models.Visitor{
				ID:             id,
				TenantID:       TenantID,
				FirstName:      in.FirstName,
				LastName:       in.LastName,
				Email:          in.Email,
				Phone:          in.Phone,
				Company:        in.Company,
				DocumentNumber: in.DocumentNumber,
				PhotoURL:       in.PhotoURL,
				Status:         status,
				Notes:          in.Notes,
				Audit:          audit(in.ImportFields, now),
			}
		},
		Apply: func(v models.Visitor, in models.VisitorInput, now time.Time) models.Visitor {
			v.FirstName, v.LastName = in.FirstName, in.LastName
			v.Email, v.Phone, v.Company = in.Email, in.Phone, in.Company
			v.DocumentNumber, v.PhotoURL, v.Notes = in.DocumentNumber, in.PhotoURL, in.Notes
			if in.Status != "" {
				v.Status = in.Status
			}
			v.UpdatedAt = now
			return v
		},
		ID:         func(v models.Visitor) uuid.UUID { return v.ID },
		ImportHash: func(v models.Visitor) *string { return v.ImportHash },
		Unique: map[string]func(models.Visitor) string{
			"email":           func(v models.Visitor) string { return stringValue(v.Email) },
			"document_number": func(v models.Visitor) string { return stringValue(v.DocumentNumber) },
		},
		Label: func(v models.Visitor) string { return v.FirstName + " " + v.LastName },
		Match: func(v models.Visitor, f models.Filter) bool {
			if status := f["status"]; status != "" && string(v.Status) != status {
				return false
			}
			return contains(v.FirstName, f["firstName"]) && contains(v.LastName, f["lastName"])
		},
	})
}

func NewHostMemory() *Memory[models.Host, models.HostInput] {
	return NewMemory(MemoryConfig[models.Host, models.HostInput]{
		Entity: "host",
		New: func(id uuid.UUID, in models.HostInput, now time.Time) models.Host {
			active := true
			if in.IsActive != nil {
				active = *in.IsActive
			}
			return models.Host{
				ID:         id,
				TenantID:   TenantID,
				FirstName:  in.FirstName,
				LastName:   in.LastName,
				Email:      in.Email,
				Phone:      in.Phone,
				Department: in.Department,
				IsActive:   active,
				Audit:      audit(in.ImportFields, now),
			}
		},
		Apply: func(h models.Host, in models.HostInput, now time.Time) models.Host {
			h.FirstName, h.LastName, h.Email = in.FirstName, in.LastName, in.Email
			h.Phone, h.Department = in.Phone, in.Department
			if in.IsActive != nil {
				h.IsActive = *in.IsActive
			}
			h.UpdatedAt = now
			return h
		},
		ID:         func(h models.Host) uuid.UUID { return h.ID },
		ImportHash: func(h models.Host) *string { return h.ImportHash },
		Unique: map[string]func(models.Host) string{
			"email": func(h models.Host) string { return h.Email },
		},
		Label: func(h models.Host) string { return h.FirstName + " " + h.LastName },
		Match: func(h models.Host, f models.Filter) bool {
			return contains(h.Email, f["email"]) && contains(stringValue(h.Department), f["department"])
		},
	})
}

func NewMeetingMemory() *Memory[models.Meeting, models.MeetingInput] {
	return NewMemory(MemoryConfig[models.Meeting, models.MeetingInput]{
		Entity: "meeting",
		New: func(id uuid.UUID, in models.MeetingInput, now time.Time) models.Meeting {
			status := in.Status
			if status == "" {
				status = models.MeetingStatusScheduled
			}
			return models.Meeting{
				ID:           id,
				TenantID:     TenantID,
				VisitorID:    in.VisitorID,
				HostID:       in.HostID,
				Purpose:      in.Purpose,
				Location:     in.Location,
				ScheduledAt:  in.ScheduledAt,
				CheckedInAt:  in.CheckedInAt,
				CheckedOutAt: in.CheckedOutAt,
				Status:       status,
				Audit:        audit(in.ImportFields, now),
			}
		},
		Apply: func(m models.Meeting, in models.MeetingInput, now time.Time) models.Meeting {
			m.VisitorID, m.HostID, m.Purpose, m.Location = in.VisitorID, in.HostID, in.Purpose, in.Location
			m.ScheduledAt, m.CheckedInAt, m.CheckedOutAt = in.ScheduledAt, in.CheckedInAt, in.CheckedOutAt
			if in.Status != "" {
				m.Status = in.Status
			}
			m.UpdatedAt = now
			return m
		},
		ID:         func(m models.Meeting) uuid.UUID { return m.ID },
		ImportHash: func(m models.Meeting) *string { return m.ImportHash },
		Label:      func(m models.Meeting) string { return m.Purpose },
		Match: func(m models.Meeting, f models.Filter) bool {
			if visitor := f["visitor"]; visitor != "" && m.VisitorID.String() != visitor {
				return false
			}
			if host := f["host"]; host != "" && m.HostID.String() != host {
				return false
			}
			return true
		},
	})
}

func NewQuestionnaireMemory() *Memory[models.Questionnaire, models.QuestionnaireInput] {
	return NewMemory(MemoryConfig[models.Questionnaire, models.QuestionnaireInput]{
		Entity: "questionnaire",
		New: func(id uuid.UUID, in models.QuestionnaireInput, now time.Time) models.Questionnaire {
			submitted := now
			if in.SubmittedAt != nil {
				submitted = *in.SubmittedAt
			}
			return models.Questionnaire{
				ID:           id,
				TenantID:     TenantID,
				VisitorID:    in.VisitorID,
				MeetingID:    in.MeetingID,
				Temperature:  in.Temperature,
				HasSymptoms:  in.HasSymptoms,
				RecentTravel: in.RecentTravel,
				CloseContact: in.CloseContact,
				Answers:      in.Answers,
				Passed:       in.Passed,
				SubmittedAt:  submitted,
				Audit:        audit(in.ImportFields, now),
			}
		},
		Apply: func(q models.Questionnaire, in models.QuestionnaireInput, now time.Time) models.Questionnaire {
			q.VisitorID, q.MeetingID, q.Temperature = in.VisitorID, in.MeetingID, in.Temperature
			q.HasSymptoms, q.RecentTravel, q.CloseContact = in.HasSymptoms, in.RecentTravel, in.CloseContact
			q.Answers, q.Passed = in.Answers, in.Passed
			if in.SubmittedAt != nil {
				q.SubmittedAt = *in.SubmittedAt
			}
			q.UpdatedAt = now
			return q
		},
		ID:         func(q models.Questionnaire) uuid.UUID { return q.ID },
		ImportHash: func(q models.Questionnaire) *string { return q.ImportHash },
		Label:      func(q models.Questionnaire) string { return q.SubmittedAt.Format(time.RFC3339) },
	})
}
