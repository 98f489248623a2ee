package questionnaire

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const questionnairesTable = "health_questionnaires"

var constraintFields = database.ConstraintFields{
	"health_questionnaires_visitor_id_fkey":        "visitor_id",
	"health_questionnaires_meeting_id_fkey":        "meeting_id",
	"health_questionnaires_tenant_import_hash_key": "import_hash",
}

type QuestionnaireRow struct {
	ID           uuid.UUID                      `db:"id"`
	VisitorID    uuid.UUID                      `db:"visitor_id"`
	MeetingID    uuid.NullUUID                  `db:"meeting_id"`
	Temperature  decimal.NullDecimal            `db:"temperature"`
	HasSymptoms  bool                           `db:"has_symptoms"`
	RecentTravel bool                           `db:"recent_travel"`
	CloseContact bool                           `db:"close_contact"`
	Answers      database.JSONB[map[string]any] `db:"answers"`
	Passed       bool                           `db:"passed"`
	SubmittedAt  time.Time                      `db:"submitted_at"`
	repositories.AuditRow
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func answers(in models.QuestionnaireInput) database.JSONB[map[string]any] {
	if in.Answers == nil {
		return database.JSONB[map[string]any]{Data: map[string]any{}}
	}
	return database.JSONB[map[string]any]{Data: in.Answers}
}

func submittedAt(in models.QuestionnaireInput) time.Time {
	if in.SubmittedAt == nil {
		return repositories.Now()
	}
	return in.SubmittedAt.UTC()
}

func FromInput(id uuid.UUID, audit repositories.AuditRow, in models.QuestionnaireInput) *QuestionnaireRow {
	return &QuestionnaireRow{
		ID:           id,
		VisitorID:    in.VisitorID,
		MeetingID:    repositories.NullUUID(in.MeetingID),
		Temperature:  nullDecimal(in.Temperature),
		HasSymptoms:  in.HasSymptoms,
		RecentTravel: in.RecentTravel,
		CloseContact: in.CloseContact,
		Answers:      answers(in),
		Passed:       in.Passed,
		SubmittedAt:  submittedAt(in),
		AuditRow:     audit,
	}
}

func ToQuestionnaire(row *QuestionnaireRow) *models.Questionnaire {
	var temperature *decimal.Decimal
	if row.Temperature.Valid {
		temperature = &row.Temperature.Decimal
	}
	return &models.Questionnaire{
		ID:           row.ID,
		TenantID:     row.TenantID,
		VisitorID:    row.VisitorID,
		MeetingID:    repositories.UUIDPtr(row.MeetingID),
		Temperature:  temperature,
		HasSymptoms:  row.HasSymptoms,
		RecentTravel: row.RecentTravel,
		CloseContact: row.CloseContact,
		Answers:      row.Answers.Data,
		Passed:       row.Passed,
		SubmittedAt:  row.SubmittedAt,
		Audit:        row.ToAudit(),
	}
}

func assign(ub *database.UpdateBuilder, in models.QuestionnaireInput) []string {
	set := []string{
		ub.Assign("visitor_id", in.VisitorID),
		ub.Assign("meeting_id", repositories.NullUUID(in.MeetingID)),
		ub.Assign("temperature", nullDecimal(in.Temperature)),
		ub.Assign("has_symptoms", in.HasSymptoms),
		ub.Assign("recent_travel", in.RecentTravel),
		ub.Assign("close_contact", in.CloseContact),
		ub.Assign("answers", answers(in)),
		ub.Assign("passed", in.Passed),
	}
	if in.SubmittedAt != nil {
		set = append(set, ub.Assign("submitted_at", in.SubmittedAt.UTC()))
	}
	return set
}
