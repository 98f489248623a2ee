package meeting

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const meetingsTable = "meetings"

var constraintFields = database.ConstraintFields{
	"meetings_visitor_id_fkey":        "visitor_id",
	"meetings_host_id_fkey":           "host_id",
	"meetings_tenant_import_hash_key": "import_hash",
}

type MeetingRow struct {
	ID           uuid.UUID      `db:"id"`
	VisitorID    uuid.UUID      `db:"visitor_id"`
	HostID       uuid.UUID      `db:"host_id"`
	Purpose      string         `db:"purpose"`
	Location     sql.NullString `db:"location"`
	ScheduledAt  time.Time      `db:"scheduled_at"`
	CheckedInAt  sql.NullTime   `db:"checked_in_at"`
	CheckedOutAt sql.NullTime   `db:"checked_out_at"`
	Status       string         `db:"status"`
	repositories.AuditRow
}

func status(in models.MeetingInput) string {
	if in.Status == "" {
		return string(models.MeetingStatusScheduled)
	}
	return string(in.Status)
}

func FromInput(id uuid.UUID, audit repositories.AuditRow, in models.MeetingInput) *MeetingRow {
	return &MeetingRow{
		ID:           id,
		VisitorID:    in.VisitorID,
		HostID:       in.HostID,
		Purpose:      in.Purpose,
		Location:     repositories.NullString(in.Location),
		ScheduledAt:  in.ScheduledAt.UTC(),
		CheckedInAt:  repositories.NullTime(in.CheckedInAt),
		CheckedOutAt: repositories.NullTime(in.CheckedOutAt),
		Status:       status(in),
		AuditRow:     audit,
	}
}

func ToMeeting(row *MeetingRow) *models.Meeting {
	return &models.Meeting{
		ID:           row.ID,
		TenantID:     row.TenantID,
		VisitorID:    row.VisitorID,
		HostID:       row.HostID,
		Purpose:      row.Purpose,
		Location:     repositories.StringPtr(row.Location),
		ScheduledAt:  row.ScheduledAt,
		CheckedInAt:  repositories.TimePtr(row.CheckedInAt),
		CheckedOutAt: repositories.TimePtr(row.CheckedOutAt),
		Status:       models.MeetingStatus(row.Status),
		Audit:        row.ToAudit(),
	}
}

func assign(ub *database.UpdateBuilder, in models.MeetingInput) []string {
	return []string{
		ub.Assign("visitor_id", in.VisitorID),
		ub.Assign("host_id", in.HostID),
		ub.Assign("purpose", in.Purpose),
		ub.Assign("location", repositories.NullString(in.Location)),
		ub.Assign("scheduled_at", in.ScheduledAt.UTC()),
		ub.Assign("checked_in_at", repositories.NullTime(in.CheckedInAt)),
		ub.Assign("checked_out_at", repositories.NullTime(in.CheckedOutAt)),
		ub.Assign("status", status(in)),
	}
}
