package visitor

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const visitorsTable = "visitors"

var constraintFields = database.ConstraintFields{
	"visitors_tenant_email_key":           "email",
	"visitors_tenant_document_number_key": "document_number",
	"visitors_tenant_import_hash_key":     "import_hash",
}

type VisitorRow struct {
	ID             uuid.UUID      `db:"id"`
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	Email          sql.NullString `db:"email"`
	Phone          sql.NullString `db:"phone"`
	Company        sql.NullString `db:"company"`
	DocumentNumber sql.NullString `db:"document_number"`
	PhotoURL       sql.NullString `db:"photo_url"`
	Status         string         `db:"status"`
	Notes          sql.NullString `db:"notes"`
	repositories.AuditRow
}

func FromInput(id uuid.UUID, audit repositories.AuditRow, in models.VisitorInput) *VisitorRow {
	status := in.Status
	if status == "" {
		status = models.VisitorStatusExpected
	}
	return &VisitorRow{
		ID:             id,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          repositories.NullString(in.Email),
		Phone:          repositories.NullString(in.Phone),
		Company:        repositories.NullString(in.Company),
		DocumentNumber: repositories.NullString(in.DocumentNumber),
		PhotoURL:       repositories.NullString(in.PhotoURL),
		Status:         string(status),
		Notes:          repositories.NullString(in.Notes),
		AuditRow:       audit,
	}
}

func ToVisitor(row *VisitorRow) *models.Visitor {
	return &models.Visitor{
		ID:             row.ID,
		TenantID:       row.TenantID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Email:          repositories.StringPtr(row.Email),
		Phone:          repositories.StringPtr(row.Phone),
		Company:        repositories.StringPtr(row.Company),
		DocumentNumber: repositories.StringPtr(row.DocumentNumber),
		PhotoURL:       repositories.StringPtr(row.PhotoURL),
		Status:         models.VisitorStatus(row.Status),
		Notes:          repositories.StringPtr(row.Notes),
		Audit:          row.ToAudit(),
	}
}

func assign(ub *database.UpdateBuilder, in models.VisitorInput) []string {
	set := []string{
		ub.Assign("first_name", in.FirstName),
		ub.Assign("last_name", in.LastName),
		ub.Assign("email", repositories.NullString(in.Email)),
		ub.Assign("phone", repositories.NullString(in.Phone)),
		ub.Assign("company", repositories.NullString(in.Company)),
		ub.Assign("document_number", repositories.NullString(in.DocumentNumber)),
		ub.Assign("photo_url", repositories.NullString(in.PhotoURL)),
		ub.Assign("notes", repositories.NullString(in.Notes)),
	}
	// status moves through check-in/check-out unless explicitly set
	if in.Status != "" {
		set = append(set, ub.Assign("status", string(in.Status)))
	}
	return set
}
