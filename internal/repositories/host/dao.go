package host

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const hostsTable = "hosts"

var constraintFields = database.ConstraintFields{
	"hosts_tenant_email_key":       "email",
	"hosts_tenant_import_hash_key": "import_hash",
}

type HostRow struct {
	ID         uuid.UUID      `db:"id"`
	FirstName  string         `db:"first_name"`
	LastName   string         `db:"last_name"`
	Email      string         `db:"email"`
	Phone      sql.NullString `db:"phone"`
	Department sql.NullString `db:"department"`
	IsActive   bool           `db:"is_active"`
	repositories.AuditRow
}

func isActive(in models.HostInput) bool {
	return in.IsActive == nil || *in.IsActive
}

func FromInput(id uuid.UUID, audit repositories.AuditRow, in models.HostInput) *HostRow {
	return &HostRow{
		ID:         id,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Email:      in.Email,
		Phone:      repositories.NullString(in.Phone),
		Department: repositories.NullString(in.Department),
		IsActive:   isActive(in),
		AuditRow:   audit,
	}
}

func ToHost(row *HostRow) *models.Host {
	return &models.Host{
		ID:         row.ID,
		TenantID:   row.TenantID,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		Email:      row.Email,
		Phone:      repositories.StringPtr(row.Phone),
		Department: repositories.StringPtr(row.Department),
		IsActive:   row.IsActive,
		Audit:      row.ToAudit(),
	}
}

func assign(ub *database.UpdateBuilder, in models.HostInput) []string {
	return []string{
		ub.Assign("first_name", in.FirstName),
		ub.Assign("last_name", in.LastName),
		ub.Assign("email", in.Email),
		ub.Assign("phone", repositories.NullString(in.Phone)),
		ub.Assign("department", repositories.NullString(in.Department)),
		ub.Assign("is_active", isActive(in)),
	}
}
