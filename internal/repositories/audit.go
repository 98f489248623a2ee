package repositories

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/models"
)

// AuditRow holds the bookkeeping columns every tenant-scoped table carries.
type AuditRow struct {
	TenantID    uuid.UUID      `db:"tenant_id"`
	ImportHash  sql.NullString `db:"import_hash"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at"`
	CreatedByID uuid.NullUUID  `db:"created_by_id"`
	UpdatedByID uuid.NullUUID  `db:"updated_by_id"`
	DeletedAt   sql.NullTime   `db:"deleted_at"`
}

func NewAuditRow(tenantID uuid.UUID, importHash *string, actor *uuid.UUID) AuditRow {
	now := Now()
	return AuditRow{
		TenantID:    tenantID,
		ImportHash:  NullString(importHash),
		CreatedAt:   sql.NullTime{Time: now, Valid: true},
		UpdatedAt:   sql.NullTime{Time: now, Valid: true},
		CreatedByID: NullUUID(actor),
		UpdatedByID: NullUUID(actor),
	}
}

func (a AuditRow) ToAudit() models.Audit {
	return models.Audit{
		ImportHash:  StringPtr(a.ImportHash),
		CreatedAt:   a.CreatedAt.Time,
		UpdatedAt:   a.UpdatedAt.Time,
		CreatedByID: UUIDPtr(a.CreatedByID),
		UpdatedByID: UUIDPtr(a.UpdatedByID),
	}
}
