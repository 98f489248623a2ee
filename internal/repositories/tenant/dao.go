package tenant

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const tenantsTable = "tenants"

var constraintFields = database.ConstraintFields{
	"tenants_url_key": "url",
}

type TenantRow struct {
	ID            uuid.UUID      `db:"id"`
	Name          string         `db:"name"`
	URL           sql.NullString `db:"url"`
	Plan          string         `db:"plan"`
	PlanStatus    string         `db:"plan_status"`
	PlanUpdatedAt sql.NullTime   `db:"plan_updated_at"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
	CreatedByID   uuid.NullUUID  `db:"created_by_id"`
	UpdatedByID   uuid.NullUUID  `db:"updated_by_id"`
	DeletedAt     sql.NullTime   `db:"deleted_at"`
}

var tenantStruct = database.NewStruct(new(TenantRow))

func ToTenant(row *TenantRow) *models.Tenant {
	return &models.Tenant{
		ID:            row.ID,
		Name:          row.Name,
		URL:           repositories.StringPtr(row.URL),
		Plan:          models.PlanKey(row.Plan),
		PlanStatus:    models.PlanStatus(row.PlanStatus),
		PlanUpdatedAt: repositories.TimePtr(row.PlanUpdatedAt),
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func ToTenants(rows []TenantRow) []models.Tenant {
	tenants := make([]models.Tenant, len(rows))
	for i := range rows {
		tenants[i] = *ToTenant(&rows[i])
	}
	return tenants
}
