package tenantuser

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const tenantUsersTable = "tenant_users"

var constraintFields = database.ConstraintFields{
	"tenant_users_tenant_user_key":      "user_id",
	"tenant_users_invitation_token_key": "invitation_token",
	"tenant_users_tenant_id_fkey":       "tenant_id",
	"tenant_users_user_id_fkey":         "user_id",
}

type TenantUserRow struct {
	ID              uuid.UUID      `db:"id"`
	TenantID        uuid.UUID      `db:"tenant_id"`
	UserID          uuid.UUID      `db:"user_id"`
	Roles           pq.StringArray `db:"roles"`
	Status          string         `db:"status"`
	InvitationToken sql.NullString `db:"invitation_token"`
	CreatedAt       sql.NullTime   `db:"created_at"`
	UpdatedAt       sql.NullTime   `db:"updated_at"`
}

var tenantUserStruct = database.NewStruct(new(TenantUserRow))

// MemberRow is a membership joined with its user.
type MemberRow struct {
	TenantUserRow
	Email     string         `db:"email"`
	FirstName sql.NullString `db:"first_name"`
	LastName  sql.NullString `db:"last_name"`
	FullName  sql.NullString `db:"full_name"`
	Disabled  bool           `db:"disabled"`
}

func ToTenantUser(row *TenantUserRow) *models.TenantUser {
	roles := []string(row.Roles)
	if roles == nil {
		roles = []string{}
	}
	return &models.TenantUser{
		ID:              row.ID,
		TenantID:        row.TenantID,
		UserID:          row.UserID,
		Roles:           roles,
		Status:          models.MembershipStatus(row.Status),
		InvitationToken: repositories.StringPtr(row.InvitationToken),
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
}

func ToTenantUsers(rows []TenantUserRow) []models.TenantUser {
	out := make([]models.TenantUser, len(rows))
	for i := range rows {
		out[i] = *ToTenantUser(&rows[i])
	}
	return out
}

func ToMember(row *MemberRow) models.TenantUser {
	member := *ToTenantUser(&row.TenantUserRow)
	member.User = &models.User{
		ID:        row.UserID,
		Email:     row.Email,
		FirstName: repositories.StringPtr(row.FirstName),
		LastName:  repositories.StringPtr(row.LastName),
		FullName:  repositories.StringPtr(row.FullName),
		Disabled:  row.Disabled,
	}
	return member
}
