package tenantuser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type Repository struct {
	*repositories.Repository
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{Repository: repositories.NewRepository(db, logger)}
}

func (r *Repository) Create(ctx context.Context, tenantID, userID uuid.UUID, roles []string, status models.MembershipStatus, invitationToken *string) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.Create")
	defer span.End()

	now := repositories.Now()
	row := &TenantUserRow{
		ID:              uuid.New(),
		TenantID:        tenantID,
		UserID:          userID,
		Roles:           pq.StringArray(roles),
		Status:          string(status),
		InvitationToken: repositories.NullString(invitationToken),
		CreatedAt:       sql.NullTime{Time: now, Valid: true},
		UpdatedAt:       sql.NullTime{Time: now, Valid: true},
	}

	query, args := tenantUserStruct.InsertInto(tenantUsersTable, row).Build()
	if _, err := r.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"user_id":   userID,
		}).Error("failed to create membership")
		return nil, fmt.Errorf("failed to create membership: %w", database.ClassifyError(err, constraintFields))
	}

	return ToTenantUser(row), nil
}

// Find returns nil, nil when userID is not a member of tenantID.
func (r *Repository) Find(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.Find")
	defer span.End()

	sb := tenantUserStruct.SelectFrom(tenantUsersTable)
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("user_id", userID))
	return r.get(ctx, sb)
}

// FindByInvitationToken returns nil, nil for unknown tokens.
func (r *Repository) FindByInvitationToken(ctx context.Context, token string) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.FindByInvitationToken")
	defer span.End()

	sb := tenantUserStruct.SelectFrom(tenantUsersTable)
	sb.Where(sb.Equal("invitation_token", token))
	return r.get(ctx, sb)
}

func (r *Repository) get(ctx context.Context, sb *database.SelectBuilder) (*models.TenantUser, error) {
	query, args := sb.Build()

	var row TenantUserRow
	if err := r.Q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Logger().WithContext(ctx).WithError(err).Error("failed to get membership")
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return ToTenantUser(&row), nil
}

// ListByUser returns every membership of userID across tenants.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.ListByUser")
	defer span.End()

	sb := tenantUserStruct.SelectFrom(tenantUsersTable)
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at", "id")
	query, args := sb.Build()

	var rows []TenantUserRow
	if err := r.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).WithField("user_id", userID).Error("failed to list memberships")
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return ToTenantUsers(rows), nil
}

// ListByTenant pages through a tenant's members joined with their user records.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, q models.Query) ([]models.TenantUser, int, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.ListByTenant")
	defer span.End()

	where := func(sb *database.SelectBuilder) {
		sb.Where(sb.Equal("tu.tenant_id", tenantID))
		if email := q.Filter["email"]; email != "" {
			sb.Where(sb.ContainsFold("u.email", email))
		}
		if status := q.Filter["status"]; status != "" {
			sb.Where(sb.Equal("tu.status", status))
		}
		if role := q.Filter["role"]; role != "" {
			sb.Where(sb.Var(role) + " = ANY(tu.roles)")
		}
	}

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tenantUsersTable + " tu")
	countSb.Join(usersTableAlias, "u.id = tu.user_id")
	where(countSb)
	countQuery, countArgs := countSb.Build()

	var count int
	if err := r.Q(ctx).GetContext(ctx, &count, countQuery, countArgs...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("failed to count members")
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(
		"tu.id", "tu.tenant_id", "tu.user_id", "tu.roles", "tu.status", "tu.invitation_token",
		"tu.created_at", "tu.updated_at",
		"u.email", "u.first_name", "u.last_name", "u.full_name", "u.disabled",
	)
	sb.From(tenantUsersTable + " tu")
	sb.Join(usersTableAlias, "u.id = tu.user_id")
	where(sb)
	sb.OrderBy("u.email", "tu.id")
	sb.Page(q.Limit, q.Offset, models.DefaultListLimit, models.MaxListLimit)
	query, args := sb.Build()

	var rows []MemberRow
	if err := r.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).WithField("tenant_id", tenantID).Error("failed to list members")
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}

	members := make([]models.TenantUser, len(rows))
	for i := range rows {
		members[i] = ToMember(&rows[i])
	}
	return members, count, nil
}

const usersTableAlias = "users u"

func (r *Repository) UpdateRoles(ctx context.Context, tenantID, userID uuid.UUID, roles []string) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.UpdateRoles")
	defer span.End()

	return r.update(ctx, tenantID, userID, func(ub *database.UpdateBuilder) []string {
		return []string{ub.Assign("roles", pq.StringArray(roles))}
	})
}

// Activate marks the membership active and consumes its invitation token.
func (r *Repository) Activate(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.Activate")
	defer span.End()

	return r.update(ctx, tenantID, userID, func(ub *database.UpdateBuilder) []string {
		return []string{
			ub.Assign("status", string(models.MembershipActive)),
			ub.Assign("invitation_token", nil),
		}
	})
}

// Reinvite replaces roles, status and token of an existing membership.
func (r *Repository) Reinvite(ctx context.Context, tenantID, userID uuid.UUID, roles []string, token string) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.Reinvite")
	defer span.End()

	return r.update(ctx, tenantID, userID, func(ub *database.UpdateBuilder) []string {
		return []string{
			ub.Assign("roles", pq.StringArray(roles)),
			ub.Assign("status", string(models.MembershipInvited)),
			ub.Assign("invitation_token", token),
		}
	})
}

func (r *Repository) update(ctx context.Context, tenantID, userID uuid.UUID, set func(ub *database.UpdateBuilder) []string) (*models.TenantUser, error) {
	ub := database.NewUpdateBuilder()
	ub.Update(tenantUsersTable)
	ub.Set(append(set(ub), ub.Assign("updated_at", repositories.Now()))...)
	ub.Where(ub.Equal("tenant_id", tenantID), ub.Equal("user_id", userID))
	query, args := ub.Build()

	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.Logger().WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": tenantID,
			"user_id":   userID,
		}).Error("failed to update membership")
		return nil, fmt.Errorf("failed to update membership: %w", database.ClassifyError(err, constraintFields))
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperrors.NewNotFoundError("user", userID)
	}

	return r.Find(ctx, tenantID, userID)
}

// Delete removes a membership. A missing membership is a NotFoundError.
func (r *Repository) Delete(ctx context.Context, tenantID, userID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(tenantUsersTable)
	db.Where(db.Equal("tenant_id", tenantID), db.Equal("user_id", userID))
	query, args := db.Build()

	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).Error("failed to delete membership")
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NewNotFoundError("user", userID)
	}
	return nil
}

// CountActiveWithRole counts active members of tenantID holding role.
func (r *Repository) CountActiveWithRole(ctx context.Context, tenantID uuid.UUID, role string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantUserRepository.CountActiveWithRole")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tenantUsersTable)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", string(models.MembershipActive)),
		sb.Var(role)+" = ANY(roles)",
	)
	query, args := sb.Build()

	var count int
	if err := r.Q(ctx).GetContext(ctx, &count, query, args...); err != nil {
		tracing.Fail(span, err)
		return 0, fmt.Errorf("failed to count members with role %s: %w", role, err)
	}
	return count, nil
}
