package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

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

func (r *Repository) Create(ctx context.Context, in models.TenantInput, plan models.PlanKey) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.Create")
	defer span.End()

	now := repositories.Now()
	actor := repositories.NullUUID(repositories.GetActorID(ctx))
	row := &TenantRow{
		ID:            uuid.New(),
		Name:          in.Name,
		URL:           repositories.NullString(in.URL),
		Plan:          string(plan),
		PlanStatus:    string(models.PlanStatusActive),
		PlanUpdatedAt: sql.NullTime{Time: now, Valid: true},
		CreatedAt:     sql.NullTime{Time: now, Valid: true},
		UpdatedAt:     sql.NullTime{Time: now, Valid: true},
		CreatedByID:   actor,
		UpdatedByID:   actor,
	}

	query, args := tenantStruct.InsertInto(tenantsTable, row).Build()
	if _, err := r.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).Error("failed to create tenant")
		return nil, fmt.Errorf("failed to create tenant: %w", database.ClassifyError(err, constraintFields))
	}

	r.Logger().WithContext(ctx).WithFields(map[string]any{
		"tenant_id": row.ID,
		"name":      row.Name,
	}).Info("created tenant")

	return ToTenant(row), nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, in models.TenantInput) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.Update")
	defer span.End()

	return r.update(ctx, id, func(ub *database.UpdateBuilder) []string {
		return []string{
			ub.Assign("name", in.Name),
			ub.Assign("url", repositories.NullString(in.URL)),
		}
	})
}

func (r *Repository) UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanKey) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.UpdatePlan")
	defer span.End()

	return r.update(ctx, id, func(ub *database.UpdateBuilder) []string {
		return []string{
			ub.Assign("plan", string(plan)),
			ub.Assign("plan_status", string(models.PlanStatusActive)),
			ub.Assign("plan_updated_at", repositories.Now()),
		}
	})
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, set func(ub *database.UpdateBuilder) []string) (*models.Tenant, error) {
	ub := database.NewUpdateBuilder()
	ub.Update(tenantsTable)
	ub.Set(append(set(ub),
		ub.Assign("updated_at", repositories.Now()),
		ub.Assign("updated_by_id", repositories.GetActorID(ctx)),
	)...)
	ub.Where(ub.Equal("id", id), ub.IsNull("deleted_at"))
	query, args := ub.Build()

	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.Logger().WithContext(ctx).WithError(err).WithField("tenant_id", id).Error("failed to update tenant")
		return nil, fmt.Errorf("failed to update tenant: %w", database.ClassifyError(err, constraintFields))
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperrors.NewNotFoundError("tenant", id)
	}

	return r.FindByID(ctx, id)
}

func (r *Repository) Destroy(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.Destroy")
	defer span.End()

	now := repositories.Now()
	ub := database.NewUpdateBuilder()
	ub.Update(tenantsTable)
	ub.Set(
		ub.Assign("deleted_at", now),
		ub.Assign("updated_at", now),
		ub.Assign("updated_by_id", repositories.GetActorID(ctx)),
		// free the slug for reuse
		ub.Assign("url", nil),
	)
	ub.Where(ub.Equal("id", id), ub.IsNull("deleted_at"))
	query, args := ub.Build()

	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).WithField("tenant_id", id).Error("failed to delete tenant")
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NewNotFoundError("tenant", id)
	}
	return nil
}

// FindByID returns nil, nil when the tenant does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.FindByID")
	defer span.End()

	sb := tenantStruct.SelectFrom(tenantsTable)
	sb.Where(sb.Equal("id", id), sb.IsNull("deleted_at"))
	return r.get(ctx, sb)
}

// First returns the oldest live tenant, or nil when there is none.
func (r *Repository) First(ctx context.Context) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.First")
	defer span.End()

	sb := tenantStruct.SelectFrom(tenantsTable)
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("created_at", "id")
	sb.Limit(1)
	return r.get(ctx, sb)
}

func (r *Repository) get(ctx context.Context, sb *database.SelectBuilder) (*models.Tenant, error) {
	query, args := sb.Build()

	var row TenantRow
	if err := r.Q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Logger().WithContext(ctx).WithError(err).Error("failed to get tenant")
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return ToTenant(&row), nil
}

// FindAllByIDs returns the live tenants among ids ordered by name.
func (r *Repository) FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantRepository.FindAllByIDs")
	defer span.End()

	if len(ids) == 0 {
		return []models.Tenant{}, nil
	}

	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	sb := tenantStruct.SelectFrom(tenantsTable)
	sb.Where(sb.In("id", values...), sb.IsNull("deleted_at"))
	sb.OrderBy("name", "id")
	query, args := sb.Build()

	var rows []TenantRow
	if err := r.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).Error("failed to list tenants")
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return ToTenants(rows), nil
}
