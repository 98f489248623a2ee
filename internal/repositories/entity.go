package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

// Mapper converts between an entity's DAO row R, its model T and its write input I.
type Mapper[R any, T any, I any] struct {
	FromInput  func(id uuid.UUID, audit AuditRow, in I) *R
	ToModel    func(row *R) *T
	Assign     func(ub *database.UpdateBuilder, in I) []string
	ImportHash func(in I) *string
}

// EntityRepository is the tenant-scoped persistence adapter consumed by the entity service.
type EntityRepository[R any, T any, I any] struct {
	*Table[R]
	mapper Mapper[R, T, I]
	span   string
}

func NewEntityRepository[R any, T any, I any](table *Table[R], span string, mapper Mapper[R, T, I]) *EntityRepository[R, T, I] {
	return &EntityRepository[R, T, I]{Table: table, mapper: mapper, span: span}
}

func (r *EntityRepository[R, T, I]) Create(ctx context.Context, in I) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, r.span+".Create")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	audit := NewAuditRow(tenantID, r.mapper.ImportHash(in), GetActorID(ctx))
	if err := r.Insert(ctx, r.mapper.FromInput(id, audit, in)); err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":        id,
		"tenant_id": tenantID,
		"table":     r.cfg.Name,
	}).Debug("created record")

	return r.FindByID(ctx, id)
}

// Update replaces the mutable columns of a live record. A missing record is a NotFoundError.
func (r *EntityRepository[R, T, I]) Update(ctx context.Context, id uuid.UUID, in I) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, r.span+".Update")
	defer span.End()

	return r.UpdateColumns(ctx, id, func(ub *database.UpdateBuilder) []string {
		return r.mapper.Assign(ub, in)
	})
}

// UpdateColumns applies arbitrary assignments and returns the updated record.
func (r *EntityRepository[R, T, I]) UpdateColumns(ctx context.Context, id uuid.UUID, set func(ub *database.UpdateBuilder) []string) (*T, error) {
	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.Table.Update(ctx, tenantID, id, set); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

func (r *EntityRepository[R, T, I]) Destroy(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, r.span+".Destroy")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return err
	}
	return r.SoftDelete(ctx, tenantID, id)
}

// FindByID returns nil, nil when the record does not exist in the current tenant.
func (r *EntityRepository[R, T, I]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	ctx, span := tracing.StartSpan(ctx, r.span+".FindByID")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	row, err := r.Get(ctx, tenantID, id)
	if err != nil || row == nil {
		return nil, err
	}
	return r.mapper.ToModel(row), nil
}

func (r *EntityRepository[R, T, I]) Count(ctx context.Context, filter models.Filter) (int, error) {
	ctx, span := tracing.StartSpan(ctx, r.span+".Count")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return 0, err
	}
	return r.Table.Count(ctx, tenantID, filter)
}

func (r *EntityRepository[R, T, I]) FindAndCountAll(ctx context.Context, q models.Query) ([]T, int, error) {
	ctx, span := tracing.StartSpan(ctx, r.span+".FindAndCountAll")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	rows, count, err := r.Table.FindAndCountAll(ctx, tenantID, q)
	if err != nil {
		return nil, 0, err
	}

	out := make([]T, len(rows))
	for i := range rows {
		out[i] = *r.mapper.ToModel(&rows[i])
	}
	return out, count, nil
}

func (r *EntityRepository[R, T, I]) FindAllAutocomplete(ctx context.Context, search string, limit int) ([]models.AutocompleteOption, error) {
	ctx, span := tracing.StartSpan(ctx, r.span+".FindAllAutocomplete")
	defer span.End()

	tenantID, err := GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.Autocomplete(ctx, tenantID, search, limit)
}
