package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

// FilterFunc turns one list filter value into a WHERE condition. An empty result skips the filter.
type FilterFunc func(sb *database.SelectBuilder, value string) string

// Contains filters by case-insensitive substring.
func Contains(column string) FilterFunc {
	return func(sb *database.SelectBuilder, value string) string {
		return sb.ContainsFold(column, value)
	}
}

func Equal(column string) FilterFunc {
	return func(sb *database.SelectBuilder, value string) string {
		return sb.Equal(column, value)
	}
}

// EqualUUID filters by a uuid column. Unparseable values match nothing.
func EqualUUID(column string) FilterFunc {
	return func(sb *database.SelectBuilder, value string) string {
		id, err := uuid.Parse(value)
		if err != nil {
			return "1 = 0"
		}
		return sb.Equal(column, id)
	}
}

// Range filters a column by a "from,to" pair where either side may be empty.
func Range(column string) FilterFunc {
	return func(sb *database.SelectBuilder, value string) string {
		from, to, _ := strings.Cut(value, ",")
		var conds []string
		if from = strings.TrimSpace(from); from != "" {
			conds = append(conds, sb.GreaterEqualThan(column, from))
		}
		if to = strings.TrimSpace(to); to != "" {
			conds = append(conds, sb.LessEqualThan(column, to))
		}
		if len(conds) == 0 {
			return ""
		}
		return sb.And(conds...)
	}
}

type TableConfig struct {
	// Name is the SQL table.
	Name string
	// Entity names the record in NotFoundError.
	Entity string
	Fields database.ConstraintFields
	// Label is the SQL expression shown as the autocomplete label.
	Label string
	// Search lists the columns matched by autocomplete queries.
	Search  []string
	Filters map[string]FilterFunc
	// Sortable maps orderBy keys to columns. Values of the form "key_ASC" or "key_DESC" pick direction.
	Sortable     map[string]string
	DefaultOrder string
}

// Table implements the tenant-scoped, soft-deleted access pattern shared by entity repositories.
// R is the DAO row type.
type Table[R any] struct {
	*Repository
	cfg TableConfig
	st  *database.Struct
}

func NewTable[R any](repo *Repository, cfg TableConfig) *Table[R] {
	if cfg.DefaultOrder == "" {
		cfg.DefaultOrder = "created_at DESC"
	}
	return &Table[R]{
		Repository: repo,
		cfg:        cfg,
		st:         database.NewStruct(new(R)),
	}
}

func (t *Table[R]) Config() TableConfig {
	return t.cfg
}

func (t *Table[R]) Insert(ctx context.Context, row *R) error {
	ctx, span := tracing.StartSpan(ctx, "Table.Insert")
	defer span.End()

	query, args := t.st.InsertInto(t.cfg.Name, row).Build()
	if _, err := t.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": t.cfg.Name,
		}).Error("failed to insert row")
		return fmt.Errorf("failed to create %s: %w", t.cfg.Entity, database.ClassifyError(err, t.cfg.Fields))
	}
	return nil
}

// Get returns nil, nil when no live row matches.
func (t *Table[R]) Get(ctx context.Context, tenantID, id uuid.UUID) (*R, error) {
	ctx, span := tracing.StartSpan(ctx, "Table.Get")
	defer span.End()

	sb := t.st.SelectFrom(t.cfg.Name)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	query, args := sb.Build()

	var row R
	if err := t.Q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": t.cfg.Name,
			"id":    id,
		}).Error("failed to get row")
		return nil, fmt.Errorf("failed to get %s: %w", t.cfg.Entity, err)
	}
	return &row, nil
}

// Update applies the assignments returned by set to a live row and stamps updated_at and
// updated_by_id. A missing row is a NotFoundError.
func (t *Table[R]) Update(ctx context.Context, tenantID, id uuid.UUID, set func(ub *database.UpdateBuilder) []string) error {
	ctx, span := tracing.StartSpan(ctx, "Table.Update")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(t.cfg.Name)
	assignments := append(set(ub),
		ub.Assign("updated_at", time.Now().UTC()),
		ub.Assign("updated_by_id", GetActorID(ctx)),
	)
	ub.Set(assignments...)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
		ub.IsNull("deleted_at"),
	)
	query, args := ub.Build()

	result, err := t.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": t.cfg.Name,
			"id":    id,
		}).Error("failed to update row")
		return fmt.Errorf("failed to update %s: %w", t.cfg.Entity, database.ClassifyError(err, t.cfg.Fields))
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NewNotFoundError(t.cfg.Entity, id)
	}
	return nil
}

// SoftDelete marks a live row deleted. A missing row is a NotFoundError.
func (t *Table[R]) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "Table.SoftDelete")
	defer span.End()

	now := time.Now().UTC()
	ub := database.NewUpdateBuilder()
	ub.Update(t.cfg.Name)
	ub.Set(
		ub.Assign("deleted_at", now),
		ub.Assign("updated_at", now),
		ub.Assign("updated_by_id", GetActorID(ctx)),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
		ub.IsNull("deleted_at"),
	)
	query, args := ub.Build()

	result, err := t.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"table": t.cfg.Name,
			"id":    id,
		}).Error("failed to delete row")
		return fmt.Errorf("failed to delete %s: %w", t.cfg.Entity, database.ClassifyError(err, t.cfg.Fields))
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperrors.NewNotFoundError(t.cfg.Entity, id)
	}
	return nil
}

func (t *Table[R]) Count(ctx context.Context, tenantID uuid.UUID, filter models.Filter) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "Table.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(t.cfg.Name)
	sb.Where(t.conditions(sb, tenantID, filter)...)
	query, args := sb.Build()

	var count int
	if err := t.Q(ctx).GetContext(ctx, &count, query, args...); err != nil {
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithField("table", t.cfg.Name).Error("failed to count rows")
		return 0, fmt.Errorf("failed to count %s: %w", t.cfg.Entity, err)
	}
	return count, nil
}

// FindAndCountAll returns one page of rows and the total number of rows matching the filter.
func (t *Table[R]) FindAndCountAll(ctx context.Context, tenantID uuid.UUID, q models.Query) ([]R, int, error) {
	ctx, span := tracing.StartSpan(ctx, "Table.FindAndCountAll")
	defer span.End()

	count, err := t.Count(ctx, tenantID, q.Filter)
	if err != nil {
		return nil, 0, err
	}

	sb := t.st.SelectFrom(t.cfg.Name)
	sb.Where(t.conditions(sb, tenantID, q.Filter)...)
	sb.OrderBy(t.orderBy(q.OrderBy), "id")
	sb.Page(q.Limit, q.Offset, models.DefaultListLimit, models.MaxListLimit)
	query, args := sb.Build()

	rows := []R{}
	if err := t.Q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithField("table", t.cfg.Name).Error("failed to list rows")
		return nil, 0, fmt.Errorf("failed to list %s: %w", t.cfg.Entity, err)
	}

	return rows, count, nil
}

// Autocomplete matches search against the configured columns, or against the id when search is a UUID.
func (t *Table[R]) Autocomplete(ctx context.Context, tenantID uuid.UUID, search string, limit int) ([]models.AutocompleteOption, error) {
	ctx, span := tracing.StartSpan(ctx, "Table.Autocomplete")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", sb.As(t.cfg.Label, "label"))
	sb.From(t.cfg.Name)
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	if search != "" {
		if id, err := uuid.Parse(search); err == nil {
			sb.Where(sb.Equal("id", id))
		} else {
			matches := make([]string, 0, len(t.cfg.Search))
			for _, column := range t.cfg.Search {
				matches = append(matches, sb.ContainsFold(column, search))
			}
			sb.Where(sb.Or(matches...))
		}
	}

	sb.OrderBy("label", "id")
	sb.Page(limit, 0, models.DefaultAutocompleteLimit, models.MaxAutocompleteLimit)
	query, args := sb.Build()

	options := []models.AutocompleteOption{}
	if err := t.Q(ctx).SelectContext(ctx, &options, query, args...); err != nil {
		tracing.Fail(span, err)
		t.logger.WithContext(ctx).WithError(err).WithField("table", t.cfg.Name).Error("failed to autocomplete")
		return nil, fmt.Errorf("failed to autocomplete %s: %w", t.cfg.Entity, err)
	}
	return options, nil
}

func (t *Table[R]) conditions(sb *database.SelectBuilder, tenantID uuid.UUID, filter models.Filter) []string {
	conds := []string{
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	}

	for key, value := range filter {
		if value == "" {
			continue
		}
		switch key {
		case models.FilterImportHash:
			conds = append(conds, sb.Equal("import_hash", value))
		case "id":
			conds = append(conds, EqualUUID("id")(sb, value))
		default:
			fn, ok := t.cfg.Filters[key]
			if !ok {
				continue
			}
			if cond := fn(sb, value); cond != "" {
				conds = append(conds, cond)
			}
		}
	}
	return conds
}

func (t *Table[R]) orderBy(raw string) string {
	key, dir := raw, "ASC"
	if k, ok := strings.CutSuffix(raw, "_DESC"); ok {
		key, dir = k, "DESC"
	} else if k, ok := strings.CutSuffix(raw, "_ASC"); ok {
		key = k
	}

	column, ok := t.cfg.Sortable[key]
	if !ok {
		return t.cfg.DefaultOrder
	}
	return column + " " + dir
}
