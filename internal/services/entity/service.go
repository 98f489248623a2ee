// Package entity implements the transactional CRUD service shared by every tenant-scoped entity.
package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/xstrings"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/metrics"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/notify"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

const (
	KeyImportHashRequired = "importer.errors.importHashRequired"
	KeyImportHashExistent = "importer.errors.importHashExistent"
)

// Repository is the persistence adapter the service drives. Reads return nil or empty results,
// not errors, when nothing matches.
type Repository[T any, I any] interface {
	Create(ctx context.Context, in I) (*T, error)
	Update(ctx context.Context, id uuid.UUID, in I) (*T, error)
	Destroy(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Count(ctx context.Context, filter models.Filter) (int, error)
	FindAndCountAll(ctx context.Context, q models.Query) ([]T, int, error)
	FindAllAutocomplete(ctx context.Context, search string, limit int) ([]models.AutocompleteOption, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, evt notify.Event)
}

type Options[T any, I any] struct {
	// Entity is the catalog name of the entity, e.g. "visitor".
	Entity     string
	Repository Repository[T, I]
	TxManager  database.TxManager
	Translator apperrors.Translator
	Dispatcher Dispatcher
	Logger     ectologger.Logger

	// RecordID extracts the identifier used in change notifications.
	RecordID func(record *T) uuid.UUID
	// SetImportHash attaches the import hash to an input before it is created.
	SetImportHash func(in *I, hash string)

	// BeforeCreate and BeforeUpdate run inside the unit of work ahead of the write.
	BeforeCreate func(ctx context.Context, in *I) error
	BeforeUpdate func(ctx context.Context, id uuid.UUID, in *I) error
}

type Service[T any, I any] struct {
	opts Options[T, I]
}

func NewService[T any, I any](opts Options[T, I]) *Service[T, I] {
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.NewDispatcher(notify.Noop{}, opts.Logger, 0)
	}
	return &Service[T, I]{opts: opts}
}

func (s *Service[T, I]) Entity() string {
	return s.opts.Entity
}

func (s *Service[T, I]) Repository() Repository[T, I] {
	return s.opts.Repository
}

// Validation builds a ValidationError rendered with the service's catalog.
func (s *Service[T, I]) Validation(ctx context.Context, key string, args ...any) *apperrors.ValidationError {
	return apperrors.Validation(ctx, s.opts.Translator, key, args...)
}

// TxManager returns the coordinator used for the service's units of work.
func (s *Service[T, I]) TxManager() database.TxManager {
	return s.opts.TxManager
}

func (s *Service[T, I]) spanName(op string) string {
	return xstrings.ToCamelCase(s.opts.Entity) + "Service." + op
}

// Create inserts one record in its own unit of work.
func (s *Service[T, I]) Create(ctx context.Context, in I) (record *T, err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("Create"))
	defer span.End()
	defer observe(s.opts.Entity, "create", time.Now(), &err)

	record, err = s.create(ctx, in)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	s.notify(ctx, notify.EventCreated, record)
	return record, nil
}

func (s *Service[T, I]) create(ctx context.Context, in I) (*T, error) {
	var record *T
	err := database.WithTx(ctx, s.opts.TxManager, func(ctx context.Context) error {
		if s.opts.BeforeCreate != nil {
			if err := s.opts.BeforeCreate(ctx, &in); err != nil {
				return err
			}
		}

		var err error
		record, err = s.opts.Repository.Create(ctx, in)
		return err
	})
	if err != nil {
		s.opts.Logger.WithContext(ctx).WithError(err).WithField("entity", s.opts.Entity).Warn("create rolled back")
		return nil, s.translate(ctx, err)
	}
	return record, nil
}

// Update replaces the mutable attributes of the record identified by id.
func (s *Service[T, I]) Update(ctx context.Context, id uuid.UUID, in I) (record *T, err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("Update"))
	defer span.End()
	defer observe(s.opts.Entity, "update", time.Now(), &err)

	err = database.WithTx(ctx, s.opts.TxManager, func(ctx context.Context) error {
		if s.opts.BeforeUpdate != nil {
			if err := s.opts.BeforeUpdate(ctx, id, &in); err != nil {
				return err
			}
		}

		var err error
		record, err = s.opts.Repository.Update(ctx, id, in)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		s.opts.Logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity": s.opts.Entity,
			"id":     id,
		}).Warn("update rolled back")
		return nil, s.translate(ctx, err)
	}

	s.notify(ctx, notify.EventUpdated, record)
	return record, nil
}

// DestroyAll deletes every id in one unit of work. The first failure rolls back all deletions.
func (s *Service[T, I]) DestroyAll(ctx context.Context, ids []uuid.UUID) (err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("DestroyAll"))
	defer span.End()
	defer observe(s.opts.Entity, "destroy_all", time.Now(), &err)

	err = database.WithTx(ctx, s.opts.TxManager, func(ctx context.Context) error {
		for _, id := range ids {
			if err := s.opts.Repository.Destroy(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		s.opts.Logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity": s.opts.Entity,
			"ids":    ids,
		}).Warn("destroyAll rolled back")
		return s.translate(ctx, err)
	}

	for _, id := range ids {
		s.dispatch(ctx, notify.EventDeleted, id, nil)
	}
	return nil
}

// Import creates a record tagged with importHash. A missing hash, or a hash that was already
// imported into the tenant, is a ValidationError.
func (s *Service[T, I]) Import(ctx context.Context, in I, importHash *string) (record *T, err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("Import"))
	defer span.End()
	defer observe(s.opts.Entity, "import", time.Now(), &err)

	if err := RequireImportHash(ctx, s.opts.Translator, importHash); err != nil {
		return nil, err
	}

	count, err := s.opts.Repository.Count(ctx, models.Filter{models.FilterImportHash: *importHash})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.Validation(ctx, s.opts.Translator, KeyImportHashExistent).WithField("importHash")
	}

	if s.opts.SetImportHash != nil {
		s.opts.SetImportHash(&in, *importHash)
	}

	record, err = s.create(ctx, in)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	s.notify(ctx, notify.EventImported, record)
	return record, nil
}

// RequireImportHash fails with the import-hash-required ValidationError for a missing or blank hash.
func RequireImportHash(ctx context.Context, tr apperrors.Translator, importHash *string) error {
	if importHash == nil || strings.TrimSpace(*importHash) == "" {
		return apperrors.Validation(ctx, tr, KeyImportHashRequired).WithField("importHash")
	}
	return nil
}

// FindByID returns nil, nil when the record does not exist.
func (s *Service[T, I]) FindByID(ctx context.Context, id uuid.UUID) (record *T, err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("FindByID"))
	defer span.End()
	defer observe(s.opts.Entity, "find_by_id", time.Now(), &err)

	return s.opts.Repository.FindByID(ctx, id)
}

func (s *Service[T, I]) FindAllAutocomplete(ctx context.Context, search string, limit int) (options []models.AutocompleteOption, err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("FindAllAutocomplete"))
	defer span.End()
	defer observe(s.opts.Entity, "autocomplete", time.Now(), &err)

	options, err = s.opts.Repository.FindAllAutocomplete(ctx, search, limit)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []models.AutocompleteOption{}
	}
	return options, nil
}

func (s *Service[T, I]) FindAndCountAll(ctx context.Context, q models.Query) (page models.Page[T], err error) {
	ctx, span := tracing.StartSpan(ctx, s.spanName("FindAndCountAll"))
	defer span.End()
	defer observe(s.opts.Entity, "find_and_count_all", time.Now(), &err)

	rows, count, err := s.opts.Repository.FindAndCountAll(ctx, q)
	if err != nil {
		return models.Page[T]{}, err
	}
	if rows == nil {
		rows = []T{}
	}
	return models.Page[T]{Rows: rows, Count: count}, nil
}

// translate turns classified constraint violations into localized ValidationErrors. Every other
// error is returned unchanged.
func (s *Service[T, I]) translate(ctx context.Context, err error) error {
	if cv, ok := database.AsConstraintViolation(err, database.UniqueViolation); ok {
		// meta.field carries the wire name; catalog keys use the camelCase attribute
		field := cv.Field
		if field == models.FilterImportHash {
			return apperrors.Validation(ctx, s.opts.Translator, KeyImportHashExistent).WithField("importHash")
		}

		key := fmt.Sprintf("entities.%s.errors.unique.%s", s.opts.Entity, attributeName(field))
		if s.opts.Translator == nil || s.opts.Translator.Translate(ctx, key) == key {
			return apperrors.Validation(ctx, s.opts.Translator, apperrors.KeyUnique, field).WithField(field)
		}
		return apperrors.Validation(ctx, s.opts.Translator, key).WithField(field)
	}

	if cv, ok := database.AsConstraintViolation(err, database.ForeignKeyViolation); ok {
		return apperrors.Validation(ctx, s.opts.Translator, apperrors.KeyInvalid, cv.Field).WithField(cv.Field)
	}

	return err
}

// Publish notifies collaborators about a committed change to record.
func (s *Service[T, I]) Publish(ctx context.Context, typ notify.EventType, record *T) {
	s.notify(ctx, typ, record)
}

func (s *Service[T, I]) notify(ctx context.Context, typ notify.EventType, record *T) {
	if record == nil || s.opts.RecordID == nil {
		return
	}
	s.dispatch(ctx, typ, s.opts.RecordID(record), record)
}

func (s *Service[T, I]) dispatch(ctx context.Context, typ notify.EventType, id uuid.UUID, record *T) {
	evt := notify.Event{
		Type:     typ,
		Entity:   s.opts.Entity,
		TenantID: appctx.GetTenantID(ctx),
		RecordID: id.String(),
		ActorID:  appctx.GetUserID(ctx),
	}
	if record != nil {
		evt.Record = record
	}
	s.opts.Dispatcher.Dispatch(ctx, evt)
}

// attributeName maps a column name to its catalog attribute, e.g. document_number to documentNumber.
func attributeName(column string) string {
	if column == "" {
		return column
	}
	return xstrings.FirstRuneToLower(xstrings.ToCamelCase(column))
}

// ParseIDs parses the ids of a bulk request, skipping blanks. Any malformed id is a ValidationError.
func ParseIDs(ctx context.Context, tr apperrors.Translator, raw []string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, apperrors.Validation(ctx, tr, apperrors.KeyInvalid, "ids").WithField("ids")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func observe(entity, operation string, start time.Time, err *error) {
	metrics.ObserveEntityOperation(entity, operation, start, *err)
}
