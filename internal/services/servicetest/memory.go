package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

type MemoryConfig[T any, I any] struct {
	Entity string
	New    func(id uuid.UUID, in I, now time.Time) T
	Apply  func(record T, in I, now time.Time) T
	ID     func(record T) uuid.UUID
	// ImportHash reads the import hash of a record; it is unique like the columns in Unique.
	ImportHash func(record T) *string
	// Unique maps a column name to the value it holds on a record. Empty values never collide.
	Unique map[string]func(record T) string
	Label  func(record T) string
	// Match applies entity-specific list filters. Nil matches every record.
	Match func(record T, filter models.Filter) bool
}

// Memory is an in-memory implementation of the entity repository contract. It reports duplicate
// unique values the way the postgres adapter does, as *database.ConstraintViolation.
type Memory[T any, I any] struct {
	mu    sync.Mutex
	cfg   MemoryConfig[T, I]
	rows  map[uuid.UUID]T
	order []uuid.UUID
	now   func() time.Time

	// DestroyErr, when set, is returned by Destroy for the given id after earlier ids were deleted.
	DestroyErr map[uuid.UUID]error
	CreateErr  error
}

func NewMemory[T any, I any](cfg MemoryConfig[T, I]) *Memory[T, I] {
	return &Memory[T, I]{
		cfg:        cfg,
		rows:       map[uuid.UUID]T{},
		now:        func() time.Time { return time.Now().UTC() },
		DestroyErr: map[uuid.UUID]error{},
	}
}

func (m *Memory[T, I]) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make(map[uuid.UUID]T, len(m.rows))
	for k, v := range m.rows {
		rows[k] = v
	}
	order := append([]uuid.UUID(nil), m.order...)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.rows = rows
		m.order = order
	}
}

// Put stores record as-is.
func (m *Memory[T, I]) Put(record T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(record)
}

func (m *Memory[T, I]) put(record T) {
	id := m.cfg.ID(record)
	if _, ok := m.rows[id]; !ok {
		m.order = append(m.order, id)
	}
	m.rows[id] = record
}

func (m *Memory[T, I]) Get(id uuid.UUID) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.rows[id]
	return record, ok
}

func (m *Memory[T, I]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *Memory[T, I]) Create(_ context.Context, in I) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	record := m.cfg.New(uuid.New(), in, m.now())
	if err := m.checkUnique(record); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", m.cfg.Entity, err)
	}
	m.put(record)
	return &record, nil
}

func (m *Memory[T, I]) Update(_ context.Context, id uuid.UUID, in I) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(m.cfg.Entity, id)
	}

	record := m.cfg.Apply(existing, in, m.now())
	if err := m.checkUnique(record); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", m.cfg.Entity, err)
	}
	m.rows[id] = record
	return &record, nil
}

// UpdateWith applies fn to a stored record.
func (m *Memory[T, I]) UpdateWith(id uuid.UUID, fn func(record *T)) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(m.cfg.Entity, id)
	}
	fn(&record)
	m.rows[id] = record
	return &record, nil
}

func (m *Memory[T, I]) Destroy(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.DestroyErr[id]; err != nil {
		return err
	}
	if _, ok := m.rows[id]; !ok {
		return apperrors.NewNotFoundError(m.cfg.Entity, id)
	}

	delete(m.rows, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory[T, I]) FindByID(_ context.Context, id uuid.UUID) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *Memory[T, I]) Count(_ context.Context, filter models.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(filter)), nil
}

func (m *Memory[T, I]) FindAndCountAll(_ context.Context, q models.Query) ([]T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.filter(q.Filter)
	count := len(rows)

	limit := q.Limit
	if limit < 1 {
		limit = models.DefaultListLimit
	}
	offset := q.Offset
	if offset > len(rows) {
		offset = len(rows)
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], count, nil
}

func (m *Memory[T, I]) FindAllAutocomplete(_ context.Context, search string, limit int) ([]models.AutocompleteOption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit < 1 {
		limit = models.DefaultAutocompleteLimit
	}

	options := []models.AutocompleteOption{}
	for _, id := range m.order {
		record := m.rows[id]
		label := m.cfg.Label(record)
		if search != "" && id.String() != search && !strings.Contains(strings.ToLower(label), strings.ToLower(search)) {
			continue
		}
		options = append(options, models.AutocompleteOption{ID: id, Label: label})
	}

	sort.SliceStable(options, func(i, j int) bool { return options[i].Label < options[j].Label })
	if len(options) > limit {
		options = options[:limit]
	}
	return options, nil
}

func (m *Memory[T, I]) filter(filter models.Filter) []T {
	rows := []T{}
	for _, id := range m.order {
		record := m.rows[id]
		if hash := filter[models.FilterImportHash]; hash != "" {
			if m.cfg.ImportHash == nil {
				continue
			}
			if h := m.cfg.ImportHash(record); h == nil || *h != hash {
				continue
			}
		}
		if m.cfg.Match != nil && !m.cfg.Match(record, filter) {
			continue
		}
		rows = append(rows, record)
	}
	return rows
}

func (m *Memory[T, I]) checkUnique(record T) error {
	id := m.cfg.ID(record)

	columns := make(map[string]func(T) string, len(m.cfg.Unique)+1)
	for column, value := range m.cfg.Unique {
		columns[column] = value
	}
	if m.cfg.ImportHash != nil {
		columns["import_hash"] = func(r T) string {
			if h := m.cfg.ImportHash(r); h != nil {
				return *h
			}
			return ""
		}
	}

	for column, value := range columns {
		v := value(record)
		if v == "" {
			continue
		}
		for otherID, other := range m.rows {
			if otherID != id && strings.EqualFold(value(other), v) {
				return &database.ConstraintViolation{
					Kind:       database.UniqueViolation,
					Table:      m.cfg.Entity,
					Constraint: m.cfg.Entity + "_" + column + "_key",
					Field:      column,
				}
			}
		}
	}
	return nil
}
