package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500

	DefaultAutocompleteLimit = 10
	MaxAutocompleteLimit     = 100
)

// ImportFields is embedded by entity inputs that can be bulk imported.
type ImportFields struct {
	ImportHash *string `json:"-"`
}

func (f *ImportFields) SetImportHash(hash string) {
	f.ImportHash = &hash
}

// Audit holds the bookkeeping columns shared by tenant-scoped records.
type Audit struct {
	ImportHash  *string    `json:"import_hash,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CreatedByID *uuid.UUID `json:"created_by_id,omitempty"`
	UpdatedByID *uuid.UUID `json:"updated_by_id,omitempty"`
}

// Filter holds raw list filters keyed by attribute name. Repositories ignore unknown keys.
type Filter map[string]string

const FilterImportHash = "import_hash"

type Query struct {
	Filter  Filter
	OrderBy string
	Limit   int
	Offset  int
}

type Page[T any] struct {
	Rows  []T `json:"rows"`
	Count int `json:"count"`
}

type AutocompleteOption struct {
	ID    uuid.UUID `json:"id" db:"id"`
	Label string    `json:"label" db:"label"`
}
