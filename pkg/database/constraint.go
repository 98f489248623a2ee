package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

type ConstraintKind string

const (
	UniqueViolation     ConstraintKind = "unique"
	ForeignKeyViolation ConstraintKind = "foreign_key"
	NotNullViolation    ConstraintKind = "not_null"
	CheckViolation      ConstraintKind = "check"
)

var constraintKinds = map[pq.ErrorCode]ConstraintKind{
	"23505": UniqueViolation,
	"23503": ForeignKeyViolation,
	"23502": NotNullViolation,
	"23514": CheckViolation,
}

// ConstraintViolation is a classified integrity-constraint failure reported by the database.
type ConstraintViolation struct {
	Kind       ConstraintKind
	Table      string
	Constraint string
	Field      string
	Err        error
}

func (e *ConstraintViolation) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s violation on %s.%s (%s)", e.Kind, e.Table, e.Field, e.Constraint)
	}
	return fmt.Sprintf("%s violation on %s (%s)", e.Kind, e.Table, e.Constraint)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}

// ConstraintFields maps constraint or index names to the attribute they protect.
type ConstraintFields map[string]string

// "Key (tenant_id, lower(email::text))=(...) already exists."
var detailKeyPattern = regexp.MustCompile(`Key \((.+?)\)=`)
var identPattern = regexp.MustCompile(`[a-z_][a-z0-9_]*`)

// ClassifyError converts integrity-constraint errors into *ConstraintViolation and returns every
// other error unchanged.
func ClassifyError(err error, fields ConstraintFields) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	kind, ok := constraintKinds[pqErr.Code]
	if !ok {
		return err
	}

	field := fields[pqErr.Constraint]
	if field == "" {
		field = pqErr.Column
	}
	if field == "" {
		field = fieldFromDetail(pqErr.Detail)
	}

	return &ConstraintViolation{
		Kind:       kind,
		Table:      pqErr.Table,
		Constraint: pqErr.Constraint,
		Field:      field,
		Err:        err,
	}
}

// AsConstraintViolation reports whether err is a classified violation of the given kind.
func AsConstraintViolation(err error, kind ConstraintKind) (*ConstraintViolation, bool) {
	var cv *ConstraintViolation
	if errors.As(err, &cv) && cv.Kind == kind {
		return cv, true
	}
	return nil, false
}

func fieldFromDetail(detail string) string {
	matches := detailKeyPattern.FindStringSubmatch(detail)
	if len(matches) < 2 {
		return ""
	}

	var field string
	for _, part := range strings.Split(matches[1], ",") {
		for _, ident := range identPattern.FindAllString(strings.ToLower(part), -1) {
			switch ident {
			case "tenant_id", "lower", "upper", "text", "citext", "varchar":
				continue
			}
			field = ident
		}
	}
	return field
}
