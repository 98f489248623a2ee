package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
)

const (
	KeyDefault            = "errors.defaultErrorMessage"
	KeyValidation         = "errors.validation.message"
	KeyInvalid            = "errors.validation.invalid"
	KeyRequired           = "errors.validation.required"
	KeyUnique             = "errors.unique"
	KeyNotFound           = "errors.notFound.message"
	KeyForbidden          = "errors.forbidden.message"
	KeyUnauthorized       = "errors.unauthorized.message"
	KeyTooManyRequests    = "errors.tooManyRequests"
	KeyInvalidCredentials = "auth.invalidCredentials"
	KeyInvalidToken       = "auth.invalidToken"
)

// Translator renders a message key for the locale carried by ctx.
type Translator interface {
	Translate(ctx context.Context, key string, args ...any) string
}

// DomainError is implemented by every classified error the API reports to callers.
type DomainError interface {
	error
	StatusCode() int
	MessageKey() string
	MessageArgs() []any
	LocalizedMessage() string
}

type message struct {
	Key     string
	Args    []any
	Message string
}

func (m message) MessageKey() string       { return m.Key }
func (m message) MessageArgs() []any       { return m.Args }
func (m message) LocalizedMessage() string { return m.Message }

func (m message) text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Key
}

// ValidationError reports bad input, duplicate unique values and duplicate imports.
type ValidationError struct {
	message
	Field string
}

func NewValidationError(key string, args ...any) *ValidationError {
	return &ValidationError{message: message{Key: key, Args: args}}
}

// Validation builds a ValidationError whose message is already rendered for ctx's locale.
func Validation(ctx context.Context, tr Translator, key string, args ...any) *ValidationError {
	err := NewValidationError(key, args...)
	if tr != nil {
		err.Message = tr.Translate(ctx, key, args...)
	}
	return err
}

func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

func (e *ValidationError) Error() string   { return e.text() }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// NotFoundError reports that no record matches an identifier.
type NotFoundError struct {
	message
	Entity string
	ID     string
}

func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{
		message: message{Key: KeyNotFound},
		Entity:  entity,
		ID:      fmt.Sprint(id),
	}
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s does not exist", e.Entity, e.ID)
}

func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// InvalidCredentialsError never says which credential check failed.
type InvalidCredentialsError struct {
	message
}

func NewInvalidCredentialsError() *InvalidCredentialsError {
	return &InvalidCredentialsError{message: message{Key: KeyInvalidCredentials}}
}

func (e *InvalidCredentialsError) Error() string   { return e.text() }
func (e *InvalidCredentialsError) StatusCode() int { return http.StatusBadRequest }

// UnauthorizedError reports a missing, malformed or expired bearer token.
type UnauthorizedError struct {
	message
}

func NewUnauthorizedError(key string) *UnauthorizedError {
	if key == "" {
		key = KeyUnauthorized
	}
	return &UnauthorizedError{message: message{Key: key}}
}

func (e *UnauthorizedError) Error() string   { return e.text() }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

type ForbiddenError struct {
	message
}

func NewForbiddenError(key string, args ...any) *ForbiddenError {
	if key == "" {
		key = KeyForbidden
	}
	return &ForbiddenError{message: message{Key: key, Args: args}}
}

func (e *ForbiddenError) Error() string   { return e.text() }
func (e *ForbiddenError) StatusCode() int { return http.StatusForbidden }

type TooManyRequestsError struct {
	message
	RetryIn time.Duration
}

func NewTooManyRequestsError(retryIn time.Duration) *TooManyRequestsError {
	seconds := int(math.Ceil(retryIn.Seconds()))
	return &TooManyRequestsError{
		message: message{Key: KeyTooManyRequests, Args: []any{seconds}},
		RetryIn: retryIn,
	}
}

func (e *TooManyRequestsError) Error() string   { return e.text() }
func (e *TooManyRequestsError) StatusCode() int { return http.StatusTooManyRequests }

func IsValidationError(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

func IsInvalidCredentialsError(err error) bool {
	var target *InvalidCredentialsError
	return stderrors.As(err, &target)
}

// ToHTTPError converts a DomainError into an httperror rendered for ctx's locale. Errors that are
// not domain errors are reported with ok == false.
func ToHTTPError(ctx context.Context, err error, tr Translator) (*httperror.HTTPError, bool) {
	var domainErr DomainError
	if !stderrors.As(err, &domainErr) {
		return nil, false
	}

	msg := domainErr.LocalizedMessage()
	if msg == "" && tr != nil {
		msg = tr.Translate(ctx, domainErr.MessageKey(), domainErr.MessageArgs()...)
	}
	if msg == "" {
		msg = domainErr.Error()
	}

	httpErr := httperror.NewHTTPError(domainErr.StatusCode(), msg).AddMetaValue("key", domainErr.MessageKey())

	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) && validationErr.Field != "" {
		httpErr = httpErr.AddMetaValue("field", validationErr.Field)
	}

	var notFoundErr *NotFoundError
	if stderrors.As(err, &notFoundErr) {
		httpErr = httpErr.AddMetaValue("entity", notFoundErr.Entity).AddMetaValue("id", notFoundErr.ID)
	}

	return httpErr, true
}
