package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
)

type prefixTranslator struct{}

func (prefixTranslator) Translate(_ context.Context, key string, args ...any) string {
	return fmt.Sprintf("t(%s)%v", key, args)
}

func TestToHTTPError(t *testing.T) {
	ctx := context.Background()
	tr := prefixTranslator{}

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		meta    map[string]any
	}{
		{
			name:    "validation error rendered by translator",
			err:     apperrors.NewValidationError("entities.visitor.errors.unique.email").WithField("email"),
			status:  http.StatusBadRequest,
			message: "t(entities.visitor.errors.unique.email)[]",
			meta:    map[string]any{"key": "entities.visitor.errors.unique.email", "field": "email"},
		},
		{
			name:    "pre-localized validation error keeps its message",
			err:     apperrors.Validation(ctx, tr, "importer.errors.importHashRequired"),
			status:  http.StatusBadRequest,
			message: "t(importer.errors.importHashRequired)[]",
		},
		{
			name:    "wrapped not found",
			err:     fmt.Errorf("update: %w", apperrors.NewNotFoundError("visitor", "abc")),
			status:  http.StatusNotFound,
			message: "t(errors.notFound.message)[]",
			meta:    map[string]any{"entity": "visitor", "id": "abc"},
		},
		{
			name:    "invalid credentials",
			err:     apperrors.NewInvalidCredentialsError(),
			status:  http.StatusBadRequest,
			message: "t(auth.invalidCredentials)[]",
		},
		{
			name:    "unauthorized",
			err:     apperrors.NewUnauthorizedError(""),
			status:  http.StatusUnauthorized,
			message: "t(errors.unauthorized.message)[]",
		},
		{
			name:    "forbidden",
			err:     apperrors.NewForbiddenError(""),
			status:  http.StatusForbidden,
			message: "t(errors.forbidden.message)[]",
		},
		{
			name:    "too many requests rounds retry up",
			err:     apperrors.NewTooManyRequestsError(1500 * time.Millisecond),
			status:  http.StatusTooManyRequests,
			message: "t(errors.tooManyRequests)[2]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr, ok := apperrors.ToHTTPError(ctx, tt.err, tr)
			require.True(t, ok)
			assert.Equal(t, tt.status, httperror.GetStatusCode(httpErr))
			assert.Equal(t, tt.message, httpErr.Message)
			for k, v := range tt.meta {
				assert.Equal(t, v, httpErr.Meta[k], "meta %s", k)
			}
		})
	}

	t.Run("unclassified errors are not converted", func(t *testing.T) {
		_, ok := apperrors.ToHTTPError(ctx, fmt.Errorf("db down"), tr)
		assert.False(t, ok)
	})
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", apperrors.NewValidationError("x"))
	assert.True(t, apperrors.IsValidationError(wrapped))
	assert.False(t, apperrors.IsNotFoundError(wrapped))
	assert.True(t, apperrors.IsNotFoundError(apperrors.NewNotFoundError("host", 1)))
	assert.True(t, apperrors.IsInvalidCredentialsError(apperrors.NewInvalidCredentialsError()))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "host 42 does not exist", apperrors.NewNotFoundError("host", 42).Error())
	assert.Equal(t, "auth.invalidCredentials", apperrors.NewInvalidCredentialsError().Error())
}
