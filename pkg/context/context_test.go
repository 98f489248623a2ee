package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	t.Run("empty context returns zero values", func(t *testing.T) {
		assert.Equal(t, "", appctx.GetTenantID(ctx))
		assert.Equal(t, "", appctx.GetUserID(ctx))
		assert.Equal(t, "", appctx.GetLocale(ctx))
		assert.Nil(t, appctx.GetRoles(ctx))
	})

	t.Run("values round trip", func(t *testing.T) {
		ctx := appctx.SetTenantID(ctx, "tenant-1")
		ctx = appctx.SetUserID(ctx, "user-1")
		ctx = appctx.SetLocale(ctx, "pt-BR")
		ctx = appctx.SetRoles(ctx, []string{"admin"})
		ctx = appctx.SetRequestID(ctx, "req-1")

		assert.Equal(t, "tenant-1", appctx.GetTenantID(ctx))
		assert.Equal(t, "user-1", appctx.GetUserID(ctx))
		assert.Equal(t, "pt-BR", appctx.GetLocale(ctx))
		assert.Equal(t, []string{"admin"}, appctx.GetRoles(ctx))
		assert.Equal(t, "req-1", appctx.GetRequestID(ctx))
	})
}
