package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikilaru/TAMcust/internal/services/host"
	"github.com/saikilaru/TAMcust/internal/services/servicetest"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

func TestHostService(t *testing.T) {
	repo := servicetest.NewHostMemory()
	service := host.NewService(repo, servicetest.NewTxManager(repo), servicetest.Catalog(t), &servicetest.Dispatcher{}, servicetest.SilentLogger())
	ctx := servicetest.TenantContext("")

	created, err := service.Create(ctx, models.HostInput{FirstName: "Grace", LastName: "Hopper", Email: "  Grace@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", created.Email)
	assert.True(t, created.IsActive)

	inactive := false
	updated, err := service.Update(ctx, created.ID, models.HostInput{FirstName: "Grace", LastName: "Hopper", Email: "GRACE@example.com", IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "grace@example.com", updated.Email)

	_, err = service.Create(ctx, models.HostInput{FirstName: "Other", LastName: "Host", Email: "grace@example.com"})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "A host with this email already exists", validationErr.Error())
}
