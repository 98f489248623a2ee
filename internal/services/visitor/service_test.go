package visitor_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikilaru/TAMcust/internal/services/servicetest"
	"github.com/saikilaru/TAMcust/internal/services/visitor"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/notify"
)

type visitorRepo struct {
	*servicetest.Memory[models.Visitor, models.VisitorInput]
}

func (r visitorRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.VisitorStatus) (*models.Visitor, error) {
	return r.UpdateWith(id, func(v *models.Visitor) { v.Status = status })
}

type tenantReader map[uuid.UUID]*models.Tenant

func (t tenantReader) FindByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	return t[id], nil
}

func newService(t *testing.T, plan models.PlanKey) (*visitor.Service, visitorRepo, *servicetest.Dispatcher) {
	repo := visitorRepo{servicetest.NewVisitorMemory()}
	tenants := tenantReader{servicetest.TenantID: {ID: servicetest.TenantID, Name: "Acme", Plan: plan}}
	dispatcher := &servicetest.Dispatcher{}

	service := visitor.NewService(repo, tenants, servicetest.NewTxManager(repo), servicetest.Catalog(t), dispatcher, servicetest.SilentLogger())
	return service, repo, dispatcher
}

func input(first string) models.VisitorInput {
	return models.VisitorInput{FirstName: first, LastName: "Visitor"}
}

func TestCreateDefaultsToExpected(t *testing.T) {
	service, _, _ := newService(t, models.PlanGrowth)

	created, err := service.Create(servicetest.TenantContext(""), input("Ada"))
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusExpected, created.Status)
}

func TestPlanLimit(t *testing.T) {
	service, repo, _ := newService(t, models.PlanFree)
	ctx := servicetest.TenantContext("")

	for i := 0; i < 100; i++ {
		repo.Put(models.Visitor{ID: uuid.New(), FirstName: "Seed", Status: models.VisitorStatusExpected})
	}

	_, err := service.Create(ctx, input("One too many"))
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, visitor.KeyPlanLimit, validationErr.MessageKey())
	assert.Equal(t, "Your plan allows up to 100 visitors", validationErr.Error())
	assert.Equal(t, 100, repo.Len())

	t.Run("unlimited plans skip the check", func(t *testing.T) {
		service, repo, _ := newService(t, models.PlanEnterprise)
		for i := 0; i < 200; i++ {
			repo.Put(models.Visitor{ID: uuid.New(), FirstName: "Seed"})
		}
		_, err := service.Create(ctx, input("Ada"))
		assert.NoError(t, err)
	})
}

func TestDuplicateDocumentNumber(t *testing.T) {
	service, repo, _ := newService(t, models.PlanGrowth)
	ctx := servicetest.TenantContext("")

	doc := "AB-123"
	in := input("Ada")
	in.DocumentNumber = &doc
	_, err := service.Create(ctx, in)
	require.NoError(t, err)

	_, err = service.Create(ctx, in)
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "entities.visitor.errors.unique.documentNumber", validationErr.MessageKey())
	assert.Equal(t, "A visitor with this document number already exists", validationErr.Error())
	assert.Equal(t, "document_number", validationErr.Field, "field uses the request body name")
	assert.Equal(t, 1, repo.Len())
}

func TestCheckInCheckOut(t *testing.T) {
	service, _, dispatcher := newService(t, models.PlanGrowth)
	ctx := servicetest.TenantContext("")

	created, err := service.Create(ctx, input("Ada"))
	require.NoError(t, err)

	t.Run("cannot check out before checking in", func(t *testing.T) {
		_, err := service.CheckOut(ctx, created.ID)
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "Visitor cannot go from expected to checked_out", validationErr.Error())
	})

	checkedIn, err := service.CheckIn(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusCheckedIn, checkedIn.Status)

	checkedOut, err := service.CheckOut(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusCheckedOut, checkedOut.Status)

	events := dispatcher.Events()
	require.Len(t, events, 3)
	assert.Equal(t, notify.EventUpdated, events[2].Type)

	t.Run("unknown visitor", func(t *testing.T) {
		_, err := service.CheckIn(ctx, uuid.New())
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}

func TestUpdateRejectsInvalidStatusChange(t *testing.T) {
	service, repo, _ := newService(t, models.PlanGrowth)
	ctx := servicetest.TenantContext("")

	created, err := service.Create(ctx, input("Ada"))
	require.NoError(t, err)

	in := input("Ada")
	in.Status = models.VisitorStatusCheckedOut
	_, err = service.Update(ctx, created.ID, in)
	assert.True(t, apperrors.IsValidationError(err))

	stored, _ := repo.Get(created.ID)
	assert.Equal(t, models.VisitorStatusExpected, stored.Status)

	in.Status = models.VisitorStatusDenied
	updated, err := service.Update(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, models.VisitorStatusDenied, updated.Status)
}
