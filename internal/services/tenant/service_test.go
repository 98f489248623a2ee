package tenant_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikilaru/TAMcust/internal/services/servicetest"
	"github.com/saikilaru/TAMcust/internal/services/tenant"
	appctx "github.com/saikilaru/TAMcust/pkg/context"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
)

type fixture struct {
	service     *tenant.Service
	tenants     *servicetest.Tenants
	memberships *servicetest.Memberships
	users       *servicetest.Users
	tx          *servicetest.TxManager
}

func newFixture(t *testing.T, mode tenant.Mode) *fixture {
	f := &fixture{
		tenants:     servicetest.NewTenants(),
		memberships: servicetest.NewMemberships(),
		users:       servicetest.NewUsers(),
	}
	f.tx = servicetest.NewTxManager(f.tenants, f.memberships, f.users)
	f.service = tenant.NewService(mode, f.tenants, f.memberships, f.users, f.tx, servicetest.Catalog(t), servicetest.SilentLogger())
	return f
}

func (f *fixture) user(t *testing.T, email string) (*models.User, context.Context) {
	u, err := f.users.Create(context.Background(), email, nil)
	require.NoError(t, err)
	return u, appctx.SetUserID(context.Background(), u.ID.String())
}

func TestCreate(t *testing.T) {
	t.Run("creator becomes admin", func(t *testing.T) {
		f := newFixture(t, tenant.ModeMulti)
		owner, ctx := f.user(t, "owner@example.com")

		created, err := f.service.Create(ctx, models.TenantInput{Name: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, models.PlanFree, created.Plan)

		membership, err := f.memberships.Find(ctx, created.ID, owner.ID)
		require.NoError(t, err)
		require.NotNil(t, membership)
		assert.Equal(t, []string{security.RoleAdmin}, membership.Roles)
		assert.Equal(t, models.MembershipActive, membership.Status)

		list, err := f.service.ListForUser(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Acme", list[0].Tenant.Name)
	})

	t.Run("duplicate url", func(t *testing.T) {
		f := newFixture(t, tenant.ModeMulti)
		_, ctx := f.user(t, "owner@example.com")
		url := "acme"

		_, err := f.service.Create(ctx, models.TenantInput{Name: "Acme", URL: &url})
		require.NoError(t, err)

		_, err = f.service.Create(ctx, models.TenantInput{Name: "Acme 2", URL: &url})
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "url", validationErr.Field)
		assert.Equal(t, 1, f.tenants.Len())
	})

	t.Run("single mode forbids creation", func(t *testing.T) {
		f := newFixture(t, tenant.ModeSingle)
		_, ctx := f.user(t, "owner@example.com")

		_, err := f.service.Create(ctx, models.TenantInput{Name: "Acme"})
		var forbidden *apperrors.ForbiddenError
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("requires a signed-in user", func(t *testing.T) {
		f := newFixture(t, tenant.ModeMulti)
		_, err := f.service.Create(context.Background(), models.TenantInput{Name: "Acme"})
		var unauthorized *apperrors.UnauthorizedError
		assert.ErrorAs(t, err, &unauthorized)
	})
}

func TestInvitations(t *testing.T) {
	f := newFixture(t, tenant.ModeMulti)
	_, adminCtx := f.user(t, "admin@example.com")
	acme, err := f.service.Create(adminCtx, models.TenantInput{Name: "Acme"})
	require.NoError(t, err)

	invited, err := f.service.Invite(adminCtx, acme.ID, models.InviteUsersRequest{
		Emails: []string{"New@Example.com", "new@example.com "},
		Roles:  []string{security.RoleReceptionist},
	})
	require.NoError(t, err)
	require.Len(t, invited, 1, "emails are deduplicated")
	assert.Equal(t, models.MembershipInvited, invited[0].Status)
	require.NotNil(t, invited[0].InvitationToken)
	token := *invited[0].InvitationToken

	placeholder, err := f.users.FindByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, placeholder)
	assert.Nil(t, placeholder.PasswordHash)

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.service.Invite(adminCtx, acme.ID, models.InviteUsersRequest{Emails: []string{"x@example.com"}, Roles: []string{"owner"}})
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "Role owner does not exist", validationErr.Error())
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.service.AcceptInvitation(appctx.SetUserID(context.Background(), placeholder.ID.String()), "nope")
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, tenant.KeyInvitationNotFound, validationErr.MessageKey())
	})

	t.Run("accepting activates the membership", func(t *testing.T) {
		ctx := appctx.SetUserID(context.Background(), placeholder.ID.String())
		membership, err := f.service.AcceptInvitation(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipActive, membership.Status)
		assert.Nil(t, membership.InvitationToken)
	})

	t.Run("invitation accepted by another user moves to that user", func(t *testing.T) {
		invited, err := f.service.Invite(adminCtx, acme.ID, models.InviteUsersRequest{Emails: []string{"someone@example.com"}, Roles: []string{security.RoleHost}})
		require.NoError(t, err)

		other, otherCtx := f.user(t, "other@example.com")
		membership, err := f.service.AcceptInvitation(otherCtx, *invited[0].InvitationToken)
		require.NoError(t, err)
		assert.Equal(t, other.ID, membership.UserID)
		assert.Equal(t, []string{security.RoleHost}, membership.Roles)

		gone, err := f.memberships.Find(context.Background(), acme.ID, invited[0].UserID)
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("inviting an active member changes roles", func(t *testing.T) {
		updated, err := f.service.Invite(adminCtx, acme.ID, models.InviteUsersRequest{Emails: []string{"new@example.com"}, Roles: []string{security.RoleHost}})
		require.NoError(t, err)
		assert.Equal(t, models.MembershipActive, updated[0].Status)
		assert.Equal(t, []string{security.RoleHost}, updated[0].Roles)
	})
}

func TestLastAdminIsKept(t *testing.T) {
	f := newFixture(t, tenant.ModeMulti)
	admin, ctx := f.user(t, "admin@example.com")
	acme, err := f.service.Create(ctx, models.TenantInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = f.service.UpdateRoles(ctx, acme.ID, models.UpdateRolesRequest{UserID: admin.ID, Roles: []string{security.RoleReadonly}})
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, tenant.KeyLastAdmin, validationErr.MessageKey())

	err = f.service.RemoveUsers(ctx, acme.ID, []uuid.UUID{admin.ID})
	assert.True(t, apperrors.IsValidationError(err))

	second, _ := f.user(t, "second@example.com")
	_, err = f.memberships.Create(ctx, acme.ID, second.ID, []string{security.RoleAdmin}, models.MembershipActive, nil)
	require.NoError(t, err)

	demoted, err := f.service.UpdateRoles(ctx, acme.ID, models.UpdateRolesRequest{UserID: admin.ID, Roles: []string{security.RoleReadonly}})
	require.NoError(t, err)
	assert.Equal(t, []string{security.RoleReadonly}, demoted.Roles)

	page, err := f.service.ListUsers(ctx, acme.ID, models.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
}

func TestDestroyAll(t *testing.T) {
	f := newFixture(t, tenant.ModeMulti)
	_, ctx := f.user(t, "admin@example.com")
	a, err := f.service.Create(ctx, models.TenantInput{Name: "A"})
	require.NoError(t, err)
	b, err := f.service.Create(ctx, models.TenantInput{Name: "B"})
	require.NoError(t, err)

	_, strangerCtx := f.user(t, "stranger@example.com")
	foreign, err := f.service.Create(strangerCtx, models.TenantInput{Name: "Foreign"})
	require.NoError(t, err)

	err = f.service.DestroyAll(ctx, []uuid.UUID{a.ID, b.ID, foreign.ID})
	var forbidden *apperrors.ForbiddenError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, 3, f.tenants.Len(), "nothing is deleted when one tenant is not allowed")

	require.NoError(t, f.service.DestroyAll(ctx, []uuid.UUID{a.ID, b.ID}))
	assert.Equal(t, 1, f.tenants.Len())
}

func TestOnboard(t *testing.T) {
	withTx := func(t *testing.T, f *fixture, fn func(ctx context.Context) error) error {
		return database.WithTx(context.Background(), f.tx, fn)
	}

	t.Run("single mode creates then joins the default tenant", func(t *testing.T) {
		f := newFixture(t, tenant.ModeSingle)
		first, _ := f.user(t, "first@example.com")
		second, _ := f.user(t, "second@example.com")

		require.NoError(t, withTx(t, f, func(ctx context.Context) error { return f.service.Onboard(ctx, first.ID, nil, nil) }))
		require.NoError(t, withTx(t, f, func(ctx context.Context) error { return f.service.Onboard(ctx, second.ID, nil, nil) }))
		require.NoError(t, withTx(t, f, func(ctx context.Context) error { return f.service.Onboard(ctx, second.ID, nil, nil) }))

		assert.Equal(t, 1, f.tenants.Len())
		def, _ := f.tenants.First(context.Background())
		assert.Equal(t, tenant.DefaultTenantName, def.Name)

		firstMembership, _ := f.memberships.Find(context.Background(), def.ID, first.ID)
		assert.Equal(t, []string{security.RoleAdmin}, firstMembership.Roles)

		secondMembership, _ := f.memberships.Find(context.Background(), def.ID, second.ID)
		assert.Equal(t, []string{security.DefaultRole}, secondMembership.Roles)
		assert.Equal(t, models.MembershipActive, secondMembership.Status)
	})

	t.Run("multi mode joins the requested tenant as pending", func(t *testing.T) {
		f := newFixture(t, tenant.ModeMulti)
		_, adminCtx := f.user(t, "admin@example.com")
		acme, err := f.service.Create(adminCtx, models.TenantInput{Name: "Acme"})
		require.NoError(t, err)

		joiner, _ := f.user(t, "joiner@example.com")
		require.NoError(t, withTx(t, f, func(ctx context.Context) error { return f.service.Onboard(ctx, joiner.ID, nil, &acme.ID) }))

		membership, _ := f.memberships.Find(context.Background(), acme.ID, joiner.ID)
		require.NotNil(t, membership)
		assert.Equal(t, models.MembershipPending, membership.Status)

		missing := uuid.New()
		err = withTx(t, f, func(ctx context.Context) error { return f.service.Onboard(ctx, joiner.ID, nil, &missing) })
		assert.True(t, apperrors.IsNotFoundError(err))
	})

	t.Run("multi mode without tenant does nothing", func(t *testing.T) {
		f := newFixture(t, tenant.ModeMulti)
		u, _ := f.user(t, "solo@example.com")
		require.NoError(t, withTx(t, f, func(ctx context.Context) error { return f.service.Onboard(ctx, u.ID, nil, nil) }))
		assert.Equal(t, 0, f.tenants.Len())
	})
}
