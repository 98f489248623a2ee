package entity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikilaru/TAMcust/internal/services/entity"
	"github.com/saikilaru/TAMcust/internal/services/servicetest"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/notify"
)

type fixture struct {
	service    *entity.Service[models.Host, models.HostInput]
	repo       *servicetest.Memory[models.Host, models.HostInput]
	tx         *servicetest.TxManager
	dispatcher *servicetest.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	repo := servicetest.NewHostMemory()
	tx := servicetest.NewTxManager(repo)
	dispatcher := &servicetest.Dispatcher{}

	service := entity.NewService(entity.Options[models.Host, models.HostInput]{
		Entity:        "host",
		Repository:    repo,
		TxManager:     tx,
		Translator:    servicetest.Catalog(t),
		Dispatcher:    dispatcher,
		Logger:        servicetest.SilentLogger(),
		RecordID:      func(h *models.Host) uuid.UUID { return h.ID },
		SetImportHash: func(in *models.HostInput, hash string) { in.SetImportHash(hash) },
	})

	return &fixture{service: service, repo: repo, tx: tx, dispatcher: dispatcher}
}

func hostInput(email string) models.HostInput {
	return models.HostInput{FirstName: "Ada", LastName: "Lovelace", Email: email}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := servicetest.TenantContext(uuid.NewString())

	created, err := f.service.Create(ctx, hostInput("ada@example.com"))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.False(t, created.UpdatedAt.IsZero())

	found, err := f.service.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ada", found.FirstName)
	assert.Equal(t, "Lovelace", found.LastName)
	assert.Equal(t, "ada@example.com", found.Email)
	assert.True(t, found.IsActive)

	begun, committed, rolledBack := f.tx.Counts()
	assert.Equal(t, 1, begun)
	assert.Equal(t, 1, committed)
	assert.Equal(t, 0, rolledBack)

	events := f.dispatcher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventCreated, events[0].Type)
	assert.Equal(t, "host", events[0].Entity)
	assert.Equal(t, created.ID.String(), events[0].RecordID)
	assert.Equal(t, servicetest.TenantID.String(), events[0].TenantID)
}

func TestCreate_DuplicateUniqueField(t *testing.T) {
	f := newFixture(t)
	ctx := servicetest.TenantContext("")

	first, err := f.service.Create(ctx, hostInput("dup@example.com"))
	require.NoError(t, err)

	second := hostInput("DUP@example.com")
	second.FirstName = "Grace"
	_, err = f.service.Create(ctx, second)
	require.Error(t, err)

	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "entities.host.errors.unique.email", validationErr.MessageKey())
	assert.Equal(t, "A host with this email already exists", validationErr.Error())
	assert.Equal(t, "email", validationErr.Field)

	stored, ok := f.repo.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, *first, stored)
	assert.Equal(t, 1, f.repo.Len())

	_, _, rolledBack := f.tx.Counts()
	assert.Equal(t, 1, rolledBack)
	assert.Len(t, f.dispatcher.Events(), 1, "failed creates are not notified")
}

func TestCreate_UniqueFieldWithoutCatalogEntry(t *testing.T) {
	repo := servicetest.NewMemory(servicetest.MemoryConfig[models.Host, models.HostInput]{
		Entity: "host",
		New: func(id uuid.UUID, in models.HostInput, _ time.Time) models.Host {
			return models.Host{ID: id, FirstName: in.FirstName, Phone: in.Phone}
		},
		ID: func(h models.Host) uuid.UUID { return h.ID },
		Unique: map[string]func(models.Host) string{
			"phone": func(h models.Host) string {
				if h.Phone == nil {
					return ""
				}
				return *h.Phone
			},
		},
	})
	service := entity.NewService(entity.Options[models.Host, models.HostInput]{
		Entity:     "host",
		Repository: repo,
		TxManager:  servicetest.NewTxManager(repo),
		Translator: servicetest.Catalog(t),
		Logger:     servicetest.SilentLogger(),
	})

	phone := "+1 555 0100"
	in := models.HostInput{FirstName: "Ada", Phone: &phone}
	ctx := servicetest.TenantContext("")

	_, err := service.Create(ctx, in)
	require.NoError(t, err)

	_, err = service.Create(ctx, in)
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, apperrors.KeyUnique, validationErr.MessageKey())
	assert.Equal(t, "phone must be unique", validationErr.Error())
}

func TestCreate_UnclassifiedFailureIsReturnedUnchanged(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	f.repo.CreateErr = boom

	_, err := f.service.Create(servicetest.TenantContext(""), hostInput("a@example.com"))
	assert.Same(t, boom, err)

	_, _, rolledBack := f.tx.Counts()
	assert.Equal(t, 1, rolledBack)
	assert.Empty(t, f.dispatcher.Events())
}

func TestCreate_BeforeCreateRunsInsideTheUnitOfWork(t *testing.T) {
	repo := servicetest.NewHostMemory()
	tx := servicetest.NewTxManager(repo)
	rejected := apperrors.NewValidationError("errors.validation.invalid", "email")

	var sawTx bool
	service := entity.NewService(entity.Options[models.Host, models.HostInput]{
		Entity:     "host",
		Repository: repo,
		TxManager:  tx,
		Logger:     servicetest.SilentLogger(),
		BeforeCreate: func(ctx context.Context, in *models.HostInput) error {
			sawTx = servicetest.InTx(ctx)
			if in.Email == "blocked@example.com" {
				return rejected
			}
			in.FirstName = "Normalized"
			return nil
		},
	})
	ctx := servicetest.TenantContext("")

	created, err := service.Create(ctx, hostInput("ok@example.com"))
	require.NoError(t, err)
	assert.True(t, sawTx)
	assert.Equal(t, "Normalized", created.FirstName)

	_, err = service.Create(ctx, hostInput("blocked@example.com"))
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, repo.Len())
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := servicetest.TenantContext("")

	created, err := f.service.Create(ctx, hostInput("ada@example.com"))
	require.NoError(t, err)

	t.Run("updates an existing record", func(t *testing.T) {
		in := hostInput("ada@example.com")
		in.LastName = "King"
		updated, err := f.service.Update(ctx, created.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "King", updated.LastName)

		events := f.dispatcher.Events()
		assert.Equal(t, notify.EventUpdated, events[len(events)-1].Type)
	})

	t.Run("missing record is not found", func(t *testing.T) {
		_, _, before := f.tx.Counts()

		_, err := f.service.Update(ctx, uuid.New(), hostInput("x@example.com"))
		assert.True(t, apperrors.IsNotFoundError(err))

		_, _, after := f.tx.Counts()
		assert.Equal(t, before+1, after)
		assert.Equal(t, 1, f.repo.Len())
	})

	t.Run("unique conflict with another record", func(t *testing.T) {
		_, err := f.service.Create(ctx, hostInput("grace@example.com"))
		require.NoError(t, err)

		_, err = f.service.Update(ctx, created.ID, hostInput("grace@example.com"))
		assert.True(t, apperrors.IsValidationError(err))

		stored, _ := f.repo.Get(created.ID)
		assert.Equal(t, "ada@example.com", stored.Email)
	})
}

func TestDestroyAll(t *testing.T) {
	seed := func(t *testing.T, f *fixture, n int) []uuid.UUID {
		ids := make([]uuid.UUID, n)
		for i := range ids {
			created, err := f.service.Create(servicetest.TenantContext(""), hostInput(uuid.NewString()+"@example.com"))
			require.NoError(t, err)
			ids[i] = created.ID
		}
		return ids
	}

	t.Run("removes every record", func(t *testing.T) {
		f := newFixture(t)
		ids := seed(t, f, 3)

		require.NoError(t, f.service.DestroyAll(servicetest.TenantContext(""), ids))
		assert.Equal(t, 0, f.repo.Len())

		deleted := 0
		for _, evt := range f.dispatcher.Events() {
			if evt.Type == notify.EventDeleted {
				deleted++
			}
		}
		assert.Equal(t, 3, deleted)
	})

	t.Run("failure mid-sequence keeps every record", func(t *testing.T) {
		f := newFixture(t)
		ids := seed(t, f, 3)
		boom := errors.New("disk full")
		f.repo.DestroyErr[ids[2]] = boom

		err := f.service.DestroyAll(servicetest.TenantContext(""), ids)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, f.repo.Len())
		for _, id := range ids {
			_, ok := f.repo.Get(id)
			assert.True(t, ok)
		}
	})

	t.Run("unknown id rolls back the batch", func(t *testing.T) {
		f := newFixture(t)
		ids := seed(t, f, 2)

		err := f.service.DestroyAll(servicetest.TenantContext(""), append(ids, uuid.New()))
		assert.True(t, apperrors.IsNotFoundError(err))
		assert.Equal(t, 2, f.repo.Len())
	})
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := servicetest.TenantContext("")

	t.Run("hash is required", func(t *testing.T) {
		for _, hash := range []*string{nil, ptr(""), ptr("   ")} {
			_, err := f.service.Import(ctx, hostInput("a@example.com"), hash)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err))
			assert.Equal(t, "Import hash is required", err.Error())
		}
		assert.Equal(t, 0, f.repo.Len())
	})

	t.Run("hash is attached to the record", func(t *testing.T) {
		created, err := f.service.Import(ctx, hostInput("a@example.com"), ptr("H1"))
		require.NoError(t, err)
		require.NotNil(t, created.ImportHash)
		assert.Equal(t, "H1", *created.ImportHash)

		events := f.dispatcher.Events()
		assert.Equal(t, notify.EventImported, events[len(events)-1].Type)
	})

	t.Run("repeated hash is rejected even with different data", func(t *testing.T) {
		_, err := f.service.Import(ctx, hostInput("b@example.com"), ptr("H1"))
		require.Error(t, err)
		assert.True(t, apperrors.IsValidationError(err))
		assert.Equal(t, "Data already imported", err.Error())
		assert.Equal(t, 1, f.repo.Len())
	})

	t.Run("unique import hash violation maps to data already imported", func(t *testing.T) {
		in := hostInput("c@example.com")
		in.SetImportHash("H1")
		_, err := f.service.Create(ctx, in)
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, entity.KeyImportHashExistent, validationErr.MessageKey())
	})
}

func TestReads(t *testing.T) {
	f := newFixture(t)
	ctx := servicetest.TenantContext("")

	t.Run("empty results are not errors", func(t *testing.T) {
		found, err := f.service.FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)

		page, err := f.service.FindAndCountAll(ctx, models.Query{})
		require.NoError(t, err)
		assert.NotNil(t, page.Rows)
		assert.Equal(t, 0, page.Count)

		options, err := f.service.FindAllAutocomplete(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.NotNil(t, options)
		assert.Empty(t, options)
	})

	for _, email := range []string{"ada@example.com", "grace@example.com", "alan@example.com"} {
		_, err := f.service.Create(ctx, hostInput(email))
		require.NoError(t, err)
	}

	t.Run("pages and counts", func(t *testing.T) {
		page, err := f.service.FindAndCountAll(ctx, models.Query{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Rows, 2)
		assert.Equal(t, 3, page.Count)

		page, err = f.service.FindAndCountAll(ctx, models.Query{Filter: models.Filter{"email": "grace"}})
		require.NoError(t, err)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, "grace@example.com", page.Rows[0].Email)
	})

	t.Run("autocomplete", func(t *testing.T) {
		options, err := f.service.FindAllAutocomplete(ctx, "lovelace", 2)
		require.NoError(t, err)
		assert.Len(t, options, 2)
		assert.Equal(t, "Ada Lovelace", options[0].Label)
	})
}

func TestParseIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	catalog := servicetest.Catalog(t)

	ids, err := entity.ParseIDs(context.Background(), catalog, []string{a.String() + "," + b.String(), " "})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, ids)

	_, err = entity.ParseIDs(context.Background(), catalog, []string{"not-a-uuid"})
	assert.True(t, apperrors.IsValidationError(err))
}

func ptr(s string) *string {
	return &s
}
