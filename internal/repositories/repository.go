package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/saikilaru/TAMcust/pkg/context"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
)

// Repository provides the connection and tenant helpers shared by every repository.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) DB() database.DB {
	return r.db
}

func (r *Repository) Logger() ectologger.Logger {
	return r.logger
}

// Q returns the unit of work carried by ctx, or the pool when there is none.
func (r *Repository) Q(ctx context.Context) database.Querier {
	return database.Conn(ctx, r.db)
}

// GetTenantID returns the tenant the request was authorized for.
func GetTenantID(ctx context.Context) (uuid.UUID, error) {
	raw := appctx.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, apperrors.NewUnauthorizedError("")
	}

	tenantID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewUnauthorizedError("")
	}

	return tenantID, nil
}

// GetActorID returns the signed-in user, or nil for system operations.
func GetActorID(ctx context.Context) *uuid.UUID {
	id, err := uuid.Parse(appctx.GetUserID(ctx))
	if err != nil {
		return nil
	}
	return &id
}
