package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type Repository struct {
	*repositories.Repository
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{Repository: repositories.NewRepository(db, logger)}
}

// Create inserts a user. A nil passwordHash creates an invited placeholder that completes on sign-up.
func (r *Repository) Create(ctx context.Context, email string, passwordHash *string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.Create")
	defer span.End()

	now := repositories.Now()
	row := &UserRow{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: repositories.NullString(passwordHash),
		CreatedAt:    sql.NullTime{Time: now, Valid: true},
		UpdatedAt:    sql.NullTime{Time: now, Valid: true},
	}

	query, args := userStruct.InsertInto(usersTable, row).Build()
	if _, err := r.Q(ctx).ExecContext(ctx, query, args...); err != nil {
		tracing.Fail(span, err)
		r.Logger().WithContext(ctx).WithError(err).Error("failed to create user")
		return nil, fmt.Errorf("failed to create user: %w", database.ClassifyError(err, constraintFields))
	}

	return ToUser(row), nil
}

// FindByEmail matches case-insensitively and returns nil, nil when there is no such user.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.FindByEmail")
	defer span.End()

	sb := userStruct.SelectFrom(usersTable)
	sb.Where(sb.Equal("lower(email)", strings.ToLower(strings.TrimSpace(email))))
	return r.get(ctx, sb)
}

// FindByID returns nil, nil when there is no such user.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.FindByID")
	defer span.End()

	sb := userStruct.SelectFrom(usersTable)
	sb.Where(sb.Equal("id", id))
	return r.get(ctx, sb)
}

func (r *Repository) get(ctx context.Context, sb *database.SelectBuilder) (*models.User, error) {
	query, args := sb.Build()

	var row UserRow
	if err := r.Q(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.Logger().WithContext(ctx).WithError(err).Error("failed to get user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return ToUser(&row), nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.UpdatePassword")
	defer span.End()

	_, err := r.update(ctx, id, func(ub *database.UpdateBuilder) []string {
		return []string{ub.Assign("password_hash", passwordHash)}
	})
	return err
}

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, in models.ProfileInput) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "UserRepository.UpdateProfile")
	defer span.End()

	return r.update(ctx, id, func(ub *database.UpdateBuilder) []string {
		return []string{
			ub.Assign("first_name", repositories.NullString(in.FirstName)),
			ub.Assign("last_name", repositories.NullString(in.LastName)),
			ub.Assign("full_name", fullName(in.FirstName, in.LastName)),
			ub.Assign("phone_number", repositories.NullString(in.PhoneNumber)),
		}
	})
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, set func(ub *database.UpdateBuilder) []string) (*models.User, error) {
	ub := database.NewUpdateBuilder()
	ub.Update(usersTable)
	ub.Set(append(set(ub), ub.Assign("updated_at", repositories.Now()))...)
	ub.Where(ub.Equal("id", id))
	query, args := ub.Build()

	result, err := r.Q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.Logger().WithContext(ctx).WithError(err).WithField("user_id", id).Error("failed to update user")
		return nil, fmt.Errorf("failed to update user: %w", database.ClassifyError(err, constraintFields))
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return nil, apperrors.NewNotFoundError("user", id)
	}

	return r.FindByID(ctx, id)
}
