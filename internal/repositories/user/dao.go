package user

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const usersTable = "users"

var constraintFields = database.ConstraintFields{
	"users_email_key": "email",
}

type UserRow struct {
	ID            uuid.UUID      `db:"id"`
	Email         string         `db:"email"`
	PasswordHash  sql.NullString `db:"password_hash"`
	FirstName     sql.NullString `db:"first_name"`
	LastName      sql.NullString `db:"last_name"`
	FullName      sql.NullString `db:"full_name"`
	PhoneNumber   sql.NullString `db:"phone_number"`
	EmailVerified bool           `db:"email_verified"`
	Disabled      bool           `db:"disabled"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

var userStruct = database.NewStruct(new(UserRow))

func ToUser(row *UserRow) *models.User {
	return &models.User{
		ID:            row.ID,
		Email:         row.Email,
		PasswordHash:  repositories.StringPtr(row.PasswordHash),
		FirstName:     repositories.StringPtr(row.FirstName),
		LastName:      repositories.StringPtr(row.LastName),
		FullName:      repositories.StringPtr(row.FullName),
		PhoneNumber:   repositories.StringPtr(row.PhoneNumber),
		EmailVerified: row.EmailVerified,
		Disabled:      row.Disabled,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

// fullName joins the non-empty name parts.
func fullName(first, last *string) sql.NullString {
	var parts []string
	for _, p := range []*string{first, last} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(parts, " "), Valid: true}
}
