package visitor

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

type Repository struct {
	*repositories.EntityRepository[VisitorRow, models.Visitor, models.VisitorInput]
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	table := repositories.NewTable[VisitorRow](repositories.NewRepository(db, logger), repositories.TableConfig{
		Name:   visitorsTable,
		Entity: "visitor",
		Fields: constraintFields,
		Label:  "first_name || ' ' || last_name",
		Search: []string{"first_name", "last_name", "email", "document_number"},
		Filters: map[string]repositories.FilterFunc{
			"firstName":      repositories.Contains("first_name"),
			"lastName":       repositories.Contains("last_name"),
			"email":          repositories.Contains("email"),
			"company":        repositories.Contains("company"),
			"documentNumber": repositories.Equal("document_number"),
			"status":         repositories.Equal("status"),
			"createdAtRange": repositories.Range("created_at"),
		},
		Sortable: map[string]string{
			"firstName": "first_name",
			"lastName":  "last_name",
			"email":     "email",
			"status":    "status",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		},
	})

	return &Repository{
		EntityRepository: repositories.NewEntityRepository(table, "VisitorRepository", repositories.Mapper[VisitorRow, models.Visitor, models.VisitorInput]{
			FromInput:  FromInput,
			ToModel:    ToVisitor,
			Assign:     assign,
			ImportHash: func(in models.VisitorInput) *string { return in.ImportHash },
		}),
	}
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VisitorStatus) (*models.Visitor, error) {
	ctx, span := tracing.StartSpan(ctx, "VisitorRepository.UpdateStatus")
	defer span.End()

	return r.UpdateColumns(ctx, id, func(ub *database.UpdateBuilder) []string {
		return []string{ub.Assign("status", string(status))}
	})
}
