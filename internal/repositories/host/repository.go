package host

import (
	"github.com/Gobusters/ectologger"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

type Repository struct {
	*repositories.EntityRepository[HostRow, models.Host, models.HostInput]
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	table := repositories.NewTable[HostRow](repositories.NewRepository(db, logger), repositories.TableConfig{
		Name:   hostsTable,
		Entity: "host",
		Fields: constraintFields,
		Label:  "first_name || ' ' || last_name",
		Search: []string{"first_name", "last_name", "email"},
		Filters: map[string]repositories.FilterFunc{
			"firstName":  repositories.Contains("first_name"),
			"lastName":   repositories.Contains("last_name"),
			"email":      repositories.Contains("email"),
			"department": repositories.Contains("department"),
			"isActive":   repositories.Equal("is_active"),
		},
		Sortable: map[string]string{
			"firstName":  "first_name",
			"lastName":   "last_name",
			"email":      "email",
			"department": "department",
			"createdAt":  "created_at",
		},
	})

	return &Repository{
		EntityRepository: repositories.NewEntityRepository(table, "HostRepository", repositories.Mapper[HostRow, models.Host, models.HostInput]{
			FromInput:  FromInput,
			ToModel:    ToHost,
			Assign:     assign,
			ImportHash: func(in models.HostInput) *string { return in.ImportHash },
		}),
	}
}
