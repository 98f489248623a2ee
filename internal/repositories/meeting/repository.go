package meeting

import (
	"github.com/Gobusters/ectologger"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

type Repository struct {
	*repositories.EntityRepository[MeetingRow, models.Meeting, models.MeetingInput]
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	table := repositories.NewTable[MeetingRow](repositories.NewRepository(db, logger), repositories.TableConfig{
		Name:   meetingsTable,
		Entity: "meeting",
		Fields: constraintFields,
		Label:  "purpose || ' (' || to_char(scheduled_at, 'YYYY-MM-DD HH24:MI') || ')'",
		Search: []string{"purpose", "location"},
		Filters: map[string]repositories.FilterFunc{
			"visitor":          repositories.EqualUUID("visitor_id"),
			"host":             repositories.EqualUUID("host_id"),
			"purpose":          repositories.Contains("purpose"),
			"location":         repositories.Contains("location"),
			"status":           repositories.Equal("status"),
			"scheduledAtRange": repositories.Range("scheduled_at"),
		},
		Sortable: map[string]string{
			"scheduledAt": "scheduled_at",
			"purpose":     "purpose",
			"status":      "status",
			"createdAt":   "created_at",
		},
		DefaultOrder: "scheduled_at DESC",
	})

	return &Repository{
		EntityRepository: repositories.NewEntityRepository(table, "MeetingRepository", repositories.Mapper[MeetingRow, models.Meeting, models.MeetingInput]{
			FromInput:  FromInput,
			ToModel:    ToMeeting,
			Assign:     assign,
			ImportHash: func(in models.MeetingInput) *string { return in.ImportHash },
		}),
	}
}
