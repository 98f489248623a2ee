package questionnaire

import (
	"github.com/Gobusters/ectologger"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	"github.com/saikilaru/TAMcust/pkg/models"
)

type Repository struct {
	*repositories.EntityRepository[QuestionnaireRow, models.Questionnaire, models.QuestionnaireInput]
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	table := repositories.NewTable[QuestionnaireRow](repositories.NewRepository(db, logger), repositories.TableConfig{
		Name:   questionnairesTable,
		Entity: "questionnaire",
		Fields: constraintFields,
		Label:  "to_char(submitted_at, 'YYYY-MM-DD HH24:MI')",
		Search: []string{"to_char(submitted_at, 'YYYY-MM-DD')"},
		Filters: map[string]repositories.FilterFunc{
			"visitor":          repositories.EqualUUID("visitor_id"),
			"meeting":          repositories.EqualUUID("meeting_id"),
			"passed":           repositories.Equal("passed"),
			"submittedAtRange": repositories.Range("submitted_at"),
		},
		Sortable: map[string]string{
			"submittedAt": "submitted_at",
			"passed":      "passed",
			"createdAt":   "created_at",
		},
		DefaultOrder: "submitted_at DESC",
	})

	return &Repository{
		EntityRepository: repositories.NewEntityRepository(table, "QuestionnaireRepository", repositories.Mapper[QuestionnaireRow, models.Questionnaire, models.QuestionnaireInput]{
			FromInput:  FromInput,
			ToModel:    ToQuestionnaire,
			Assign:     assign,
			ImportHash: func(in models.QuestionnaireInput) *string { return in.ImportHash },
		}),
	}
}
