package questionnaire_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikilaru/TAMcust/internal/services/questionnaire"
	"github.com/saikilaru/TAMcust/internal/services/servicetest"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

func TestQuestionnaireService(t *testing.T) {
	visitors := servicetest.NewVisitorMemory()
	meetings := servicetest.NewMeetingMemory()
	repo := servicetest.NewQuestionnaireMemory()

	visitorID, otherVisitorID, meetingID := uuid.New(), uuid.New(), uuid.New()
	visitors.Put(models.Visitor{ID: visitorID, FirstName: "Ada"})
	visitors.Put(models.Visitor{ID: otherVisitorID, FirstName: "Alan"})
	meetings.Put(models.Meeting{ID: meetingID, VisitorID: visitorID})

	service := questionnaire.NewService(repo, visitors, meetings, servicetest.NewTxManager(repo), servicetest.Catalog(t), &servicetest.Dispatcher{}, servicetest.SilentLogger())
	ctx := servicetest.TenantContext("")

	temp := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	screening := []struct {
		name   string
		input  models.QuestionnaireInput
		passed bool
	}{
		{"healthy", models.QuestionnaireInput{Temperature: temp("36.6")}, true},
		{"no temperature taken", models.QuestionnaireInput{}, true},
		{"fever at threshold", models.QuestionnaireInput{Temperature: temp("38.0")}, false},
		{"symptoms", models.QuestionnaireInput{HasSymptoms: true}, false},
		{"recent travel", models.QuestionnaireInput{RecentTravel: true}, false},
		{"close contact", models.QuestionnaireInput{CloseContact: true}, false},
	}

	for _, tt := range screening {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			in.VisitorID = visitorID
			in.Passed = !tt.passed

			created, err := service.Create(ctx, in)
			require.NoError(t, err)
			assert.Equal(t, tt.passed, created.Passed)
		})
	}

	t.Run("meeting must belong to the visitor", func(t *testing.T) {
		_, err := service.Create(ctx, models.QuestionnaireInput{VisitorID: otherVisitorID, MeetingID: &meetingID})
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, questionnaire.KeyMeetingNotFound, validationErr.MessageKey())
	})

	t.Run("unknown visitor", func(t *testing.T) {
		_, err := service.Create(ctx, models.QuestionnaireInput{VisitorID: uuid.New()})
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, questionnaire.KeyVisitorNotFound, validationErr.MessageKey())
	})
}
