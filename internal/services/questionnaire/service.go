package questionnaire

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/services/entity"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

const (
	KeyVisitorNotFound = "entities.questionnaire.errors.visitorNotFound"
	KeyMeetingNotFound = "entities.questionnaire.errors.meetingNotFound"
)

type VisitorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Visitor, error)
}

type MeetingLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
}

type Service struct {
	*entity.Service[models.Questionnaire, models.QuestionnaireInput]
	visitors VisitorLookup
	meetings MeetingLookup
}

func NewService(repo entity.Repository[models.Questionnaire, models.QuestionnaireInput], visitors VisitorLookup, meetings MeetingLookup, tx database.TxManager, tr apperrors.Translator, dispatcher entity.Dispatcher, logger ectologger.Logger) *Service {
	s := &Service{visitors: visitors, meetings: meetings}
	s.Service = entity.NewService(entity.Options[models.Questionnaire, models.QuestionnaireInput]{
		Entity:        "questionnaire",
		Repository:    repo,
		TxManager:     tx,
		Translator:    tr,
		Dispatcher:    dispatcher,
		Logger:        logger,
		RecordID:      func(q *models.Questionnaire) uuid.UUID { return q.ID },
		SetImportHash: func(in *models.QuestionnaireInput, hash string) { in.SetImportHash(hash) },
		BeforeCreate:  s.prepare,
		BeforeUpdate: func(ctx context.Context, _ uuid.UUID, in *models.QuestionnaireInput) error {
			return s.prepare(ctx, in)
		},
	})
	return s
}

// prepare checks the references and scores the screening.
func (s *Service) prepare(ctx context.Context, in *models.QuestionnaireInput) error {
	visitor, err := s.visitors.FindByID(ctx, in.VisitorID)
	if err != nil {
		return err
	}
	if visitor == nil {
		return s.Validation(ctx, KeyVisitorNotFound, in.VisitorID).WithField("visitor_id")
	}

	if in.MeetingID != nil {
		meeting, err := s.meetings.FindByID(ctx, *in.MeetingID)
		if err != nil {
			return err
		}
		if meeting == nil || meeting.VisitorID != in.VisitorID {
			return s.Validation(ctx, KeyMeetingNotFound, *in.MeetingID).WithField("meeting_id")
		}
	}

	in.Passed = in.Screen()
	return nil
}
