package meeting

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
	KeyVisitorNotFound = "entities.meeting.errors.visitorNotFound"
	KeyHostNotFound    = "entities.meeting.errors.hostNotFound"
	KeyInvalidSchedule = "entities.meeting.errors.invalidSchedule"
)

type VisitorLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Visitor, error)
}

type HostLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Host, error)
}

type Service struct {
	*entity.Service[models.Meeting, models.MeetingInput]
	visitors VisitorLookup
	hosts    HostLookup
}

func NewService(repo entity.Repository[models.Meeting, models.MeetingInput], visitors VisitorLookup, hosts HostLookup, tx database.TxManager, tr apperrors.Translator, dispatcher entity.Dispatcher, logger ectologger.Logger) *Service {
	s := &Service{visitors: visitors, hosts: hosts}
	s.Service = entity.NewService(entity.Options[models.Meeting, models.MeetingInput]{
		Entity:        "meeting",
		Repository:    repo,
		TxManager:     tx,
		Translator:    tr,
		Dispatcher:    dispatcher,
		Logger:        logger,
		RecordID:      func(m *models.Meeting) uuid.UUID { return m.ID },
		SetImportHash: func(in *models.MeetingInput, hash string) { in.SetImportHash(hash) },
		BeforeCreate:  s.check,
		BeforeUpdate: func(ctx context.Context, _ uuid.UUID, in *models.MeetingInput) error {
			return s.check(ctx, in)
		},
	})
	return s
}

// check verifies the referenced visitor and host exist in the tenant and the check-in/out times
// are ordered.
func (s *Service) check(ctx context.Context, in *models.MeetingInput) error {
	visitor, err := s.visitors.FindByID(ctx, in.VisitorID)
	if err != nil {
		return err
	}
	if visitor == nil {
		return s.Validation(ctx, KeyVisitorNotFound, in.VisitorID).WithField("visitor_id")
	}

	host, err := s.hosts.FindByID(ctx, in.HostID)
	if err != nil {
		return err
	}
	if host == nil {
		return s.Validation(ctx, KeyHostNotFound, in.HostID).WithField("host_id")
	}

	if in.CheckedInAt != nil && in.CheckedOutAt != nil && in.CheckedOutAt.Before(*in.CheckedInAt) {
		return s.Validation(ctx, KeyInvalidSchedule).WithField("checked_out_at")
	}
	return nil
}
