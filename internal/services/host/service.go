package host

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/services/entity"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

type Service struct {
	*entity.Service[models.Host, models.HostInput]
}

func NewService(repo entity.Repository[models.Host, models.HostInput], tx database.TxManager, tr apperrors.Translator, dispatcher entity.Dispatcher, logger ectologger.Logger) *Service {
	normalize := func(in *models.HostInput) {
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}

	return &Service{
		Service: entity.NewService(entity.Options[models.Host, models.HostInput]{
			Entity:        "host",
			Repository:    repo,
			TxManager:     tx,
			Translator:    tr,
			Dispatcher:    dispatcher,
			Logger:        logger,
			RecordID:      func(h *models.Host) uuid.UUID { return h.ID },
			SetImportHash: func(in *models.HostInput, hash string) { in.SetImportHash(hash) },
			BeforeCreate: func(_ context.Context, in *models.HostInput) error {
				normalize(in)
				return nil
			},
			BeforeUpdate: func(_ context.Context, _ uuid.UUID, in *models.HostInput) error {
				normalize(in)
				return nil
			},
		}),
	}
}
