package visitor

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/internal/services/entity"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/notify"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

const (
	KeyPlanLimit         = "entities.visitor.errors.planLimit"
	KeyInvalidTransition = "entities.visitor.errors.invalidTransition"
)

type VisitorRepository interface {
	entity.Repository[models.Visitor, models.VisitorInput]
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.VisitorStatus) (*models.Visitor, error)
}

type TenantReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type Service struct {
	*entity.Service[models.Visitor, models.VisitorInput]
	repo    VisitorRepository
	tenants TenantReader
	logger  ectologger.Logger
}

func NewService(repo VisitorRepository, tenants TenantReader, tx database.TxManager, tr apperrors.Translator, dispatcher entity.Dispatcher, logger ectologger.Logger) *Service {
	s := &Service{repo: repo, tenants: tenants, logger: logger}
	s.Service = entity.NewService(entity.Options[models.Visitor, models.VisitorInput]{
		Entity:        "visitor",
		Repository:    repo,
		TxManager:     tx,
		Translator:    tr,
		Dispatcher:    dispatcher,
		Logger:        logger,
		RecordID:      func(v *models.Visitor) uuid.UUID { return v.ID },
		SetImportHash: func(in *models.VisitorInput, hash string) { in.SetImportHash(hash) },
		BeforeCreate:  s.beforeCreate,
		BeforeUpdate:  s.beforeUpdate,
	})
	return s
}

// beforeCreate enforces the visitor limit of the tenant's plan.
func (s *Service) beforeCreate(ctx context.Context, _ *models.VisitorInput) error {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return apperrors.NewNotFoundError("tenant", tenantID)
	}

	plan, ok := models.FindPlan(tenant.Plan)
	if !ok || plan.MaxVisitors == 0 {
		return nil
	}

	count, err := s.repo.Count(ctx, nil)
	if err != nil {
		return err
	}
	if !plan.AllowsVisitors(count + 1) {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id": tenantID,
			"plan":      string(plan.Key),
			"visitors":  count,
		}).Info("visitor plan limit reached")
		return s.Validation(ctx, KeyPlanLimit, plan.MaxVisitors)
	}
	return nil
}

// beforeUpdate rejects status changes the visitor lifecycle does not allow.
func (s *Service) beforeUpdate(ctx context.Context, id uuid.UUID, in *models.VisitorInput) error {
	if in.Status == "" {
		return nil
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return apperrors.NewNotFoundError("visitor", id)
	}
	if current.Status == in.Status {
		return nil
	}
	if !current.Status.CanTransitionTo(in.Status) {
		return s.Validation(ctx, KeyInvalidTransition, current.Status, in.Status).WithField("status")
	}
	return nil
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*models.Visitor, error) {
	ctx, span := tracing.StartSpan(ctx, "VisitorService.CheckIn")
	defer span.End()

	return s.transition(ctx, id, models.VisitorStatusCheckedIn)
}

func (s *Service) CheckOut(ctx context.Context, id uuid.UUID) (*models.Visitor, error) {
	ctx, span := tracing.StartSpan(ctx, "VisitorService.CheckOut")
	defer span.End()

	return s.transition(ctx, id, models.VisitorStatusCheckedOut)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next models.VisitorStatus) (*models.Visitor, error) {
	var visitor *models.Visitor
	err := database.WithTx(ctx, s.TxManager(), func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperrors.NewNotFoundError("visitor", id)
		}
		if !current.Status.CanTransitionTo(next) {
			return s.Validation(ctx, KeyInvalidTransition, current.Status, next).WithField("status")
		}

		visitor, err = s.repo.UpdateStatus(ctx, id, next)
		return err
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":     id,
			"status": string(next),
		}).Warn("visitor transition rolled back")
		return nil, err
	}

	s.Publish(ctx, notify.EventUpdated, visitor)
	return visitor, nil
}
