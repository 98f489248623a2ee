package plan

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

const KeyInvalidPlan = "plan.errors.invalid"

type TenantRepository interface {
	UpdatePlan(ctx context.Context, id uuid.UUID, plan models.PlanKey) (*models.Tenant, error)
}

type Service struct {
	tenants TenantRepository
	tx      database.TxManager
	tr      apperrors.Translator
	logger  ectologger.Logger
}

func NewService(tenants TenantRepository, tx database.TxManager, tr apperrors.Translator, logger ectologger.Logger) *Service {
	return &Service{tenants: tenants, tx: tx, tr: tr, logger: logger}
}

func (s *Service) List() []models.Plan {
	return models.Plans()
}

// Change moves the tenant to plan. Existing records above the new plan's limit are kept.
func (s *Service) Change(ctx context.Context, tenantID uuid.UUID, plan models.PlanKey) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "PlanService.Change")
	defer span.End()

	if _, ok := models.FindPlan(plan); !ok {
		return nil, apperrors.Validation(ctx, s.tr, KeyInvalidPlan, plan).WithField("plan")
	}

	var tenant *models.Tenant
	err := database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		var err error
		tenant, err = s.tenants.UpdatePlan(ctx, tenantID, plan)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"plan":      string(plan),
	}).Info("plan changed")
	return tenant, nil
}
