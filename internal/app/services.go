package app

import (
	"github.com/Gobusters/ectologger"

	hostrepo "github.com/saikilaru/TAMcust/internal/repositories/host"
	meetingrepo "github.com/saikilaru/TAMcust/internal/repositories/meeting"
	questionnairerepo "github.com/saikilaru/TAMcust/internal/repositories/questionnaire"
	tenantrepo "github.com/saikilaru/TAMcust/internal/repositories/tenant"
	"github.com/saikilaru/TAMcust/internal/repositories/tenantuser"
	userrepo "github.com/saikilaru/TAMcust/internal/repositories/user"
	visitorrepo "github.com/saikilaru/TAMcust/internal/repositories/visitor"
	"github.com/saikilaru/TAMcust/internal/services/auth"
	"github.com/saikilaru/TAMcust/internal/services/entity"
	"github.com/saikilaru/TAMcust/internal/services/host"
	"github.com/saikilaru/TAMcust/internal/services/meeting"
	"github.com/saikilaru/TAMcust/internal/services/plan"
	"github.com/saikilaru/TAMcust/internal/services/questionnaire"
	"github.com/saikilaru/TAMcust/internal/services/tenant"
	"github.com/saikilaru/TAMcust/internal/services/visitor"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
)

type TenantRepository interface {
	tenant.TenantRepository
	plan.TenantRepository
}

type UserRepository interface {
	auth.UserRepository
	tenant.UserRepository
}

// Repositories is the persistence layer every service is built on.
type Repositories struct {
	Tenants        TenantRepository
	Memberships    tenant.MembershipRepository
	Users          UserRepository
	Visitors       visitor.VisitorRepository
	Hosts          entity.Repository[models.Host, models.HostInput]
	Meetings       entity.Repository[models.Meeting, models.MeetingInput]
	Questionnaires entity.Repository[models.Questionnaire, models.QuestionnaireInput]
}

func NewPostgresRepositories(db database.DB, logger ectologger.Logger) Repositories {
	return Repositories{
		Tenants:        tenantrepo.NewRepository(db, logger),
		Memberships:    tenantuser.NewRepository(db, logger),
		Users:          userrepo.NewRepository(db, logger),
		Visitors:       visitorrepo.NewRepository(db, logger),
		Hosts:          hostrepo.NewRepository(db, logger),
		Meetings:       meetingrepo.NewRepository(db, logger),
		Questionnaires: questionnairerepo.NewRepository(db, logger),
	}
}

type ServiceConfig struct {
	TenantMode tenant.Mode
	Hasher     *security.PasswordHasher
	Tokens     *security.TokenManager
}

type Services struct {
	Auth          *auth.Service
	Tenant        *tenant.Service
	Plan          *plan.Service
	Visitor       *visitor.Service
	Host          *host.Service
	Meeting       *meeting.Service
	Questionnaire *questionnaire.Service
}

func NewServices(repos Repositories, tx database.TxManager, cfg ServiceConfig, tr apperrors.Translator, dispatcher entity.Dispatcher, logger ectologger.Logger) *Services {
	tenants := tenant.NewService(cfg.TenantMode, repos.Tenants, repos.Memberships, repos.Users, tx, tr, logger)

	return &Services{
		Auth:          auth.NewService(repos.Users, tenants, cfg.Hasher, cfg.Tokens, tx, tr, logger),
		Tenant:        tenants,
		Plan:          plan.NewService(repos.Tenants, tx, tr, logger),
		Visitor:       visitor.NewService(repos.Visitors, repos.Tenants, tx, tr, dispatcher, logger),
		Host:          host.NewService(repos.Hosts, tx, tr, dispatcher, logger),
		Meeting:       meeting.NewService(repos.Meetings, repos.Visitors, repos.Hosts, tx, tr, dispatcher, logger),
		Questionnaire: questionnaire.NewService(repos.Questionnaires, repos.Visitors, repos.Meetings, tx, tr, dispatcher, logger),
	}
}
