package tenant

import (
	"context"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

// Mode selects how users are attached to tenants.
type Mode string

const (
	// ModeSingle keeps every user in one shared tenant.
	ModeSingle Mode = "single"
	// ModeMulti lets users create and join any number of tenants.
	ModeMulti Mode = "multi"
)

const (
	DefaultTenantName = "default"

	KeyCreationNotAllowed = "tenant.errors.creationNotAllowed"
	KeyLastAdmin          = "tenant.errors.lastAdmin"
	KeyInvitationNotFound = "tenant.invitation.notFound"
	KeyInvalidRole        = "tenant.invitation.invalidRoles"
)

type TenantRepository interface {
	Create(ctx context.Context, in models.TenantInput, plan models.PlanKey) (*models.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, in models.TenantInput) (*models.Tenant, error)
	Destroy(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	First(ctx context.Context) (*models.Tenant, error)
	FindAllByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tenant, error)
}

type MembershipRepository interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, roles []string, status models.MembershipStatus, invitationToken *string) (*models.TenantUser, error)
	Find(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error)
	FindByInvitationToken(ctx context.Context, token string) (*models.TenantUser, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.TenantUser, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, q models.Query) ([]models.TenantUser, int, error)
	UpdateRoles(ctx context.Context, tenantID, userID uuid.UUID, roles []string) (*models.TenantUser, error)
	Activate(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error)
	Reinvite(ctx context.Context, tenantID, userID uuid.UUID, roles []string, token string) (*models.TenantUser, error)
	Delete(ctx context.Context, tenantID, userID uuid.UUID) error
	CountActiveWithRole(ctx context.Context, tenantID uuid.UUID, role string) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, email string, passwordHash *string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service struct {
	mode        Mode
	tenants     TenantRepository
	memberships MembershipRepository
	users       UserRepository
	tx          database.TxManager
	tr          apperrors.Translator
	logger      ectologger.Logger
}

func NewService(mode Mode, tenants TenantRepository, memberships MembershipRepository, users UserRepository, tx database.TxManager, tr apperrors.Translator, logger ectologger.Logger) *Service {
	if mode == "" {
		mode = ModeMulti
	}
	return &Service{
		mode:        mode,
		tenants:     tenants,
		memberships: memberships,
		users:       users,
		tx:          tx,
		tr:          tr,
		logger:      logger,
	}
}

func (s *Service) Mode() Mode {
	return s.mode
}

// Create opens a new tenant on the free plan with the current user as its admin.
func (s *Service) Create(ctx context.Context, in models.TenantInput) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.Create")
	defer span.End()

	if s.mode == ModeSingle {
		return nil, apperrors.NewForbiddenError(KeyCreationNotAllowed)
	}

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var tenant *models.Tenant
	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		tenant, err = s.createWithAdmin(ctx, in, userID)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, s.translate(ctx, err)
	}
	return tenant, nil
}

func (s *Service) createWithAdmin(ctx context.Context, in models.TenantInput, userID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenants.Create(ctx, in, models.PlanFree)
	if err != nil {
		return nil, err
	}

	if _, err := s.memberships.Create(ctx, tenant.ID, userID, []string{security.RoleAdmin}, models.MembershipActive, nil); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenant.ID,
		"user_id":   userID,
	}).Info("tenant created")
	return tenant, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.TenantInput) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.Update")
	defer span.End()

	var tenant *models.Tenant
	err := database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		var err error
		tenant, err = s.tenants.Update(ctx, id, in)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, s.translate(ctx, err)
	}
	return tenant, nil
}

// DestroyAll deletes every tenant in ids. The current user must be an admin of each of them.
func (s *Service) DestroyAll(ctx context.Context, ids []uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TenantService.DestroyAll")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}

	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		for _, id := range ids {
			membership, err := s.memberships.Find(ctx, id, userID)
			if err != nil {
				return err
			}
			if membership == nil || membership.Status != models.MembershipActive || !security.Allowed(membership.Roles, security.TenantDestroy) {
				return apperrors.NewForbiddenError("")
			}
			if err := s.tenants.Destroy(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		s.logger.WithContext(ctx).WithError(err).WithField("ids", ids).Warn("tenant destroyAll rolled back")
		return err
	}
	return nil
}

// FindByID returns nil, nil when the tenant does not exist.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.FindByID")
	defer span.End()

	return s.tenants.FindByID(ctx, id)
}

// ListForUser returns the memberships of the current user with their tenants attached.
func (s *Service) ListForUser(ctx context.Context) ([]models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.ListForUser")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.Memberships(ctx, userID)
}

// Memberships returns every membership of userID whose tenant still exists.
func (s *Service) Memberships(ctx context.Context, userID uuid.UUID) ([]models.TenantUser, error) {
	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []models.TenantUser{}, nil
	}

	ids := make([]uuid.UUID, len(memberships))
	for i, m := range memberships {
		ids[i] = m.TenantID
	}
	tenants, err := s.tenants.FindAllByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Tenant, len(tenants))
	for _, t := range tenants {
		byID[t.ID] = t
	}

	out := make([]models.TenantUser, 0, len(memberships))
	for _, m := range memberships {
		tenant, ok := byID[m.TenantID]
		if !ok {
			continue
		}
		m.Tenant = &tenant
		out = append(out, m)
	}
	return out, nil
}

// Membership returns the membership of userID in tenantID, or nil.
func (s *Service) Membership(ctx context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.Membership")
	defer span.End()

	return s.memberships.Find(ctx, tenantID, userID)
}

func (s *Service) ListUsers(ctx context.Context, tenantID uuid.UUID, q models.Query) (models.Page[models.TenantUser], error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.ListUsers")
	defer span.End()

	rows, count, err := s.memberships.ListByTenant(ctx, tenantID, q)
	if err != nil {
		return models.Page[models.TenantUser]{}, err
	}
	if rows == nil {
		rows = []models.TenantUser{}
	}
	return models.Page[models.TenantUser]{Rows: rows, Count: count}, nil
}

// Invite adds each email to the tenant with roles. Unknown emails get a placeholder user that is
// completed on sign-up; existing members keep their status and get the new roles.
func (s *Service) Invite(ctx context.Context, tenantID uuid.UUID, req models.InviteUsersRequest) ([]models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.Invite")
	defer span.End()

	if err := s.checkRoles(ctx, req.Roles); err != nil {
		return nil, err
	}

	emails := uniqueEmails(req.Emails)
	invited := make([]models.TenantUser, 0, len(emails))
	err := database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		for _, email := range emails {
			membership, err := s.invite(ctx, tenantID, email, req.Roles)
			if err != nil {
				return err
			}
			invited = append(invited, *membership)
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, s.translate(ctx, err)
	}
	return invited, nil
}

func (s *Service) invite(ctx context.Context, tenantID uuid.UUID, email string, roles []string) (*models.TenantUser, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if user, err = s.users.Create(ctx, email, nil); err != nil {
			return nil, err
		}
	}

	existing, err := s.memberships.Find(ctx, tenantID, user.ID)
	if err != nil {
		return nil, err
	}

	var membership *models.TenantUser
	switch {
	case existing == nil:
		token := newInvitationToken()
		membership, err = s.memberships.Create(ctx, tenantID, user.ID, roles, models.MembershipInvited, &token)
	case existing.Status == models.MembershipActive:
		membership, err = s.memberships.UpdateRoles(ctx, tenantID, user.ID, roles)
	default:
		membership, err = s.memberships.Reinvite(ctx, tenantID, user.ID, roles, newInvitationToken())
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"user_id":   user.ID,
		"status":    string(membership.Status),
	}).Info("user invited")

	membership.User = user
	return membership, nil
}

// AcceptInvitation attaches the invitation identified by token to the current user.
func (s *Service) AcceptInvitation(ctx context.Context, token string) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.AcceptInvitation")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var membership *models.TenantUser
	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		membership, err = s.acceptInvitation(ctx, userID, token)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	return membership, nil
}

// acceptInvitation activates the invited membership. An invitation addressed to another user is
// moved to userID, merging roles with any membership userID already holds.
func (s *Service) acceptInvitation(ctx context.Context, userID uuid.UUID, token string) (*models.TenantUser, error) {
	invitation, err := s.memberships.FindByInvitationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation == nil {
		return nil, apperrors.Validation(ctx, s.tr, KeyInvitationNotFound).WithField("token")
	}

	if invitation.UserID == userID {
		return s.memberships.Activate(ctx, invitation.TenantID, userID)
	}

	existing, err := s.memberships.Find(ctx, invitation.TenantID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.memberships.Delete(ctx, invitation.TenantID, invitation.UserID); err != nil {
		return nil, err
	}

	if existing == nil {
		return s.memberships.Create(ctx, invitation.TenantID, userID, invitation.Roles, models.MembershipActive, nil)
	}

	roles := mergeRoles(existing.Roles, invitation.Roles)
	if _, err := s.memberships.UpdateRoles(ctx, invitation.TenantID, userID, roles); err != nil {
		return nil, err
	}
	return s.memberships.Activate(ctx, invitation.TenantID, userID)
}

// UpdateRoles replaces the roles of a member. The tenant always keeps an active admin.
func (s *Service) UpdateRoles(ctx context.Context, tenantID uuid.UUID, req models.UpdateRolesRequest) (*models.TenantUser, error) {
	ctx, span := tracing.StartSpan(ctx, "TenantService.UpdateRoles")
	defer span.End()

	if err := s.checkRoles(ctx, req.Roles); err != nil {
		return nil, err
	}

	var membership *models.TenantUser
	err := database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		existing, err := s.memberships.Find(ctx, tenantID, req.UserID)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NewNotFoundError("user", req.UserID)
		}

		if isActiveAdmin(existing) && !ectolinq.Contains(req.Roles, security.RoleAdmin) {
			if err := s.ensureAnotherAdmin(ctx, tenantID); err != nil {
				return err
			}
		}

		membership, err = s.memberships.UpdateRoles(ctx, tenantID, req.UserID, req.Roles)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	return membership, nil
}

// RemoveUsers deletes the memberships of userIDs in one unit of work.
func (s *Service) RemoveUsers(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TenantService.RemoveUsers")
	defer span.End()

	err := database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		for _, userID := range userIDs {
			existing, err := s.memberships.Find(ctx, tenantID, userID)
			if err != nil {
				return err
			}
			if existing == nil {
				return apperrors.NewNotFoundError("user", userID)
			}
			if isActiveAdmin(existing) {
				if err := s.ensureAnotherAdmin(ctx, tenantID); err != nil {
					return err
				}
			}
			if err := s.memberships.Delete(ctx, tenantID, userID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return err
	}
	return nil
}

// Onboard attaches a freshly signed-in user to tenants. It runs inside the caller's unit of work.
//
// An invitation token is accepted first. In multi mode a tenantID joins that tenant as a pending
// member; in single mode the user joins the default tenant, which is created on first use.
func (s *Service) Onboard(ctx context.Context, userID uuid.UUID, invitationToken *string, tenantID *uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "TenantService.Onboard")
	defer span.End()

	if invitationToken != nil && *invitationToken != "" {
		if _, err := s.acceptInvitation(ctx, userID, *invitationToken); err != nil {
			return err
		}
	}

	switch s.mode {
	case ModeMulti:
		if tenantID == nil {
			return nil
		}
		tenant, err := s.tenants.FindByID(ctx, *tenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return apperrors.NewNotFoundError("tenant", *tenantID)
		}
		return s.join(ctx, tenant.ID, userID, models.MembershipPending)
	case ModeSingle:
		tenant, err := s.tenants.First(ctx)
		if err != nil {
			return err
		}
		if tenant == nil {
			_, err := s.createWithAdmin(ctx, models.TenantInput{Name: DefaultTenantName}, userID)
			return err
		}
		return s.join(ctx, tenant.ID, userID, models.MembershipActive)
	}
	return nil
}

// join adds userID with the default role unless it is already a member.
func (s *Service) join(ctx context.Context, tenantID, userID uuid.UUID, status models.MembershipStatus) error {
	existing, err := s.memberships.Find(ctx, tenantID, userID)
	if err != nil || existing != nil {
		return err
	}
	_, err = s.memberships.Create(ctx, tenantID, userID, []string{security.DefaultRole}, status, nil)
	return err
}

func (s *Service) ensureAnotherAdmin(ctx context.Context, tenantID uuid.UUID) error {
	admins, err := s.memberships.CountActiveWithRole(ctx, tenantID, security.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return apperrors.Validation(ctx, s.tr, KeyLastAdmin).WithField("roles")
	}
	return nil
}

func (s *Service) checkRoles(ctx context.Context, roles []string) error {
	for _, role := range roles {
		if !ectolinq.Contains(security.Roles, role) {
			return apperrors.Validation(ctx, s.tr, KeyInvalidRole, role).WithField("roles")
		}
	}
	return nil
}

func (s *Service) translate(ctx context.Context, err error) error {
	if cv, ok := database.AsConstraintViolation(err, database.UniqueViolation); ok {
		return apperrors.Validation(ctx, s.tr, apperrors.KeyUnique, cv.Field).WithField(cv.Field)
	}
	return err
}

func currentUser(ctx context.Context) (uuid.UUID, error) {
	id := repositories.GetActorID(ctx)
	if id == nil {
		return uuid.Nil, apperrors.NewUnauthorizedError("")
	}
	return *id, nil
}

func isActiveAdmin(m *models.TenantUser) bool {
	return m.Status == models.MembershipActive && ectolinq.Contains(m.Roles, security.RoleAdmin)
}

func mergeRoles(a, b []string) []string {
	out := append([]string{}, a...)
	for _, role := range b {
		if !ectolinq.Contains(out, role) {
			out = append(out, role)
		}
	}
	return out
}

func uniqueEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" && !ectolinq.Contains(out, email) {
			out = append(out, email)
		}
	}
	return out
}

func newInvitationToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}
