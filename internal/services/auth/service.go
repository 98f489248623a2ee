package auth

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/internal/repositories"
	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/metrics"
	"github.com/saikilaru/TAMcust/pkg/models"
	"github.com/saikilaru/TAMcust/pkg/security"
	"github.com/saikilaru/TAMcust/pkg/tracing"
)

const (
	KeyEmailAlreadyInUse = "auth.emailAlreadyInUse"
	KeyUserDisabled      = "auth.userDisabled"
	KeyInvalidPassword   = "auth.passwordChange.invalidPassword"

	flowSignUp = "sign_up"
	flowSignIn = "sign_in"
)

type UserRepository interface {
	Create(ctx context.Context, email string, passwordHash *string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, in models.ProfileInput) (*models.User, error)
}

// Onboarder attaches a signed-in user to tenants inside the caller's unit of work.
type Onboarder interface {
	Onboard(ctx context.Context, userID uuid.UUID, invitationToken *string, tenantID *uuid.UUID) error
	Memberships(ctx context.Context, userID uuid.UUID) ([]models.TenantUser, error)
}

type Service struct {
	users     UserRepository
	onboarder Onboarder
	hasher    *security.PasswordHasher
	tokens    *security.TokenManager
	tx        database.TxManager
	tr        apperrors.Translator
	logger    ectologger.Logger
}

func NewService(users UserRepository, onboarder Onboarder, hasher *security.PasswordHasher, tokens *security.TokenManager, tx database.TxManager, tr apperrors.Translator, logger ectologger.Logger) *Service {
	return &Service{
		users:     users,
		onboarder: onboarder,
		hasher:    hasher,
		tokens:    tokens,
		tx:        tx,
		tr:        tr,
		logger:    logger,
	}
}

// SignUp registers email, or completes an invited user that has no password yet, and returns a
// bearer token for it.
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (resp *models.TokenResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.SignUp")
	defer span.End()
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues(flowSignUp, metrics.Outcome(err)).Inc() }()

	email := normalizeEmail(req.Email)
	hash, err := s.hashPassword(ctx, "password", req.Password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		existing, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}

		switch {
		case existing == nil:
			if user, err = s.users.Create(ctx, email, &hash); err != nil {
				return err
			}
		case existing.PasswordHash == nil || *existing.PasswordHash == "":
			if err := s.users.UpdatePassword(ctx, existing.ID, hash); err != nil {
				return err
			}
			user = existing
		default:
			return apperrors.Validation(ctx, s.tr, KeyEmailAlreadyInUse).WithField("email")
		}

		return s.onboarder.Onboard(ctx, user.ID, req.InvitationToken, req.TenantID)
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, s.translate(ctx, err)
	}

	s.logger.WithContext(ctx).WithField("user_id", user.ID).Info("user signed up")
	return s.issue(user.ID)
}

// SignIn checks email and password. Every failure is the same InvalidCredentialsError.
func (s *Service) SignIn(ctx context.Context, req models.SignInRequest) (resp *models.TokenResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.SignIn")
	defer span.End()
	defer func() { metrics.AuthAttemptsTotal.WithLabelValues(flowSignIn, metrics.Outcome(err)).Inc() }()

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}

	var hash *string
	if user != nil {
		hash = user.PasswordHash
	}
	if !s.hasher.Compare(hash, req.Password) || user.Disabled {
		s.logger.WithContext(ctx).WithField("email", req.Email).Info("sign in rejected")
		return nil, apperrors.NewInvalidCredentialsError()
	}

	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		return s.onboarder.Onboard(ctx, user.ID, req.InvitationToken, req.TenantID)
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	return s.issue(user.ID)
}

// Authenticate resolves a bearer token to an enabled user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	userID, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Debug("token rejected")
		return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
	}
	return s.activeUser(ctx, userID)
}

// ActiveUserByEmail returns the enabled user identified by an external identity provider's email claim.
func (s *Service) ActiveUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
	}
	if user.Disabled {
		return nil, apperrors.NewUnauthorizedError(KeyUserDisabled)
	}
	return user, nil
}

func (s *Service) activeUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewUnauthorizedError(apperrors.KeyInvalidToken)
	}
	if user.Disabled {
		return nil, apperrors.NewUnauthorizedError(KeyUserDisabled)
	}
	return user, nil
}

// Me returns the current user with its tenant memberships.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.Me")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.onboarder.Memberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Tenants = memberships
	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, in models.ProfileInput) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "AuthService.UpdateProfile")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		user, err = s.users.UpdateProfile(ctx, userID, in)
		return err
	})
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	ctx, span := tracing.StartSpan(ctx, "AuthService.ChangePassword")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.PasswordHash, req.OldPassword) {
		return apperrors.Validation(ctx, s.tr, KeyInvalidPassword).WithField("old_password")
	}

	hash, err := s.hashPassword(ctx, "new_password", req.NewPassword)
	if err != nil {
		return err
	}

	err = database.WithTx(ctx, s.tx, func(ctx context.Context) error {
		return s.users.UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		tracing.Fail(span, err)
		return err
	}

	s.logger.WithContext(ctx).WithField("user_id", userID).Info("password changed")
	return nil
}

func (s *Service) issue(userID uuid.UUID) (*models.TokenResponse, error) {
	token, expiresAt, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) translate(ctx context.Context, err error) error {
	if cv, ok := database.AsConstraintViolation(err, database.UniqueViolation); ok && cv.Field == "email" {
		return apperrors.Validation(ctx, s.tr, KeyEmailAlreadyInUse).WithField("email")
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

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) hashPassword(ctx context.Context, field, password string) (string, error) {
	if len(password) > security.MaxPasswordBytes {
		return "", apperrors.Validation(ctx, s.tr, apperrors.KeyInvalid, field).WithField(field)
	}
	return s.hasher.Hash(password)
}
