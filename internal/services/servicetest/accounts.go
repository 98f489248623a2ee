package servicetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saikilaru/TAMcust/pkg/database"
	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
	"github.com/saikilaru/TAMcust/pkg/models"
)

// snapshotMap copies m under mu and returns a func restoring the copy.
func snapshotMap[K comparable, V any](mu *sync.Mutex, m *map[K]V) func() {
	mu.Lock()
	defer mu.Unlock()
	saved := make(map[K]V, len(*m))
	for k, v := range *m {
		saved[k] = v
	}
	return func() {
		mu.Lock()
		defer mu.Unlock()
		*m = saved
	}
}

type Tenants struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.Tenant
}

func NewTenants() *Tenants {
	return &Tenants{rows: map[uuid.UUID]models.Tenant{}}
}

func (s *Tenants) Snapshot() func() { return snapshotMap(&s.mu, &s.rows) }

func (s *Tenants) Put(t models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.ID] = t
}

func (s *Tenants) Create(_ context.Context, in models.TenantInput, plan models.PlanKey) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.URL != nil {
		for _, t := range s.rows {
			if t.URL != nil && *t.URL == *in.URL {
				return nil, fmt.Errorf("failed to create tenant: %w", &database.ConstraintViolation{Kind: database.UniqueViolation, Field: "url"})
			}
		}
	}

	now := time.Now().UTC()
	t := models.Tenant{
		ID:            uuid.New(),
		Name:          in.Name,
		URL:           in.URL,
		Plan:          plan,
		PlanStatus:    models.PlanStatusActive,
		PlanUpdatedAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.rows[t.ID] = t
	return &t, nil
}

func (s *Tenants) Update(_ context.Context, id uuid.UUID, in models.TenantInput) (*models.Tenant, error) {
	return s.update(id, func(t *models.Tenant) {
		t.Name = in.Name
		t.URL = in.URL
	})
}

func (s *Tenants) UpdatePlan(_ context.Context, id uuid.UUID, plan models.PlanKey) (*models.Tenant, error) {
	return s.update(id, func(t *models.Tenant) {
		now := time.Now().UTC()
		t.Plan = plan
		t.PlanStatus = models.PlanStatusActive
		t.PlanUpdatedAt = &now
	})
}

func (s *Tenants) update(id uuid.UUID, fn func(t *models.Tenant)) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("tenant", id)
	}
	fn(&t)
	t.UpdatedAt = time.Now().UTC()
	s.rows[id] = t
	return &t, nil
}

func (s *Tenants) Destroy(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return apperrors.NewNotFoundError("tenant", id)
	}
	delete(s.rows, id)
	return nil
}

func (s *Tenants) FindByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Tenants) First(_ context.Context) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first *models.Tenant
	for _, t := range s.rows {
		if first == nil || t.CreatedAt.Before(first.CreatedAt) {
			t := t
			first = &t
		}
	}
	return first, nil
}

func (s *Tenants) FindAllByIDs(_ context.Context, ids []uuid.UUID) ([]models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Tenant{}
	for _, id := range ids {
		if t, ok := s.rows[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Tenants) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type membershipKey struct {
	tenantID uuid.UUID
	userID   uuid.UUID
}

type Memberships struct {
	mu   sync.Mutex
	rows map[membershipKey]models.TenantUser
}

func NewMemberships() *Memberships {
	return &Memberships{rows: map[membershipKey]models.TenantUser{}}
}

func (s *Memberships) Snapshot() func() { return snapshotMap(&s.mu, &s.rows) }

func (s *Memberships) Create(_ context.Context, tenantID, userID uuid.UUID, roles []string, status models.MembershipStatus, token *string) (*models.TenantUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{tenantID, userID}
	if _, ok := s.rows[key]; ok {
		return nil, fmt.Errorf("failed to create membership: %w", &database.ConstraintViolation{Kind: database.UniqueViolation, Field: "user_id"})
	}

	now := time.Now().UTC()
	m := models.TenantUser{
		ID:              uuid.New(),
		TenantID:        tenantID,
		UserID:          userID,
		Roles:           append([]string{}, roles...),
		Status:          status,
		InvitationToken: token,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.rows[key] = m
	return &m, nil
}

func (s *Memberships) Find(_ context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[membershipKey{tenantID, userID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Memberships) FindByInvitationToken(_ context.Context, token string) (*models.TenantUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.InvitationToken != nil && *m.InvitationToken == token {
			return &m, nil
		}
	}
	return nil, nil
}

func (s *Memberships) ListByUser(_ context.Context, userID uuid.UUID) ([]models.TenantUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.TenantUser{}
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Memberships) ListByTenant(_ context.Context, tenantID uuid.UUID, q models.Query) ([]models.TenantUser, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.TenantUser{}
	for _, m := range s.rows {
		if m.TenantID != tenantID {
			continue
		}
		if status := q.Filter["status"]; status != "" && string(m.Status) != status {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID.String() < out[j].UserID.String() })
	return out, len(out), nil
}

func (s *Memberships) UpdateRoles(_ context.Context, tenantID, userID uuid.UUID, roles []string) (*models.TenantUser, error) {
	return s.update(tenantID, userID, func(m *models.TenantUser) {
		m.Roles = append([]string{}, roles...)
	})
}

func (s *Memberships) Activate(_ context.Context, tenantID, userID uuid.UUID) (*models.TenantUser, error) {
	return s.update(tenantID, userID, func(m *models.TenantUser) {
		m.Status = models.MembershipActive
		m.InvitationToken = nil
	})
}

func (s *Memberships) Reinvite(_ context.Context, tenantID, userID uuid.UUID, roles []string, token string) (*models.TenantUser, error) {
	return s.update(tenantID, userID, func(m *models.TenantUser) {
		m.Roles = append([]string{}, roles...)
		m.Status = models.MembershipInvited
		m.InvitationToken = &token
	})
}

func (s *Memberships) update(tenantID, userID uuid.UUID, fn func(m *models.TenantUser)) (*models.TenantUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{tenantID, userID}
	m, ok := s.rows[key]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", userID)
	}
	fn(&m)
	m.UpdatedAt = time.Now().UTC()
	s.rows[key] = m
	return &m, nil
}

func (s *Memberships) Delete(_ context.Context, tenantID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{tenantID, userID}
	if _, ok := s.rows[key]; !ok {
		return apperrors.NewNotFoundError("user", userID)
	}
	delete(s.rows, key)
	return nil
}

func (s *Memberships) CountActiveWithRole(_ context.Context, tenantID uuid.UUID, role string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, m := range s.rows {
		if m.TenantID != tenantID || m.Status != models.MembershipActive {
			continue
		}
		for _, r := range m.Roles {
			if r == role {
				count++
				break
			}
		}
	}
	return count, nil
}

type Users struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.User
}

func NewUsers() *Users {
	return &Users{rows: map[uuid.UUID]models.User{}}
}

func (s *Users) Snapshot() func() { return snapshotMap(&s.mu, &s.rows) }

func (s *Users) Put(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[u.ID] = u
}

func (s *Users) Create(_ context.Context, email string, passwordHash *string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.rows {
		if u.Email == email {
			return nil, fmt.Errorf("failed to create user: %w", &database.ConstraintViolation{Kind: database.UniqueViolation, Field: "email"})
		}
	}

	now := time.Now().UTC()
	u := models.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	s.rows[u.ID] = u
	return &u, nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Users) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	_, err := s.update(id, func(u *models.User) { u.PasswordHash = &passwordHash })
	return err
}

func (s *Users) UpdateProfile(_ context.Context, id uuid.UUID, in models.ProfileInput) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		u.FirstName, u.LastName, u.PhoneNumber = in.FirstName, in.LastName, in.PhoneNumber
		var parts []string
		for _, p := range []*string{in.FirstName, in.LastName} {
			if p != nil && *p != "" {
				parts = append(parts, *p)
			}
		}
		u.FullName = nil
		if len(parts) > 0 {
			full := strings.Join(parts, " ")
			u.FullName = &full
		}
	})
}

func (s *Users) update(id uuid.UUID, fn func(u *models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.rows[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.rows[id] = u
	return &u, nil
}
