package security_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/saikilaru/TAMcust/pkg/security"
)

func TestAllowed(t *testing.T) {
	visitor := security.PermissionsFor("visitor")
	meeting := security.PermissionsFor("meeting")

	tests := []struct {
		name  string
		roles []string
		perm  security.Permission
		want  bool
	}{
		{"admin edits tenant", []string{security.RoleAdmin}, security.TenantEdit, true},
		{"receptionist cannot edit tenant", []string{security.RoleReceptionist}, security.TenantEdit, false},
		{"receptionist creates visitor", []string{security.RoleReceptionist}, visitor.Create, true},
		{"readonly reads visitor", []string{security.RoleReadonly}, visitor.Read, true},
		{"readonly cannot create visitor", []string{security.RoleReadonly}, visitor.Create, false},
		{"host creates meeting", []string{security.RoleHost}, meeting.Create, true},
		{"host cannot destroy meeting", []string{security.RoleHost}, meeting.Destroy, false},
		{"only admin imports", []string{security.RoleReceptionist}, visitor.Import, false},
		{"any matching role is enough", []string{security.RoleReadonly, security.RoleAdmin}, visitor.Import, true},
		{"no roles", nil, visitor.Read, false},
		{"unknown permission", []string{security.RoleAdmin}, security.Permission("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, security.Allowed(tt.roles, tt.perm))
		})
	}
}

func TestValidRoles(t *testing.T) {
	assert.True(t, security.ValidRoles([]string{"admin", "host"}))
	assert.False(t, security.ValidRoles([]string{"admin", "owner"}))
	assert.False(t, security.ValidRoles(nil))
}

func TestPasswordHasher(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, h.Compare(&hash, "correct horse"))
	assert.False(t, h.Compare(&hash, "wrong"))
	assert.False(t, h.Compare(nil, "correct horse"))

	empty := ""
	assert.False(t, h.Compare(&empty, ""))
}

func TestTokenManager(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := security.NewTokenManager("secret", time.Hour).WithClock(clock)
	userID := uuid.New()

	token, expiresAt, err := m.Issue(userID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	t.Run("round trip", func(t *testing.T) {
		subject, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, userID, subject)
	})

	t.Run("payload carries only the subject and timing claims", func(t *testing.T) {
		claims := jwt.MapClaims{}
		_, _, err := jwt.NewParser().ParseUnverified(token, claims)
		require.NoError(t, err)
		keys := make([]string, 0, len(claims))
		for k := range claims {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{"sub", "iat", "exp"}, keys)
	})

	t.Run("expired", func(t *testing.T) {
		later := security.NewTokenManager("secret", time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
		_, err := later.Verify(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := security.NewTokenManager("other", time.Hour).WithClock(clock)
		_, err := other.Verify(token)
		assert.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		_, err := m.Verify(parts[0] + "." + parts[1] + ".AAAA")
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Verify(s)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})
		s, err := raw.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.Verify(s)
		assert.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID.String()})
		s, err := raw.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = m.Verify(s)
		assert.Error(t, err)
	})
}
