package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/facility-ops/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	identity := domain.Identity{TenantID: "tenant-a", UserID: "u-1", Roles: []domain.Role{domain.RoleStaff}}

	token, expiresAt, err := tm.GenerateToken(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, claims.Identity())
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	other, _, err := NewTokenManager("other", time.Hour).GenerateToken(domain.Identity{TenantID: "t", UserID: "u"})
	require.NoError(t, err)
	_, err = tm.ParseToken(other)
	assert.Error(t, err, "wrong signature")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		TenantID: "t",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.ParseToken(signed)
	assert.Error(t, err, "expired")

	noTenant, _, err := tm.GenerateToken(domain.Identity{UserID: "u"})
	require.NoError(t, err)
	_, err = tm.ParseToken(noTenant)
	assert.Error(t, err, "missing tenant")
}

func TestAuthMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	mw := NewAuthMiddleware(tm, zap.NewNop())

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.SendStatus(fe.Code)
			}
			return c.SendStatus(fiber.StatusUnauthorized)
		},
	})
	app.Get("/me", mw.Handle, RequireIdentity(), func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		require.True(t, ok)
		return c.SendString(identity.TenantID + "/" + identity.UserID)
	})

	valid, _, err := tm.GenerateToken(domain.Identity{TenantID: "tenant-a", UserID: "u-1", Roles: []domain.Role{domain.RoleTenant}})
	require.NoError(t, err)
	roleless, _, err := tm.GenerateToken(domain.Identity{TenantID: "tenant-a", UserID: "u-1", Roles: []domain.Role{"JANITOR"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer abc", fiber.StatusUnauthorized},
		{"unknown roles", "Bearer " + roleless, fiber.StatusForbidden},
		{"valid", "Bearer " + valid, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
