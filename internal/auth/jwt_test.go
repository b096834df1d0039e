package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gowra/backend/internal/models"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 60)
	userID := uuid.New()

	token, err := svc.Generate(userID, "alice@example.com", models.RoleRegular)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, string(models.RoleRegular), claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_Validate_WrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 60).Generate(uuid.New(), "a@example.com", models.RoleRegular)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 60).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Validate_Expired(t *testing.T) {
	svc := NewJWTService("test-secret", 0) // zero TTL: expired at issuance
	token, err := svc.Generate(uuid.New(), "a@example.com", models.RoleRegular)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Validate_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret", 60)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Validate(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

// The role claim is fixed at issuance: validating the same token always yields
// the role the user had when it was minted, regardless of later upgrades.
func TestJWTService_RoleClaimIsFrozenAtIssuance(t *testing.T) {
	svc := NewJWTService("test-secret", 60)
	userID := uuid.New()

	oldToken, err := svc.Generate(userID, "a@example.com", models.RoleRegular)
	require.NoError(t, err)
	newToken, err := svc.Generate(userID, "a@example.com", models.RoleOrganizer)
	require.NoError(t, err)

	oldClaims, err := svc.Validate(oldToken)
	require.NoError(t, err)
	newClaims, err := svc.Validate(newToken)
	require.NoError(t, err)

	assert.Equal(t, string(models.RoleRegular), oldClaims.Role)
	assert.Equal(t, string(models.RoleOrganizer), newClaims.Role)
}
