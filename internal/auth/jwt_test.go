package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/auth"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
)

func newService(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
	})
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := newService("test-secret-key-for-testing-only", "https://api.uyirkavalan.in", "uyirkavalan-api")

	p := auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman}

	token, expiresAt, err := svc.GenerateAccessToken(p)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenExpiry), expiresAt, time.Minute)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "TN01-AB123", claims.Boat)
	assert.Equal(t, "TN01-AB123", claims.Subject)
	assert.Equal(t, "fisherman", claims.Role)
	assert.Equal(t, "https://api.uyirkavalan.in", claims.Issuer)
	assert.Equal(t, p, claims.Principal())
}

func TestJWTService_CustomTTL(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "k",
		Issuer:     "i",
		Audience:   "a",
		TTL:        time.Hour,
	})

	_, expiresAt, err := svc.GenerateAccessToken(auth.Principal{Boat: "admin-1", Role: boat.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)
}

func TestJWTService_UnknownRole(t *testing.T) {
	svc := newService("k", "i", "a")

	_, _, err := svc.GenerateAccessToken(auth.Principal{Boat: "TN01-AB123", Role: "captain"})
	assert.Error(t, err)
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := newService("test-secret-key-for-testing-only", "https://api.uyirkavalan.in", "uyirkavalan-api")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	svc1 := newService("key-one", "https://api.uyirkavalan.in", "uyirkavalan-api")
	token, _, err := svc1.GenerateAccessToken(auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman})
	require.NoError(t, err)

	svc2 := newService("key-two", "https://api.uyirkavalan.in", "uyirkavalan-api")
	_, err = svc2.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_WrongIssuer(t *testing.T) {
	svc1 := newService("test-key", "issuer-one", "uyirkavalan-api")
	token, _, err := svc1.GenerateAccessToken(auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman})
	require.NoError(t, err)

	svc2 := newService("test-key", "issuer-two", "uyirkavalan-api")
	_, err = svc2.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_WrongAudience(t *testing.T) {
	svc1 := newService("test-key", "https://api.uyirkavalan.in", "audience-one")
	token, _, err := svc1.GenerateAccessToken(auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman})
	require.NoError(t, err)

	svc2 := newService("test-key", "https://api.uyirkavalan.in", "audience-two")
	_, err = svc2.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	claims := auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "i",
			Audience:  jwt.ClaimStrings{"a"},
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
		Boat: "TN01-AB123",
		Role: "fisherman",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = newService("k", "i", "a").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrAccessTokenExpired)
}

func TestJWTService_MissingRoleClaim(t *testing.T) {
	claims := auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "i",
			Audience:  jwt.ClaimStrings{"a"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Boat: "TN01-AB123",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = newService("k", "i", "a").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestPrincipal_CanAccessBoat(t *testing.T) {
	tests := []struct {
		name     string
		p        auth.Principal
		boatID   string
		expected bool
	}{
		{"owner", auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman}, "TN01-AB123", true},
		{"other fisherman", auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman}, "TN02-CD456", false},
		{"admin", auth.Principal{Boat: "admin-1", Role: boat.RoleAdmin}, "TN02-CD456", true},
		{"authority", auth.Principal{Boat: "cg-chennai", Role: boat.RoleAuthority}, "TN02-CD456", true},
		{"empty principal", auth.Principal{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.p.CanAccessBoat(tt.boatID))
		})
	}
}

func TestPrincipal_HasRole(t *testing.T) {
	p := auth.Principal{Boat: "cg-chennai", Role: boat.RoleAuthority}
	assert.True(t, p.HasRole(boat.RoleAdmin, boat.RoleAuthority))
	assert.False(t, p.HasRole(boat.RoleAdmin))
	assert.True(t, p.IsAuthority())
	assert.False(t, p.IsAdmin())
}

func TestJWTService_KeyRotation(t *testing.T) {
	old := newService("old-key", "i", "a")
	token, _, err := old.GenerateAccessToken(auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman})
	require.NoError(t, err)

	rotated := auth.NewJWTService(auth.JWTConfig{
		SigningKey:   "new-key",
		PreviousKeys: []string{"old-key"},
		Issuer:       "i",
		Audience:     "a",
	})
	claims, err := rotated.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "TN01-AB123", claims.Boat)

	// Once the old key is retired its tokens stop verifying.
	retired := newService("new-key", "i", "a")
	_, err = retired.ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_SetsKeyID(t *testing.T) {
	svc := newService("k", "i", "a")
	token, _, err := svc.GenerateAccessToken(auth.Principal{Boat: "TN01-AB123", Role: boat.RoleFisherman})
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, &auth.JWTClaims{})
	require.NoError(t, err)
	kid, ok := parsed.Header["kid"].(string)
	require.True(t, ok)
	assert.Len(t, kid, 8)
	assert.NotEmpty(t, parsed.Claims.(*auth.JWTClaims).ID)
}

func TestJWTService_ToleratesClockSkew(t *testing.T) {
	justExpired := time.Now().Add(-30 * time.Second)
	claims := auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "i",
			Audience:  jwt.ClaimStrings{"a"},
			ExpiresAt: jwt.NewNumericDate(justExpired),
		},
		Boat: "TN01-AB123",
		Role: "fisherman",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = newService("k", "i", "a").ValidateAccessToken(token)
	assert.NoError(t, err)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	claims := auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "i",
			Audience:  jwt.ClaimStrings{"a"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Boat: "TN01-AB123",
		Role: "admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService("k", "i", "a").ValidateAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidAccessToken)
}

func TestJWTService_RequiresIdentifier(t *testing.T) {
	_, _, err := newService("k", "i", "a").GenerateAccessToken(auth.Principal{Role: boat.RoleAdmin})
	assert.Error(t, err)
}
