package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/uyirkavalan/uyirkavalan/internal/boat"
)

// Tokens are issued out of band by the registration desk and carried by the
// boat app and the boat sync agent. There is no refresh flow; an expired
// token is replaced by issuing a new one.

// DefaultTokenExpiry applies when JWTConfig.TTL is unset. A fishing trip
// can last several days without connectivity.
const DefaultTokenExpiry = 7 * 24 * time.Hour

// clockSkew is tolerated on exp and nbf. Boat app clocks drift at sea.
const clockSkew = 2 * time.Minute

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
)

// JWTClaims are the claims of an access token. Subject repeats Boat.
type JWTClaims struct {
	jwt.RegisteredClaims

	Boat string `json:"bid"`
	Role string `json:"role"`
}

// Principal returns the caller identity carried by the claims.
func (c *JWTClaims) Principal() Principal {
	return Principal{Boat: c.Boat, Role: boat.Role(c.Role)}
}

type JWTConfig struct {
	// SigningKey is the HMAC secret new tokens are signed with.
	SigningKey string

	// PreviousKeys still verify tokens signed before a key rotation. Drop a
	// key once DefaultTokenExpiry has passed since it was replaced.
	PreviousKeys []string

	Issuer   string
	Audience string

	// TTL defaults to DefaultTokenExpiry.
	TTL time.Duration
}

// JWTService signs and verifies HS256 access tokens. Each token carries a
// kid header naming its key so rotated keys keep verifying.
type JWTService struct {
	kid      string
	keys     map[string][]byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewJWTService(cfg JWTConfig) *JWTService {
	s := &JWTService{
		kid:      keyID(cfg.SigningKey),
		keys:     make(map[string][]byte, 1+len(cfg.PreviousKeys)),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenExpiry
	}
	for _, k := range cfg.PreviousKeys {
		s.keys[keyID(k)] = []byte(k)
	}
	s.keys[s.kid] = []byte(cfg.SigningKey)
	return s
}

// keyID names a key without revealing it.
func keyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

// GenerateAccessToken signs a token for p and returns it with its expiry.
func (s *JWTService) GenerateAccessToken(p Principal) (string, time.Time, error) {
	if !p.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("unknown role %q", p.Role)
	}
	if p.Boat == "" {
		return "", time.Time{}, errors.New("principal has no boat or staff identifier")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.Boat,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Boat: p.Boat,
		Role: string(p.Role),
	})
	token.Header["kid"] = s.kid

	signed, err := token.SignedString(s.keys[s.kid])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry and
// returns the claims. Expiry is reported as ErrAccessTokenExpired so the
// app can tell the crew to get a new token; every other failure wraps
// ErrInvalidAccessToken.
func (s *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	var claims JWTClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, s.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}

	if claims.Boat == "" || !boat.Role(claims.Role).Valid() {
		return nil, fmt.Errorf("%w: missing boat or role claim", ErrInvalidAccessToken)
	}
	return &claims, nil
}

// verificationKey picks the key named by the token's kid. Tokens without a
// kid predate rotation support and are checked against the current key.
func (s *JWTService) verificationKey(t *jwt.Token) (any, error) {
	kid, ok := t.Header["kid"].(string)
	if !ok {
		return s.keys[s.kid], nil
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return key, nil
}
