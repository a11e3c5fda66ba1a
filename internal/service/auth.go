package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/workdoc/workdoc/internal/model"
)

// Token verification failures. Both wrap model.ErrUnauthorized.
var (
	ErrInvalidToken = fmt.Errorf("invalid token: %w", model.ErrUnauthorized)
	ErrTokenExpired = fmt.Errorf("token expired: %w", model.ErrUnauthorized)
)

const tokenIssuer = "workdoc"

// Claims is the verified content of a session token.
type Claims struct {
	UserID    string
	Role      model.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthService issues and verifies stateless HS256 session tokens.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService creates a token issuer. Tokens expire ttl after issue.
func NewAuthService(jwtSecret string, ttl time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// TTL returns the token lifetime.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for u.
func (s *AuthService) Issue(u *model.User) (string, error) {
	now := s.now()
	claims := jwtClaims{
		UserID: u.ID,
		Role:   u.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer, and expiry of tokenStr.
func (s *AuthService) Verify(tokenStr string) (*Claims, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return nil, ErrInvalidToken
	}

	out := &Claims{UserID: claims.UserID, Role: role}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

type jwtClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
