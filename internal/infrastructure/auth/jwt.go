package auth

import (
	"errors"
	"time"

	"github.com/erp/payments/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingCompanyID = errors.New("missing company_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
)

// Claims represents custom JWT claims. GroupIDs carries the user's
// access groups for menu visibility filtering.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string   `json:"company_id"`
	UserID    string   `json:"user_id"`
	Username  string   `json:"username"`
	GroupIDs  []string `json:"group_ids,omitempty"`
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	CompanyID uuid.UUID
	UserID    uuid.UUID
	Username  string
	GroupIDs  []uuid.UUID
}

// GenerateToken issues a signed access token
func (s *JWTService) GenerateToken(input GenerateTokenInput) (string, time.Time, error) {
	if input.CompanyID == uuid.Nil {
		return "", time.Time{}, ErrMissingCompanyID
	}
	if input.UserID == uuid.Nil {
		return "", time.Time{}, ErrMissingUserID
	}

	now := time.Now()
	expiresAt := now.Add(s.expiration)

	groupIDs := make([]string, len(input.GroupIDs))
	for i, gid := range input.GroupIDs {
		groupIDs[i] = gid.String()
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		CompanyID: input.CompanyID.String(),
		UserID:    input.UserID.String(),
		Username:  input.Username,
		GroupIDs:  groupIDs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and validates a token, returning its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.CompanyID == "" {
		return nil, ErrMissingCompanyID
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// CompanyUUID parses the company ID claim
func (c *Claims) CompanyUUID() (uuid.UUID, error) {
	return uuid.Parse(c.CompanyID)
}

// UserUUID parses the user ID claim
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GroupUUIDs parses the group ID claims, skipping malformed entries
func (c *Claims) GroupUUIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(c.GroupIDs))
	for _, g := range c.GroupIDs {
		if id, err := uuid.Parse(g); err == nil {
			out = append(out, id)
		}
	}
	return out
}
