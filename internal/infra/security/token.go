package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"orbit-redemption/internal/domain/ports/adapter"
)

var _ adapter.TokenIssuer = (*JWTManager)(nil)

var ErrInvalidToken = errors.New("invalid token")

const distributorRole = "distributor"

// DistributorClaims identify a distributor session; Subject is the distributor id.
type DistributorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager mints and verifies HS256 distributor tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *JWTManager) Issue(distributorID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := DistributorClaims{
		Role: distributorRole,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   distributorID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse returns the distributor id carried by a valid, unexpired token.
func (m *JWTManager) Parse(token string) (string, error) {
	claims := &DistributorClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tkn.Valid || claims.Role != distributorRole || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
