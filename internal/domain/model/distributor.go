package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain"
)

// MaxPrefixLength bounds code prefixes.
const MaxPrefixLength = 20

var (
	minCommission = decimal.Zero
	maxCommission = decimal.NewFromInt(100)
)

// Distributor is a reseller that mints codes under its own prefix and earns a
// commission on redeemed codes. Distributors are never hard-deleted.
type Distributor struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	CommissionRate decimal.Decimal // percent, 0..100
	CodePrefix     string          // empty when unassigned
	IsActive       bool
	CreatedAt      time.Time
}

func (d *Distributor) IsZero() bool { return d == nil || d.ID == "" }

// NewDistributor validates and constructs an active distributor. passwordHash is opaque here.
func NewDistributor(name, email, passwordHash string, rate decimal.Decimal, prefix string) (*Distributor, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || !strings.Contains(email, "@") || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := ValidateCommissionRate(rate); err != nil {
		return nil, err
	}
	if prefix != "" {
		p, err := NormalizePrefix(prefix)
		if err != nil {
			return nil, err
		}
		prefix = p
	}
	return &Distributor{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		PasswordHash:   passwordHash,
		CommissionRate: rate,
		CodePrefix:     prefix,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// ValidateCommissionRate accepts rates in [0, 100].
func ValidateCommissionRate(rate decimal.Decimal) error {
	if rate.LessThan(minCommission) || rate.GreaterThan(maxCommission) {
		return domain.ErrInvalidCommissionRate
	}
	return nil
}

func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizePrefix uppercases s and checks it is 1-20 ASCII letters or digits.
func NormalizePrefix(s string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(s))
	if p == "" || len(p) > MaxPrefixLength {
		return "", domain.ErrInvalidPrefix
	}
	for _, r := range p {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", domain.ErrInvalidPrefix
		}
	}
	return p, nil
}
