package model

import (
	"encoding/json"
	"strings"
	"time"

	"orbit-redemption/internal/domain"
)

// CodeType is the entitlement tier a code grants.
type CodeType string

const (
	CodeTypeMonthly   CodeType = "monthly"
	CodeTypeQuarterly CodeType = "quarterly"
	CodeTypeYearly    CodeType = "yearly"
	CodeTypeLifetime  CodeType = "lifetime"
)

// ParseCodeType accepts the four known types, case-insensitively.
func ParseCodeType(s string) (CodeType, error) {
	switch t := CodeType(strings.ToLower(strings.TrimSpace(s))); t {
	case CodeTypeMonthly, CodeTypeQuarterly, CodeTypeYearly, CodeTypeLifetime:
		return t, nil
	}
	return "", domain.ErrInvalidCodeType
}

// Duration returns the entitlement length granted by the type.
func (t CodeType) Duration() Duration {
	switch t {
	case CodeTypeMonthly:
		return FiniteDays(30)
	case CodeTypeQuarterly:
		return FiniteDays(90)
	case CodeTypeYearly:
		return FiniteDays(365)
	}
	return Unlimited
}

// Duration is either a finite number of days or unlimited.
type Duration struct {
	days      int
	unlimited bool
}

// Unlimited never expires.
var Unlimited = Duration{unlimited: true}

func FiniteDays(days int) Duration { return Duration{days: days} }

// Days reports the day count; ok is false for Unlimited.
func (d Duration) Days() (days int, ok bool) {
	if d.unlimited {
		return 0, false
	}
	return d.days, true
}

func (d Duration) IsUnlimited() bool { return d.unlimited }

// ExpiresAt returns the expiry of an entitlement starting at from, or nil when unlimited.
func (d Duration) ExpiresAt(from time.Time) *time.Time {
	if d.unlimited {
		return nil
	}
	t := from.AddDate(0, 0, d.days)
	return &t
}

// MarshalJSON encodes Unlimited as null.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d.unlimited {
		return []byte("null"), nil
	}
	return json.Marshal(d.days)
}

// CodeStatus is the derived lifecycle state of a Code.
type CodeStatus string

const (
	CodeStatusActive   CodeStatus = "active"
	CodeStatusRedeemed CodeStatus = "redeemed"
	CodeStatusRevoked  CodeStatus = "revoked"
)

// Code is a single redeemable entitlement token. Codes are never deleted.
type Code struct {
	ID         string
	Code       string
	Type       CodeType
	BatchID    string
	Owner      Owner
	CreatedAt  time.Time
	IsActive   bool
	RedeemedAt *time.Time // set at most once
	RedeemedBy *string
	AttemptID  *string // redemption attempt that won the code
	Settled    bool
	SettledAt  *time.Time
}

// Duration is derived from Type and never stored.
func (c *Code) Duration() Duration { return c.Type.Duration() }

func (c *Code) IsRedeemed() bool { return c.RedeemedAt != nil }

// IsRedeemable is true iff the code is active and has not been redeemed.
func (c *Code) IsRedeemable() bool { return c.IsActive && c.RedeemedAt == nil }

func (c *Code) Status() CodeStatus {
	switch {
	case c.RedeemedAt != nil:
		return CodeStatusRedeemed
	case !c.IsActive:
		return CodeStatusRevoked
	}
	return CodeStatusActive
}

// RedeemError classifies why a code cannot be redeemed, or returns nil.
func (c *Code) RedeemError() error {
	switch {
	case c.RedeemedAt != nil:
		return domain.ErrCodeAlreadyRedeemed
	case !c.IsActive:
		return domain.ErrCodeRevoked
	}
	return nil
}

// Revoke deactivates an unredeemed code.
func (c *Code) Revoke() error {
	if c.RedeemedAt != nil {
		return domain.ErrAlreadyRedeemed
	}
	if !c.IsActive {
		return domain.ErrAlreadyRevoked
	}
	c.IsActive = false
	return nil
}

// Settle marks a redeemed code's commission as paid.
func (c *Code) Settle(at time.Time) error {
	if c.RedeemedAt == nil {
		return domain.ErrNotRedeemed
	}
	if c.Settled {
		return domain.ErrAlreadySettled
	}
	c.Settled = true
	c.SettledAt = &at
	return nil
}
