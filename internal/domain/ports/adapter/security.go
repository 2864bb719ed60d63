package adapter

import "time"

// PasswordHasher hashes and verifies distributor credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// TokenIssuer mints distributor bearer tokens.
type TokenIssuer interface {
	Issue(distributorID string) (token string, expiresAt time.Time, err error)
}
