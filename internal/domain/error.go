package domain

import "errors"

// Error kinds. Every error surfaced by a use case unwraps to exactly one of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("entity not found")
	ErrConflict            = errors.New("conflict")
	ErrGenerationExhausted = errors.New("code generation exhausted")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Error is a specific failure with a stable machine-readable code.
type Error struct {
	Kind error
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

var (
	// InvalidInput
	ErrInvalidCount          = newError(ErrInvalidInput, "invalid_count", "count must be between 1 and 100")
	ErrInvalidCodeType       = newError(ErrInvalidInput, "invalid_code_type", "code type must be monthly, quarterly, yearly or lifetime")
	ErrInvalidCommissionRate = newError(ErrInvalidInput, "invalid_commission_rate", "commission rate must be between 0 and 100")
	ErrInvalidPrefix         = newError(ErrInvalidInput, "invalid_prefix", "prefix must be 1-20 alphanumeric characters")
	ErrInvalidWindow         = newError(ErrInvalidInput, "invalid_window", "reporting window is invalid")
	ErrInvalidArgument       = newError(ErrInvalidInput, "invalid_argument", "invalid argument")

	// NotFound
	ErrCodeNotFound        = newError(ErrNotFound, "code_not_found", "code not found")
	ErrBatchNotFound       = newError(ErrNotFound, "batch_not_found", "batch not found")
	ErrDistributorNotFound = newError(ErrNotFound, "distributor_not_found", "distributor not found")

	// Conflict
	ErrCodeAlreadyRedeemed = newError(ErrConflict, "code_already_redeemed", "code has already been redeemed")
	ErrCodeRevoked         = newError(ErrConflict, "code_revoked", "code has been revoked")
	ErrAlreadyRedeemed     = newError(ErrConflict, "already_redeemed", "redeemed codes cannot be revoked")
	ErrAlreadyRevoked      = newError(ErrConflict, "already_revoked", "code is already revoked")
	ErrNotRedeemed         = newError(ErrConflict, "not_redeemed", "only redeemed codes can be settled")
	ErrAlreadySettled      = newError(ErrConflict, "already_settled", "code is already settled")
	ErrDuplicateEmail      = newError(ErrConflict, "duplicate_email", "email is already registered")
	ErrDuplicatePrefix     = newError(ErrConflict, "duplicate_prefix", "code prefix is already assigned")

	// GenerationExhausted
	ErrUniqueCodeExhausted = newError(ErrGenerationExhausted, "generation_exhausted", "could not allocate a unique code, retry later")

	// Unauthorized
	ErrInvalidCredentials  = newError(ErrUnauthorized, "invalid_credentials", "invalid email or password")
	ErrDistributorInactive = newError(ErrUnauthorized, "distributor_inactive", "distributor account is inactive")
	ErrForbiddenOwner      = newError(ErrUnauthorized, "forbidden_owner", "caller may not access this owner's records")
	ErrAdminOnly           = newError(ErrUnauthorized, "admin_only", "operation requires the admin capability")
	ErrMissingCapability   = newError(ErrUnauthorized, "missing_capability", "missing or invalid credentials")

	// Infrastructure
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

var kinds = []error{ErrInvalidInput, ErrNotFound, ErrConflict, ErrGenerationExhausted, ErrUnauthorized}

// KindOf returns the kind sentinel err belongs to, or nil for infrastructure failures.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// CodeOf returns the stable machine-readable code for err.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	switch KindOf(err) {
	case ErrInvalidInput:
		return "invalid_input"
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrGenerationExhausted:
		return "generation_exhausted"
	case ErrUnauthorized:
		return "unauthorized"
	}
	return "internal"
}
