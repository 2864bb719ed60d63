package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/infra/logging"
	"orbit-redemption/internal/infra/metrics"
)

// TokenParser verifies a distributor bearer token and returns the distributor id.
type TokenParser interface {
	Parse(token string) (string, error)
}

// Authenticator resolves the caller capability from request headers.
// Admin: X-Admin-Key or Authorization: Bearer <admin key>.
// Distributor: Authorization: Bearer <token>.
type Authenticator struct {
	adminKey []byte
	tokens   TokenParser
	log      *zerolog.Logger
}

func NewAuthenticator(adminKey string, tokens TokenParser, logger *zerolog.Logger) *Authenticator {
	return &Authenticator{adminKey: []byte(adminKey), tokens: tokens, log: logger}
}

type callerKey struct{}

func withCaller(ctx context.Context, c model.Caller) context.Context {
	ctx = context.WithValue(ctx, callerKey{}, c)
	ctx = logging.WithRole(ctx, string(c.Role))
	if c.DistributorID != "" {
		ctx = logging.WithDistributorID(ctx, c.DistributorID)
	}
	return ctx
}

// callerFrom returns the caller attached by the auth middleware; the zero Caller has no capability.
func callerFrom(ctx context.Context) model.Caller {
	c, _ := ctx.Value(callerKey{}).(model.Caller)
	return c
}

func (a *Authenticator) isAdminKey(k string) bool {
	return len(a.adminKey) > 0 && subtle.ConstantTimeCompare([]byte(k), a.adminKey) == 1
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	return ""
}

func (a *Authenticator) resolve(r *http.Request) (model.Caller, error) {
	if k := r.Header.Get("X-Admin-Key"); k != "" {
		if a.isAdminKey(k) {
			return model.AdminCaller(), nil
		}
		metrics.IncAuthFailure("admin")
		return model.Caller{}, domain.ErrMissingCapability
	}
	tok := bearerToken(r)
	if tok == "" {
		return model.Caller{}, domain.ErrMissingCapability
	}
	if a.isAdminKey(tok) {
		return model.AdminCaller(), nil
	}
	if a.tokens == nil {
		return model.Caller{}, domain.ErrMissingCapability
	}
	id, err := a.tokens.Parse(tok)
	if err != nil {
		metrics.IncAuthFailure("distributor")
		return model.Caller{}, domain.ErrMissingCapability
	}
	return model.DistributorCaller(id), nil
}

func (a *Authenticator) require(allow func(model.Caller) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := a.resolve(r)
			if err == nil {
				err = allow(c)
			}
			if err != nil {
				writeError(w, r, a.log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), c)))
		})
	}
}

// RequireCaller admits any authenticated caller; scoping is left to the use cases.
func (a *Authenticator) RequireCaller() func(http.Handler) http.Handler {
	return a.require(func(model.Caller) error { return nil })
}

func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return a.require(func(c model.Caller) error {
		if !c.IsAdmin() {
			return domain.ErrAdminOnly
		}
		return nil
	})
}

func (a *Authenticator) RequireDistributor() func(http.Handler) http.Handler {
	return a.require(func(c model.Caller) error {
		if !c.IsDistributor() {
			return domain.ErrMissingCapability
		}
		return nil
	})
}
