package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"orbit-redemption/internal/domain/model"
)

// Owners map to a nullable distributor_id; NULL is the house.
func ownerArg(o model.Owner) interface{} {
	if o.IsHouse() {
		return nil
	}
	return o.DistributorID
}

func ownerFromNull(id *string) model.Owner {
	if id == nil || *id == "" {
		return model.HouseOwner()
	}
	return model.DistributorOwner(*id)
}

// filterArgs binds to `($n::boolean OR distributor_id IS NOT DISTINCT FROM $n+1::text)`.
func filterArgs(f model.OwnerFilter) (interface{}, interface{}) {
	return f.All, ownerArg(f.Owner)
}

// windowArgs binds a half-open window; an unset bound becomes NULL.
func windowArgs(w model.Window) (interface{}, interface{}) {
	var start, end interface{}
	if !w.Start.IsZero() {
		start = w.Start
	}
	if !w.End.IsZero() {
		end = w.End
	}
	return start, end
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// uniqueViolation returns the violated constraint name for a 23505 error.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// textArg binds an empty string as NULL.
func textArg(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
