//go:build !integration

package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

func TestCodeUseCase_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("active code", func(t *testing.T) {
		f := newFixture(t)
		_, codes := f.generate(t, admin, GenerateRequest{Type: "monthly", Count: 1})

		c, err := f.code.Revoke(ctx, admin, codes[0])
		if err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		if c.IsActive || c.Status() != model.CodeStatusRevoked {
			t.Fatalf("expected revoked code, got %+v", c)
		}
		if _, err := f.code.Revoke(ctx, admin, codes[0]); !errors.Is(err, domain.ErrAlreadyRevoked) {
			t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
		}
	})

	t.Run("redeemed code", func(t *testing.T) {
		f := newFixture(t)
		_, codes := f.generate(t, admin, GenerateRequest{Type: "monthly", Count: 1})
		if _, err := f.redeem.Redeem(ctx, RedeemRequest{Code: codes[0], Redeemer: "u"}); err != nil {
			t.Fatal(err)
		}
		_, err := f.code.Revoke(ctx, admin, codes[0])
		if !errors.Is(err, domain.ErrAlreadyRedeemed) || !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
		}
		c, _ := f.codes.FindByCode(ctx, repository.NoTX, codes[0])
		if !c.IsActive {
			t.Fatal("failed revoke changed state")
		}
	})

	t.Run("code is redacted in logs", func(t *testing.T) {
		f := newFixture(t)
		_, codes := f.generate(t, admin, GenerateRequest{Type: "monthly", Count: 1})
		var buf bytes.Buffer
		l := zerolog.New(&buf)
		uc := NewCodeUseCase(f.codes, f.tm, &l, false)

		if _, err := uc.Revoke(ctx, admin, codes[0]); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "code revoked") {
			t.Fatalf("revoke not logged: %s", buf.String())
		}
		if strings.Contains(buf.String(), codes[0]) {
			t.Fatalf("raw code logged: %s", buf.String())
		}
	})

	t.Run("owner scope", func(t *testing.T) {
		f := newFixture(t)
		a := f.addDistributor(t, "a@example.com", "A")
		b := f.addDistributor(t, "b@example.com", "B")
		_, codes := f.generate(t, model.DistributorCaller(b.ID), GenerateRequest{Type: "monthly", Count: 1})

		if _, err := f.code.Revoke(ctx, model.DistributorCaller(a.ID), codes[0]); !errors.Is(err, domain.ErrForbiddenOwner) {
			t.Fatalf("expected ErrForbiddenOwner, got %v", err)
		}
		if _, err := f.code.Revoke(ctx, model.DistributorCaller(b.ID), codes[0]); err != nil {
			t.Fatalf("owner revoke: %v", err)
		}
	})
}

func TestCodeUseCase_Settle(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, []string) {
		f := newFixture(t)
		_, codes := f.generate(t, admin, GenerateRequest{Type: "monthly", Count: 3})
		for _, c := range codes[:2] {
			if _, err := f.redeem.Redeem(ctx, RedeemRequest{Code: c, Redeemer: "u"}); err != nil {
				t.Fatal(err)
			}
		}
		return f, codes
	}

	t.Run("admin only", func(t *testing.T) {
		f, codes := setup(t)
		if _, err := f.code.Settle(ctx, model.DistributorCaller("d"), codes[:1]); !errors.Is(err, domain.ErrAdminOnly) {
			t.Fatalf("expected ErrAdminOnly, got %v", err)
		}
	})

	t.Run("settles redeemed codes", func(t *testing.T) {
		f, codes := setup(t)
		n, err := f.code.Settle(ctx, admin, codes[:2])
		if err != nil || n != 2 {
			t.Fatalf("expected 2 settled, got %d, %v", n, err)
		}
		if _, err := f.code.Settle(ctx, admin, codes[:1]); !errors.Is(err, domain.ErrAlreadySettled) {
			t.Fatalf("expected ErrAlreadySettled, got %v", err)
		}
	})

	t.Run("unredeemed member fails the whole call", func(t *testing.T) {
		f, codes := setup(t)
		_, err := f.code.Settle(ctx, admin, []string{codes[0], codes[2]})
		if !errors.Is(err, domain.ErrNotRedeemed) {
			t.Fatalf("expected ErrNotRedeemed, got %v", err)
		}
		c, _ := f.codes.FindByCode(ctx, repository.NoTX, codes[0])
		if c.Settled {
			t.Fatal("partial settlement visible")
		}
	})

	t.Run("retried transaction settles every code", func(t *testing.T) {
		f, codes := setup(t)
		f.code.tm = retryOnceTx{inner: f.tm}
		n, err := f.code.Settle(ctx, admin, []string{codes[0], codes[1], codes[0]})
		if err != nil || n != 2 {
			t.Fatalf("expected 2 settled, got %d, %v", n, err)
		}
		for _, c := range codes[:2] {
			got, _ := f.codes.FindByCode(ctx, repository.NoTX, c)
			if !got.Settled {
				t.Fatalf("%s not settled", c)
			}
		}
	})

	t.Run("empty list", func(t *testing.T) {
		f, _ := setup(t)
		if _, err := f.code.Settle(ctx, admin, nil); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestCodeUseCase_ListCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addDistributor(t, "a@example.com", "A")
	b := f.addDistributor(t, "b@example.com", "B")
	f.generate(t, model.DistributorCaller(a.ID), GenerateRequest{Type: "monthly", Count: 2})
	f.generate(t, model.DistributorCaller(b.ID), GenerateRequest{Type: "monthly", Count: 3})
	f.generate(t, admin, GenerateRequest{Type: "monthly", Count: 1})

	cases := []struct {
		name   string
		caller model.Caller
		owner  string
		want   int
		err    error
	}{
		{"admin all", admin, "", 6, nil},
		{"admin one distributor", admin, b.ID, 3, nil},
		{"admin house", admin, model.HouseOwnerID, 1, nil},
		{"distributor self", model.DistributorCaller(a.ID), "", 2, nil},
		{"distributor other", model.DistributorCaller(a.ID), b.ID, 0, domain.ErrForbiddenOwner},
		{"no capability", model.Caller{}, "", 0, domain.ErrMissingCapability},
		{"unknown distributor is empty", admin, "ghost", 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.code.ListCodes(ctx, tc.caller, tc.owner)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListCodes: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d codes, got %d", tc.want, len(got))
			}
		})
	}
}

var errRetryTx = errors.New("retry transaction")

// retryOnceTx runs fn, rolls that pass back, and runs fn again in a fresh transaction.
type retryOnceTx struct {
	inner repository.TransactionManager
}

func (r retryOnceTx) WithTx(ctx context.Context, opt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := r.inner.WithTx(ctx, opt, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return errRetryTx
	})
	if !errors.Is(err, errRetryTx) {
		return err
	}
	return r.inner.WithTx(ctx, opt, fn)
}
