package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn inside one store transaction and passes the
// transaction handle through tx. fn returning an error rolls everything back, so
// callers never observe partial writes.
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres, a snapshot handle
// for the in-memory store). Repositories MUST accept NoTX (non-transactional path).
//
// The ctx handed to fn carries a commit hook scope: callbacks registered with
// AfterCommit run once the transaction has committed and are dropped on rollback.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

type commitHooksKey struct{}

type commitHooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// WithCommitHooks opens a hook scope on ctx. The returned func runs the
// registered callbacks in order; call it only after a successful commit.
func WithCommitHooks(ctx context.Context) (context.Context, func(context.Context)) {
	h := &commitHooks{}
	return context.WithValue(ctx, commitHooksKey{}, h), h.run
}

// AfterCommit defers fn until the transaction carried by ctx commits.
// Without a hook scope fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	h, ok := ctx.Value(commitHooksKey{}).(*commitHooks)
	if !ok {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *commitHooks) run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
