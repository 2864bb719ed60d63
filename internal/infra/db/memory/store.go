// Package memory is an in-process store with the same transactional guarantees as
// the Postgres store. One mutex serializes writers; WithTx holds it for the whole
// callback and restores a snapshot when the callback fails.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4"

	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

// Store holds every table. Records are replaced, never mutated in place, so a
// shallow copy of the maps is a consistent snapshot.
type Store struct {
	mu sync.Mutex

	codes     map[string]*model.Code // by code string
	codeOrder []string

	batches    map[string]*model.CodeBatch
	batchOrder []string

	distributors map[string]*model.Distributor
	distOrder    []string
}

func NewStore() *Store {
	return &Store{
		codes:        make(map[string]*model.Code),
		batches:      make(map[string]*model.CodeBatch),
		distributors: make(map[string]*model.Distributor),
	}
}

// txHandle marks calls made inside WithTx; the store lock is already held.
type txHandle struct{ s *Store }

type snapshot struct {
	codes        map[string]*model.Code
	codeOrder    []string
	batches      map[string]*model.CodeBatch
	batchOrder   []string
	distributors map[string]*model.Distributor
	distOrder    []string
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		codes:        make(map[string]*model.Code, len(s.codes)),
		codeOrder:    append([]string(nil), s.codeOrder...),
		batches:      make(map[string]*model.CodeBatch, len(s.batches)),
		batchOrder:   append([]string(nil), s.batchOrder...),
		distributors: make(map[string]*model.Distributor, len(s.distributors)),
		distOrder:    append([]string(nil), s.distOrder...),
	}
	for k, v := range s.codes {
		snap.codes[k] = v
	}
	for k, v := range s.batches {
		snap.batches[k] = v
	}
	for k, v := range s.distributors {
		snap.distributors[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.codes, s.codeOrder = snap.codes, snap.codeOrder
	s.batches, s.batchOrder = snap.batches, snap.batchOrder
	s.distributors, s.distOrder = snap.distributors, snap.distOrder
}

// lock acquires the store lock unless tx shows it is already held.
// The returned func releases whatever was acquired.
func (s *Store) lock(tx repository.Tx) func() {
	if h, ok := tx.(*txHandle); ok && h.s == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// TxManager implements repository.TransactionManager over a Store.
type TxManager struct {
	s *Store
}

func NewTxManager(s *Store) *TxManager { return &TxManager{s: s} }

var _ repository.TransactionManager = (*TxManager)(nil)

// WithTx ignores the isolation level: holding the store lock is serializable.
// Commit hooks run after the lock is released.
func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	hctx, runHooks := repository.WithCommitHooks(ctx)
	if err := m.run(hctx, fn); err != nil {
		return err
	}
	runHooks(ctx)
	return nil
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	snap := m.s.snapshot()
	committed := false
	defer func() {
		if !committed {
			m.s.restore(snap)
		}
	}()
	if err := fn(ctx, &txHandle{s: m.s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	committed = true
	return nil
}
