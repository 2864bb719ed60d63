//go:build !integration

package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/adapter"
	"orbit-redemption/internal/infra/db/memory"
)

var fixedNow = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	redeemed []adapter.CodeRedeemedEvent
	batches  []adapter.BatchCreatedEvent
}

func (p *recordingPublisher) PublishCodeRedeemed(ctx context.Context, evt adapter.CodeRedeemedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redeemed = append(p.redeemed, evt)
	return nil
}

func (p *recordingPublisher) PublishBatchCreated(ctx context.Context, evt adapter.BatchCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, evt)
	return nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hash:" + plain, nil }
func (fakeHasher) Verify(hash, plain string) bool    { return hash == "hash:"+plain }

type fakeTokens struct{}

func (fakeTokens) Issue(id string) (string, time.Time, error) {
	return "token-" + id, fixedNow.Add(time.Hour), nil
}

// fixture wires every use case over one in-memory store with a frozen clock.
type fixture struct {
	codes        *memory.CodeRepo
	batches      *memory.BatchRepo
	distributors *memory.DistributorRepo
	events       *recordingPublisher
	tm           *memory.TxManager

	batch  *batchUC
	redeem *redemptionUC
	code   *codeUC
	stats  *statsUC
	dirs   *distributorUC
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	f := &fixture{
		codes:        memory.NewCodeRepo(s),
		batches:      memory.NewBatchRepo(s),
		distributors: memory.NewDistributorRepo(s),
		events:       &recordingPublisher{},
	}
	tm := memory.NewTxManager(s)
	f.tm = tm
	log := newTestLogger()
	clock := func() time.Time { return fixedNow }

	f.batch = NewBatchUseCase(f.batches, f.codes, f.distributors, tm, f.events, CodeOptions{}, log)
	f.batch.now = clock
	f.redeem = NewRedemptionUseCase(f.codes, f.events, log, true)
	f.redeem.now = clock
	f.code = NewCodeUseCase(f.codes, tm, log, true)
	f.code.now = clock
	f.stats = NewStatsUseCase(f.codes, f.distributors, time.UTC, log)
	f.stats.now = clock
	f.dirs = NewDistributorUseCase(f.distributors, tm, fakeHasher{}, fakeTokens{}, log)
	return f
}

var admin = model.AdminCaller()

func (f *fixture) addDistributor(t *testing.T, email, prefix string) *model.Distributor {
	t.Helper()
	d, err := f.dirs.Create(context.Background(), admin, CreateDistributorRequest{
		Name:           "Dist " + email,
		Email:          email,
		Password:       "secret",
		CommissionRate: decimal.NewFromInt(10),
		CodePrefix:     prefix,
	})
	if err != nil {
		t.Fatalf("create distributor: %v", err)
	}
	return d
}

func (f *fixture) generate(t *testing.T, caller model.Caller, req GenerateRequest) (*model.CodeBatch, []string) {
	t.Helper()
	b, codes, err := f.batch.Generate(context.Background(), caller, req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return b, codes
}

// segments returns a SegmentFunc replaying vals, then repeating the last one.
func segments(vals ...string) SegmentFunc {
	var mu sync.Mutex
	i := 0
	return func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		v := vals[i]
		if i < len(vals)-1 {
			i++
		}
		return v, nil
	}
}
