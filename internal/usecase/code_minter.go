package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"time"

	"github.com/google/uuid"

	"orbit-redemption/internal/domain"
	"orbit-redemption/internal/domain/model"
	"orbit-redemption/internal/domain/ports/repository"
)

// codeAlphabet avoids ambiguous characters like O/0, I/1, l.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	DefaultSegmentLength = 12
	DefaultMaxAttempts   = 10
)

// SegmentFunc produces a random code segment of the given length.
type SegmentFunc func(length int) (string, error)

// randomSegment draws from codeAlphabet using crypto/rand. len(codeAlphabet) divides 256,
// so the modulo keeps the distribution uniform.
func randomSegment(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}
	for i := range buffer {
		buffer[i] = codeAlphabet[int(buffer[i])%len(codeAlphabet)]
	}
	return string(buffer), nil
}

// FormatCode renders [PREFIX-]SEGMENT.
func FormatCode(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "-" + segment
}

// CodeOptions tunes code string allocation.
type CodeOptions struct {
	SegmentLength int
	MaxAttempts   int
}

func (o CodeOptions) withDefaults() CodeOptions {
	if o.SegmentLength <= 0 {
		o.SegmentLength = DefaultSegmentLength
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// codeMinter allocates code strings that do not collide with any existing code.
// Every candidate is checked against the store and inserted with a conflict-safe
// insert, so uniqueness holds across processes sharing one store.
type codeMinter struct {
	codes   repository.CodeRepository
	segment SegmentFunc
	opts    CodeOptions
}

func newCodeMinter(codes repository.CodeRepository, opts CodeOptions) *codeMinter {
	return &codeMinter{codes: codes, segment: randomSegment, opts: opts.withDefaults()}
}

// mint creates one member code of batch. taken holds strings already allocated in this batch.
func (m *codeMinter) mint(ctx context.Context, tx repository.Tx, batch *model.CodeBatch, taken map[string]struct{}, now time.Time) (*model.Code, error) {
	for attempt := 0; attempt < m.opts.MaxAttempts; attempt++ {
		seg, err := m.segment(m.opts.SegmentLength)
		if err != nil {
			return nil, err
		}
		candidate := FormatCode(batch.Prefix, seg)
		if _, dup := taken[candidate]; dup {
			continue
		}
		exists, err := m.codes.ExistsByCode(ctx, tx, candidate)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		c := &model.Code{
			ID:        uuid.NewString(),
			Code:      candidate,
			Type:      batch.Type,
			BatchID:   batch.ID,
			Owner:     batch.Owner,
			CreatedAt: now,
			IsActive:  true,
		}
		inserted, err := m.codes.Insert(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// lost a race with a concurrent writer
			continue
		}
		taken[candidate] = struct{}{}
		return c, nil
	}
	return nil, domain.ErrUniqueCodeExhausted
}
