package model

import "time"

// MaxBatchSize bounds a single generator invocation.
const MaxBatchSize = 100

// CodeBatch is the set of codes minted by one generator invocation. Member codes share
// Type, Prefix and Owner. The batch is immutable once recorded.
type CodeBatch struct {
	ID             string
	Type           CodeType
	RequestedCount int
	Prefix         string // empty when codes carry no prefix
	Owner          Owner
	CreatedAt      time.Time
}

// BatchSummary is a batch with counters derived from its member codes.
type BatchSummary struct {
	CodeBatch
	Generated int64
	Redeemed  int64
	Revoked   int64
}
