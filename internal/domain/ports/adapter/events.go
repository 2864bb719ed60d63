package adapter

import (
	"context"
	"time"
)

// CodeRedeemedEvent is emitted once per successful redemption.
type CodeRedeemedEvent struct {
	Code         string    `json:"code"`
	CodeType     string    `json:"code_type"`
	DurationDays *int      `json:"duration_days"` // null for lifetime
	BatchID      string    `json:"batch_id"`
	Owner        string    `json:"owner"`
	Redeemer     string    `json:"redeemer,omitempty"`
	AttemptID    string    `json:"attempt_id"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

// BatchCreatedEvent is emitted after a batch commits.
type BatchCreatedEvent struct {
	BatchID   string    `json:"batch_id"`
	CodeType  string    `json:"code_type"`
	Count     int       `json:"count"`
	Prefix    string    `json:"prefix,omitempty"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// EventPublisher delivers domain events to downstream consumers. Failures never
// affect the state change that produced the event.
type EventPublisher interface {
	PublishCodeRedeemed(ctx context.Context, evt CodeRedeemedEvent) error
	PublishBatchCreated(ctx context.Context, evt BatchCreatedEvent) error
}
