package events

import (
	"context"

	"orbit-redemption/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = NoopPublisher{}

// NoopPublisher discards events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCodeRedeemed(context.Context, adapter.CodeRedeemedEvent) error { return nil }
func (NoopPublisher) PublishBatchCreated(context.Context, adapter.BatchCreatedEvent) error { return nil }
