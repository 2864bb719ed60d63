// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"orbit-redemption/internal/config"
	"orbit-redemption/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*AMQPPublisher)(nil)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// dialer opens a connection-backed channel. The returned closer releases the connection.
type dialer func(url string) (channel, func() error, error)

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// AMQPPublisher keeps one channel open and redials when the broker drops it.
// Messages are persistent JSON on a durable topic exchange.
type AMQPPublisher struct {
	cfg  config.AMQPConfig
	dial dialer
	log  *zerolog.Logger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

func NewAMQPPublisher(cfg config.AMQPConfig, logger *zerolog.Logger) (*AMQPPublisher, error) {
	return newAMQPPublisher(cfg, dialAMQP, logger)
}

func newAMQPPublisher(cfg config.AMQPConfig, dial dialer, logger *zerolog.Logger) (*AMQPPublisher, error) {
	l := logger.With().Str("component", "AMQPPublisher").Logger()
	p := &AMQPPublisher{cfg: cfg, dial: dial, log: &l}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connectLocked() error {
	ch, closer, err := p.dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = closer()
		return fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	p.ch, p.closeConn = ch, closer
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, key string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         key,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		p.log.Warn().Msg("rabbitmq channel closed, redialing")
		p.releaseLocked()
		if err := p.connectLocked(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, p.cfg.Exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", key, err)
	}
	return nil
}

func (p *AMQPPublisher) PublishCodeRedeemed(ctx context.Context, evt adapter.CodeRedeemedEvent) error {
	return p.publish(ctx, p.cfg.RedeemedKey, evt)
}

func (p *AMQPPublisher) PublishBatchCreated(ctx context.Context, evt adapter.BatchCreatedEvent) error {
	return p.publish(ctx, p.cfg.BatchKey, evt)
}

func (p *AMQPPublisher) releaseLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.closeConn != nil {
		_ = p.closeConn()
		p.closeConn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked()
	return nil
}
