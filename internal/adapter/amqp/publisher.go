// Package amqp publishes order events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second
	dialAttempts   = 5
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	Exchange string
	Timeout  time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

// Dial connects with linear backoff and declares a durable topic exchange.
func Dial(url, exchange string) (*Publisher, error) {
	var err error
	for i := 0; i < dialAttempts; i++ {
		var p *Publisher
		if p, err = dial(url, exchange); err == nil {
			return p, nil
		}
		wait := time.Duration(i+1) * 2 * time.Second
		log.WithError(err).WithField("retry_in", wait).Warn("rabbitmq connect failed")
		time.Sleep(wait)
	}
	return nil, fmt.Errorf("rabbitmq connect after %d attempts: %w", dialAttempts, err)
}

func dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{Exchange: exchange, conn: conn, ch: ch}, nil
}

// RoutingKey maps an event to "order.<status>".
func RoutingKey(ev domain.OrderEvent) string {
	return "order." + string(ev.Status)
}

func (p *Publisher) Publish(ctx context.Context, ev domain.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.Exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.OrderID + ":" + string(ev.Status),
		Timestamp:    ev.At,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.Exchange, err)
	}
	log.WithFields(log.Fields{"exchange": p.Exchange, "routing_key": RoutingKey(ev), "order_id": ev.OrderID}).
		Debug("event published")
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

var _ domain.EventPublisher = (*Publisher)(nil)
