package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	stan "github.com/nats-io/stan.go"
)

type asyncPublisher interface {
	PublishAsync(subject string, data []byte, ah stan.AckHandler) (string, error)
}

// Publisher sends order events and waits for the streaming server ack or ctx.
type Publisher struct {
	Conn    asyncPublisher
	Subject string
	// Timeout bounds the wait for the ack; zero waits for ctx only.
	Timeout time.Duration
}

func NewPublisher(sc stan.Conn, subject string, timeout time.Duration) *Publisher {
	return &Publisher{Conn: sc, Subject: subject, Timeout: timeout}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.OrderEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	acked := make(chan error, 1)
	if _, err := p.Conn.PublishAsync(p.Subject, body, func(_ string, err error) { acked <- err }); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject, err)
	}
	select {
	case err := <-acked:
		if err != nil {
			return fmt.Errorf("publish %s: %w", p.Subject, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ domain.EventPublisher = (*Publisher)(nil)
