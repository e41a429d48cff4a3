package natsstan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	stan "github.com/nats-io/stan.go"
	log "github.com/sirupsen/logrus"
)

const (
	defaultQueue   = "salad-workers"
	defaultAckWait = 10 * time.Second
	handlerTimeout = 5 * time.Second
)

// Connect opens a streaming connection; an empty clientID gets a unique one.
func Connect(clusterID, clientID, url string) (stan.Conn, error) {
	if clientID == "" {
		clientID = fmt.Sprintf("salad-svc-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, fmt.Errorf("stan connect %s: %w", url, err)
	}
	return sc, nil
}

// Subscriber — durable queue-подписка на обновления статусов заказов.
type Subscriber struct {
	Conn    stan.Conn
	Subject string
	Queue   string
	Durable string
	AckWait time.Duration
}

// Subscribe delivers every message to handler. Messages the handler rejects
// as permanently bad are acked and dropped; other failures are redelivered.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	queue, ackWait := s.Queue, s.AckWait
	if queue == "" {
		queue = defaultQueue
	}
	if ackWait <= 0 {
		ackWait = defaultAckWait
	}

	sub, err := s.Conn.QueueSubscribe(s.Subject, queue, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		entry := log.WithFields(log.Fields{"subject": m.Subject, "seq": m.Sequence})
		if err := handler(hCtx, m.Data); err != nil {
			if !permanent(err) {
				// не подтверждаем, даём сообщению переотправиться
				entry.WithError(err).Warn("status update failed, awaiting redelivery")
				return
			}
			entry.WithError(err).Error("dropping status update")
		}
		if err := m.Ack(); err != nil {
			entry.WithError(err).Error("ack failed")
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(ackWait), stan.DeliverAllAvailable())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Subject, err)
	}
	go func() {
		<-ctx.Done()
		// Close keeps the durable position, Unsubscribe would drop it.
		_ = sub.Close()
	}()
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidTransition)
}

var _ domain.MessageSubscriber = (*Subscriber)(nil)
