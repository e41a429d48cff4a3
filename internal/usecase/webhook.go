package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/example/salad-order-service/internal/menu"
	log "github.com/sirupsen/logrus"
)

type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HandleWebhook — проверить обратный вызов провайдера и применить статус платежа к заказу.
type HandleWebhook struct {
	Payment domain.PaymentAdapter
	Repo    domain.OrderRepository
	Slots   domain.SlotRepository
	Cache   domain.OrderCache
	Events  domain.EventPublisher
}

func (uc HandleWebhook) Execute(ctx context.Context, p domain.WebhookPayload, signature string) (WebhookResult, error) {
	if p.PaymentID == "" || p.OrderID == "" || p.Status == "" {
		return WebhookResult{}, fmt.Errorf("%w: missing required fields", domain.ErrValidation)
	}
	if !p.Status.Valid() {
		return WebhookResult{}, fmt.Errorf("%w: unknown payment status %q", domain.ErrValidation, p.Status)
	}
	entry := log.WithFields(log.Fields{"payment_id": p.PaymentID, "order_id": p.OrderID, "status": p.Status})

	p.Signature = signature
	ok, err := uc.Payment.VerifyWebhook(ctx, p, signature)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("verify webhook: %w", err)
	}
	if !ok {
		entry.Warn("invalid webhook signature")
		return WebhookResult{}, domain.ErrInvalidSignature
	}

	if err := uc.apply(ctx, p, entry); err != nil {
		return WebhookResult{}, err
	}
	entry.Info("payment status updated")
	return WebhookResult{Success: true, Message: fmt.Sprintf("Payment %s status updated to %s", p.PaymentID, p.Status)}, nil
}

// staleRetries bounds how often an update is re-read after the order status
// changed between the read and the compare-and-set write.
const staleRetries = 3

func (uc HandleWebhook) apply(ctx context.Context, p domain.WebhookPayload, entry *log.Entry) error {
	next, mutates := p.Status.OrderStatus()
	if !mutates || uc.Repo == nil {
		return nil
	}

	for attempt := 0; attempt < staleRetries; attempt++ {
		o, err := uc.Repo.Find(ctx, p.OrderID)
		if errors.Is(err, domain.ErrNotFound) {
			entry.Warn("webhook for unknown order")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load order %s: %w", p.OrderID, err)
		}
		if o.PaymentID != nil && *o.PaymentID != p.PaymentID {
			entry.WithField("order_payment_id", *o.PaymentID).Warn("webhook payment does not belong to order, ignoring")
			return nil
		}
		if o.PaymentStatus == p.Status {
			entry.Debug("payment status already applied")
			return nil
		}
		if !o.Status.CanTransition(next) {
			entry.WithField("order_status", o.Status).Warn("payment status arrived for order that cannot move, ignoring")
			if p.Status == domain.PaymentCompleted {
				refundPayment(ctx, uc.Payment, p.PaymentID, o, entry)
			}
			return nil
		}

		changed, err := uc.Repo.ApplyPaymentStatus(ctx, p.OrderID, p.Status, o.Status, next)
		if errors.Is(err, domain.ErrStaleStatus) {
			entry.WithField("order_status", o.Status).Debug("order changed while applying payment, re-reading")
			continue
		}
		if err != nil {
			return fmt.Errorf("apply payment status to %s: %w", p.OrderID, err)
		}
		if !changed {
			return nil
		}
		uc.applied(ctx, o, p, next, entry)
		return nil
	}
	return fmt.Errorf("apply payment status to %s: %w", p.OrderID, domain.ErrStaleStatus)
}

func (uc HandleWebhook) applied(ctx context.Context, o domain.Order, p domain.WebhookPayload, next domain.Status, entry *log.Entry) {
	o.PaymentStatus, o.Status, o.UpdatedAt = p.Status, next, time.Now().UTC()
	if uc.Cache != nil {
		uc.Cache.Set(o.OrderID, o)
	}
	switch next {
	case domain.StatusCancelled:
		releaseSlot(ctx, uc.Slots, o, entry)
	case domain.StatusPaid:
		publish(ctx, uc.Events, domain.OrderEvent{
			Type:      domain.EventOrderPaid,
			OrderID:   o.OrderID,
			Status:    o.Status,
			PaymentID: p.PaymentID,
			Slot:      o.PickupSlot,
			At:        o.UpdatedAt,
		}, entry)
	}
}

// refundPayment returns money captured for an order that is cancelled.
func refundPayment(ctx context.Context, pay domain.PaymentAdapter, paymentID string, o domain.Order, entry *log.Entry) {
	r, ok := pay.(domain.Refunder)
	if !ok {
		entry.Error("payment captured for cancelled order, provider has no refunds")
		return
	}
	done, err := r.RefundPayment(ctx, paymentID, menu.ToAgorot(o.Totals.Price))
	if err != nil || !done {
		entry.WithError(err).Error("refund failed")
		return
	}
	entry.Info("payment refunded")
}

type PaymentStatusResult struct {
	PaymentID string               `json:"paymentId"`
	Status    domain.PaymentStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// GetPaymentStatus — опрос статуса платежа для провайдеров без вебхуков.
type GetPaymentStatus struct {
	Payment domain.PaymentAdapter
}

func (uc GetPaymentStatus) Execute(ctx context.Context, paymentID string) (PaymentStatusResult, error) {
	if paymentID == "" {
		return PaymentStatusResult{}, fmt.Errorf("%w: missing paymentId", domain.ErrValidation)
	}
	st, err := uc.Payment.GetPaymentStatus(ctx, paymentID)
	if err != nil {
		return PaymentStatusResult{}, fmt.Errorf("payment status %s: %w", paymentID, err)
	}
	return PaymentStatusResult{PaymentID: paymentID, Status: st, Timestamp: time.Now().UTC()}, nil
}

// releaseSlot gives back the place taken by o. Orders created while their
// slot was untracked or unavailable hold no place and release nothing.
func releaseSlot(ctx context.Context, slots domain.SlotRepository, o domain.Order, entry *log.Entry) {
	if slots == nil || !o.SlotReserved {
		return
	}
	if err := slots.Release(ctx, o.PickupSlot); err != nil && !errors.Is(err, domain.ErrNotFound) {
		entry.WithError(err).Error("failed to release slot")
	}
}

func publish(ctx context.Context, events domain.EventPublisher, ev domain.OrderEvent, entry *log.Entry) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, ev); err != nil {
		entry.WithError(err).WithField("event", ev.Type).Error("failed to publish order event")
	}
}
