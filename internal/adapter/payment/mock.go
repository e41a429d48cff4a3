package payment

import (
	"context"
	"sync"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	log "github.com/sirupsen/logrus"
)

const mockPayURL = "https://mock-payment-processor.com/pay/"

type mockPayment struct {
	status  domain.PaymentStatus
	orderID string
	amount  int64
}

// Mock — платёжный провайдер для разработки: хранит платежи в памяти процесса.
type Mock struct {
	Delay time.Duration

	mu       sync.Mutex
	payments map[string]*mockPayment
}

func NewMock(delay time.Duration) *Mock {
	return &Mock{Delay: delay, payments: make(map[string]*mockPayment)}
}

func (m *Mock) CreatePayment(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResponse, error) {
	if m.Delay > 0 {
		t := time.NewTimer(m.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return domain.PaymentResponse{}, ctx.Err()
		case <-t.C:
		}
	}

	id := domain.NewID("mock")
	m.mu.Lock()
	m.payments[id] = &mockPayment{status: domain.PaymentPending, orderID: req.OrderID, amount: req.AmountAgorot}
	m.mu.Unlock()

	log.WithFields(log.Fields{"payment_id": id, "order_id": req.OrderID, "amount": FormatAmount(req.AmountAgorot)}).
		Debug("mock payment created")
	return domain.PaymentResponse{Success: true, PaymentID: id, PaymentURL: mockPayURL + id}, nil
}

// VerifyWebhook accepts callbacks only for payments it issued and records the new status.
func (m *Mock) VerifyWebhook(_ context.Context, p domain.WebhookPayload, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pay, ok := m.payments[p.PaymentID]
	if !ok {
		return false, nil
	}
	pay.status = p.Status
	return true, nil
}

func (m *Mock) GetPaymentStatus(_ context.Context, paymentID string) (domain.PaymentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pay, ok := m.payments[paymentID]
	if !ok {
		return domain.PaymentFailed, nil
	}
	return pay.status, nil
}

func (m *Mock) RefundPayment(_ context.Context, paymentID string, _ int64) (bool, error) {
	log.WithField("payment_id", paymentID).Info("mock refund")
	return true, nil
}

var (
	_ domain.PaymentAdapter = (*Mock)(nil)
	_ domain.Refunder       = (*Mock)(nil)
)
