package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/pkg/errors"
)

// Yaad — адаптер YaadPay. Создание платежа и запрос статуса ещё не интегрированы.
type Yaad struct {
	APIKey        string
	TerminalID    string
	WebhookSecret string
}

func (y *Yaad) CreatePayment(context.Context, domain.PaymentRequest) (domain.PaymentResponse, error) {
	return domain.PaymentResponse{}, errors.Wrap(domain.ErrNotImplemented, "yaad create payment")
}

// VerifyWebhook rejects unsigned callbacks. With a secret configured the
// signature must be the hex HMAC-SHA256 of the canonical payload.
func (y *Yaad) VerifyWebhook(_ context.Context, p domain.WebhookPayload, signature string) (bool, error) {
	if signature == "" {
		return false, nil
	}
	if y.WebhookSecret == "" {
		return true, nil
	}
	want := Sign(y.WebhookSecret, p)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(want)), nil
}

func (y *Yaad) GetPaymentStatus(context.Context, string) (domain.PaymentStatus, error) {
	return "", errors.Wrap(domain.ErrNotImplemented, "yaad payment status")
}

// Sign computes the webhook signature over paymentId|orderId|amount|status|transactionId|timestamp.
func Sign(secret string, p domain.WebhookPayload) string {
	msg := strings.Join([]string{
		p.PaymentID,
		p.OrderID,
		strconv.FormatFloat(p.Amount, 'f', -1, 64),
		string(p.Status),
		p.TransactionID,
		p.Timestamp,
	}, "|")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

type PayMe struct{}

func (PayMe) CreatePayment(context.Context, domain.PaymentRequest) (domain.PaymentResponse, error) {
	return domain.PaymentResponse{}, errors.Wrap(domain.ErrNotImplemented, "payme create payment")
}

func (PayMe) VerifyWebhook(context.Context, domain.WebhookPayload, string) (bool, error) {
	return true, nil
}

func (PayMe) GetPaymentStatus(context.Context, string) (domain.PaymentStatus, error) {
	return "", errors.Wrap(domain.ErrNotImplemented, "payme payment status")
}

// POS — оплата на кассе: платёж считается завершённым сразу.
type POS struct{}

func (POS) CreatePayment(context.Context, domain.PaymentRequest) (domain.PaymentResponse, error) {
	return domain.PaymentResponse{}, errors.Wrap(domain.ErrNotImplemented, "pos create payment")
}

func (POS) VerifyWebhook(context.Context, domain.WebhookPayload, string) (bool, error) {
	return true, nil
}

func (POS) GetPaymentStatus(context.Context, string) (domain.PaymentStatus, error) {
	return domain.PaymentCompleted, nil
}

var (
	_ domain.PaymentAdapter = (*Yaad)(nil)
	_ domain.PaymentAdapter = PayMe{}
	_ domain.PaymentAdapter = POS{}
)
