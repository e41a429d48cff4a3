package domain

// PaymentRequest — запрос на инициализацию платежа. Сумма в агорот.
type PaymentRequest struct {
	AmountAgorot  int64
	OrderID       string
	Description   string
	CustomerEmail string
	CustomerPhone string
	ReturnURL     string
	WebhookURL    string
}

type PaymentResponse struct {
	Success       bool
	PaymentID     string
	PaymentURL    string
	Error         string
	TransactionID string
}

// WebhookPayload — тело обратного вызова платёжного провайдера.
type WebhookPayload struct {
	PaymentID     string        `json:"paymentId"`
	OrderID       string        `json:"orderId"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
	Timestamp     string        `json:"timestamp,omitempty"`
	Signature     string        `json:"signature,omitempty"`
}
