package payment

import (
	"strings"

	"github.com/example/salad-order-service/internal/config"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	ProviderMock  = "mock"
	ProviderYaad  = "yaad"
	ProviderPayMe = "payme"
	ProviderPOS   = "pos"
)

// New returns the adapter for the configured provider.
func New(cfg config.Payment) (domain.PaymentAdapter, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderMock:
		return NewMock(cfg.MockDelay), nil
	case ProviderYaad:
		return &Yaad{APIKey: cfg.YaadAPIKey, TerminalID: cfg.YaadTerminalID, WebhookSecret: cfg.YaadWebhookSecret}, nil
	case ProviderPayMe:
		return PayMe{}, nil
	case ProviderPOS:
		return POS{}, nil
	}
	return nil, errors.Wrapf(domain.ErrUnsupportedProvider, "%q", cfg.Provider)
}

// FormatAmount renders agorot as shekels with two decimals.
func FormatAmount(agorot int64) string {
	return decimal.New(agorot, -2).StringFixed(2)
}

// ParseAmount converts a shekel string back to agorot.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(domain.ErrValidation, "amount %q", s)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
