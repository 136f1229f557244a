package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/propertyhub/api/internal/config"
)

// StatusSuccess is the provider's status for a settled transaction
const StatusSuccess = "success"

// PaymentVerifier re-checks a transaction with the payment provider
type PaymentVerifier interface {
	VerifyTransaction(ctx context.Context, transactionID string) (*Verification, error)
}

// Verification is the provider's view of a transaction
type Verification struct {
	Status string          `json:"status"`
	Data   VerificationData `json:"data"`
}

type VerificationData struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	TxRef    string  `json:"tx_ref,omitempty"`
	Status   string  `json:"status,omitempty"`
}

// Successful reports a settled transaction paying at least amount
func (v *Verification) Successful(amount int64) bool {
	return v.Status == StatusSuccess && v.Data.Amount >= float64(amount)
}

// FlutterwaveClient implements PaymentVerifier for Flutterwave
type FlutterwaveClient struct {
	api jsonAPI
}

var _ PaymentVerifier = (*FlutterwaveClient)(nil)

// NewFlutterwaveClient creates a client authenticated with the server-held
// secret key.
func NewFlutterwaveClient(cfg *config.FlutterwaveConfig, logger *slog.Logger) *FlutterwaveClient {
	return &FlutterwaveClient{
		api: jsonAPI{
			service: "flutterwave",
			httpClient: &http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			},
			baseURL: strings.TrimRight(cfg.BaseURL, "/"),
			bearer:  cfg.SecretKey,
			logger:  logger,
		},
	}
}

// VerifyTransaction fetches the transaction by its provider id
func (c *FlutterwaveClient) VerifyTransaction(ctx context.Context, transactionID string) (*Verification, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	endpoint := fmt.Sprintf("/transactions/%s/verify", url.PathEscape(transactionID))
	var result Verification
	if err := c.api.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *FlutterwaveClient) IsConfigured() bool {
	return c.api.bearer != ""
}
