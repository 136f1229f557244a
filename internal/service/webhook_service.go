package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/propertyhub/api/internal/client"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/store"
)

// StatusSuccessful is the webhook status of a settled charge
const StatusSuccessful = "successful"

// OutcomeKind classifies what a webhook delivery did
type OutcomeKind int

const (
	// OutcomeApplied: the intent moved to completed and listings were promoted
	OutcomeApplied OutcomeKind = iota
	// OutcomeIgnored: nothing to do; the delivery is acknowledged
	OutcomeIgnored
	// OutcomeRejected: the shared secret did not match
	OutcomeRejected
	// OutcomeRetry: infrastructure failure; the provider should redeliver
	OutcomeRetry
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetry:
		return "retry"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Reasons attached to ignored outcomes
const (
	ReasonMalformedBody      = "malformed_body"
	ReasonNotSuccessful      = "status_not_successful"
	ReasonUnknownTxRef       = "unknown_tx_ref"
	ReasonAlreadySettled     = "already_settled"
	ReasonMissingTransaction = "missing_transaction_id"
	ReasonNotVerified        = "verification_rejected"
	ReasonAmountShort        = "amount_short"
)

// Outcome is the result of one webhook delivery
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// HTTPStatus is the status to answer the provider with. Only
// authentication failures and retryable errors are visible to it.
func (o Outcome) HTTPStatus() int {
	switch o.Kind {
	case OutcomeRejected:
		return http.StatusUnauthorized
	case OutcomeRetry:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func applied() Outcome { return Outcome{Kind: OutcomeApplied} }
func ignored(reason string) Outcome { return Outcome{Kind: OutcomeIgnored, Reason: reason} }
func retry(err error) Outcome { return Outcome{Kind: OutcomeRetry, Err: err} }
func rejected() Outcome { return Outcome{Kind: OutcomeRejected} }
func ignoredErr(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeIgnored, Reason: reason, Err: err}
}

// WebhookService applies payment notifications to payment intents exactly
// once, after re-verifying each one with the provider.
type WebhookService struct {
	payments        store.PaymentStore
	verifier        client.PaymentVerifier
	webhookHash     []byte
	promotionPeriod time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

func NewWebhookService(
	payments store.PaymentStore,
	verifier client.PaymentVerifier,
	webhookHash string,
	promotionPeriod time.Duration,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		payments:        payments,
		verifier:        verifier,
		webhookHash:     []byte(webhookHash),
		promotionPeriod: promotionPeriod,
		logger:          logger.With(slog.String("component", "payment_webhook")),
		now:             time.Now,
	}
}

// Authenticate compares the delivered shared secret in constant time
func (s *WebhookService) Authenticate(signature string) bool {
	if len(s.webhookHash) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(signature), s.webhookHash) == 1
}

// HandleNotification processes one delivery. signature is the shared-secret
// header value and body the raw request body.
func (s *WebhookService) HandleNotification(ctx context.Context, signature string, body []byte) Outcome {
	out := s.handle(ctx, signature, body)

	log := s.logger.With(slog.String("outcome", out.Kind.String()))
	if out.Reason != "" {
		log = log.With(slog.String("reason", out.Reason))
	}
	switch out.Kind {
	case OutcomeRetry:
		log.Error("webhook processing failed", slog.Any("error", out.Err))
	case OutcomeRejected:
		log.Warn("webhook rejected")
	default:
		if out.Err != nil {
			log = log.With(slog.Any("error", out.Err))
		}
		log.Info("webhook handled")
	}
	return out
}

func (s *WebhookService) handle(ctx context.Context, signature string, body []byte) Outcome {
	if !s.Authenticate(signature) {
		return rejected()
	}

	var n model.PaymentWebhook
	if err := json.Unmarshal(body, &n); err != nil {
		return ignoredErr(ReasonMalformedBody, err)
	}
	if n.Status != StatusSuccessful {
		return ignored(ReasonNotSuccessful)
	}
	if n.TxRef == "" {
		return ignored(ReasonUnknownTxRef)
	}

	intent, err := s.payments.GetPaymentIntent(ctx, n.TxRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ignored(ReasonUnknownTxRef)
		}
		return retry(fmt.Errorf("failed to load payment intent %s: %w", n.TxRef, err))
	}
	if intent.Status != model.PaymentPending {
		return ignored(ReasonAlreadySettled)
	}
	if n.TransactionID == "" {
		return ignored(ReasonMissingTransaction)
	}

	v, err := s.verifier.VerifyTransaction(ctx, n.TransactionID)
	if err != nil {
		if client.IsTemporary(err) {
			return retry(fmt.Errorf("failed to verify transaction %s: %w", n.TransactionID, err))
		}
		return ignoredErr(ReasonNotVerified, err)
	}
	if v.Status != client.StatusSuccess {
		return ignored(ReasonNotVerified)
	}
	if !v.Successful(intent.Amount) {
		return ignored(ReasonAmountShort)
	}

	now := s.now()
	ok, err := s.payments.CompletePaymentIntent(ctx, intent.TxRef, now, now.Add(s.promotionPeriod))
	if err != nil {
		return retry(fmt.Errorf("failed to complete payment intent %s: %w", intent.TxRef, err))
	}
	if !ok {
		// A concurrent delivery settled it first.
		return ignored(ReasonAlreadySettled)
	}

	s.logger.Info("listings promoted",
		slog.String("tx_ref", intent.TxRef),
		slog.Any("listing_ids", intent.ListingIDs),
		slog.Time("promotion_expiry", now.Add(s.promotionPeriod)),
	)
	return applied()
}
