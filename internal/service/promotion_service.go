package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/store"
)

// PromotionService creates payment intents for listing promotion
type PromotionService struct {
	store           store.Store
	pricePerListing int64
	logger          *slog.Logger
	now             func() time.Time
}

func NewPromotionService(s store.Store, pricePerListing int64, logger *slog.Logger) *PromotionService {
	return &PromotionService{
		store:           s,
		pricePerListing: pricePerListing,
		logger:          logger.With(slog.String("component", "promotion_service")),
		now:             time.Now,
	}
}

// Promote records a pending payment intent covering listingIDs. Every
// listing must exist and belong to sellerID.
func (s *PromotionService) Promote(ctx context.Context, sellerID string, req *model.PromoteRequest) (*model.PromoteResponse, error) {
	if len(req.ListingIDs) == 0 {
		return nil, ErrInvalidListings
	}

	owned, err := s.store.CountOwned(ctx, sellerID, req.ListingIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to check listings: %w", err)
	}
	if owned != len(req.ListingIDs) {
		return nil, ErrInvalidListings
	}

	intent := &model.PaymentIntent{
		TxRef:      "tx-" + uuid.New().String(),
		SellerID:   sellerID,
		Amount:     int64(len(req.ListingIDs)) * s.pricePerListing,
		ListingIDs: append([]string(nil), req.ListingIDs...),
		Status:     model.PaymentPending,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreatePaymentIntent(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.logger.Info("payment intent created",
		slog.String("tx_ref", intent.TxRef),
		slog.String("seller_id", sellerID),
		slog.Int64("amount", intent.Amount),
		slog.Int("listings", len(intent.ListingIDs)),
	)
	return &model.PromoteResponse{
		TxRef:  intent.TxRef,
		Amount: intent.Amount,
		Email:  req.Email,
	}, nil
}
