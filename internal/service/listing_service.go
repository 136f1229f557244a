package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/queue"
	"github.com/propertyhub/api/internal/store"
)

// StatusPublisher is told whenever a listing's model state changes
type StatusPublisher interface {
	PublishModelStatus(listing *model.Listing)
}

// ListingService handles listing creation and 3D processing re-entry
type ListingService struct {
	listings  store.ListingStore
	queue     queue.Enqueuer
	publisher StatusPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewListingService(listings store.ListingStore, q queue.Enqueuer, publisher StatusPublisher, logger *slog.Logger) *ListingService {
	return &ListingService{
		listings:  listings,
		queue:     q,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "listing_service")),
		now:       time.Now,
	}
}

// modelSource picks the reconstruction input. Photos win over a video when
// both are supplied.
func modelSource(photos []string, video string) (assets []string, isVideo bool, ok bool) {
	switch {
	case len(photos) > 0:
		return append([]string(nil), photos...), false, true
	case video != "":
		return []string{video}, true, true
	default:
		return nil, false, false
	}
}

// Create stores a new listing and, unless 3D was bypassed, queues its first
// reconstruction attempt.
func (s *ListingService) Create(ctx context.Context, sellerID string, req *model.CreateListingRequest) (*model.Listing, error) {
	now := s.now()
	listing := &model.Listing{
		ID:           uuid.New().String(),
		SellerID:     sellerID,
		PropertyType: req.PropertyType,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		State:        req.State,
		City:         req.City,
		Location:     req.Location,
		Pictures:     append([]string{}, req.Pictures...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var job *model.ModelJob
	if req.Bypass3D {
		listing.Model3DStatus = model.Model3DBypassed
	} else {
		assets, isVideo, ok := modelSource(req.Model3DInput, req.Model3DVideo)
		if !ok {
			return nil, ErrNoModelInput
		}
		listing.Model3DStatus = model.Model3DPending
		job = &model.ModelJob{
			ListingID:    listing.ID,
			SourceAssets: assets,
			IsVideo:      isVideo,
			Lineage:      uuid.New().String(),
		}
	}

	if err := s.listings.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	if job != nil {
		if err := s.queue.Enqueue(ctx, *job, 0); err != nil {
			s.markUnqueued(ctx, listing, err)
			return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
		}
	}

	s.logger.Info("listing created",
		slog.String("listing_id", listing.ID),
		slog.String("seller_id", sellerID),
		slog.String("model3d_status", string(listing.Model3DStatus)),
	)
	return listing, nil
}

// markUnqueued moves a pending listing whose job never reached the queue to
// failed, so the seller can use the retry path instead of waiting forever.
func (s *ListingService) markUnqueued(ctx context.Context, listing *model.Listing, cause error) {
	listing.Model3DStatus = model.Model3DFailed
	listing.UpdatedAt = s.now()
	if err := s.listings.UpdateListing(ctx, listing); err != nil {
		s.logger.Error("failed to mark unqueued listing as failed",
			slog.String("listing_id", listing.ID),
			slog.Any("error", err),
			slog.Any("cause", cause),
		)
		return
	}
	s.logger.Error("model job not queued", slog.String("listing_id", listing.ID), slog.Any("error", cause))
}

// RetryModel re-enters a failed listing into the pipeline with fresh assets.
// Listings in any other state are left untouched.
func (s *ListingService) RetryModel(ctx context.Context, sellerID, listingID string, req *model.RetryModelRequest) (*model.RetryModelResponse, error) {
	listing, err := s.getOwned(ctx, sellerID, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Model3DStatus != model.Model3DFailed {
		return nil, ErrRetryNotAllowed
	}

	assets, isVideo, ok := modelSource(req.Model3DInput, req.Model3DVideo)
	if !ok {
		return nil, ErrNoModelInput
	}

	listing.Model3DStatus = model.Model3DPending
	listing.Model3DRetryCount = 0
	listing.Model3D = nil
	listing.UpdatedAt = s.now()
	if err := s.listings.UpdateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}

	job := model.ModelJob{
		ListingID:    listing.ID,
		SourceAssets: assets,
		IsVideo:      isVideo,
		Lineage:      uuid.New().String(),
	}
	if err := s.queue.Enqueue(ctx, job, 0); err != nil {
		s.markUnqueued(ctx, listing, err)
		return nil, fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}
	s.publisher.PublishModelStatus(listing)

	s.logger.Info("model retry queued", slog.String("listing_id", listing.ID), slog.String("lineage", job.Lineage))
	return &model.RetryModelResponse{
		ListingID:     listing.ID,
		Model3DStatus: listing.Model3DStatus,
		Message:       "3D processing retry queued",
	}, nil
}

// Get returns a listing by id
func (s *ListingService) Get(ctx context.Context, listingID string) (*model.Listing, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// ListBySeller returns the seller's listings, newest first
func (s *ListingService) ListBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error) {
	listings, err := s.listings.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// Delete removes a listing owned by sellerID. In-flight model jobs are not
// cancelled; the worker abandons them when the listing is gone.
func (s *ListingService) Delete(ctx context.Context, sellerID, listingID string) error {
	if _, err := s.getOwned(ctx, sellerID, listingID); err != nil {
		return err
	}
	if err := s.listings.DeleteListing(ctx, listingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	s.logger.Info("listing deleted", slog.String("listing_id", listingID), slog.String("seller_id", sellerID))
	return nil
}

// AdminDelete removes any listing regardless of owner
func (s *ListingService) AdminDelete(ctx context.Context, listingID string) error {
	if err := s.listings.DeleteListing(ctx, listingID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	s.logger.Info("listing deleted by admin", slog.String("listing_id", listingID))
	return nil
}

// getOwned hides listings of other sellers behind ErrListingNotFound
func (s *ListingService) getOwned(ctx context.Context, sellerID, listingID string) (*model.Listing, error) {
	listing, err := s.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, ErrListingNotFound
	}
	return listing, nil
}
