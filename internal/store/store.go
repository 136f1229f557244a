// Package store defines durable access to listings and payment intents.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/propertyhub/api/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a record with the same key already exists
	ErrConflict = errors.New("record already exists")
)

// ListingStore persists listings.
//
// UpdateListing overwrites every mutable field with the caller's copy; there
// is no version check, so concurrent writers to the same listing are
// last-write-wins.
type ListingStore interface {
	CreateListing(ctx context.Context, listing *model.Listing) error
	GetListing(ctx context.Context, id string) (*model.Listing, error)
	UpdateListing(ctx context.Context, listing *model.Listing) error
	DeleteListing(ctx context.Context, id string) error
	ListBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error)
	CountOwned(ctx context.Context, sellerID string, ids []string) (int, error)
}

// PaymentStore persists payment intents
type PaymentStore interface {
	CreatePaymentIntent(ctx context.Context, intent *model.PaymentIntent) error
	GetPaymentIntent(ctx context.Context, txRef string) (*model.PaymentIntent, error)
	// CompletePaymentIntent moves a pending intent to completed and sets
	// promotionExpiry on each of its listings, atomically. It reports false
	// without changing anything when the intent is missing or not pending.
	CompletePaymentIntent(ctx context.Context, txRef string, completedAt, promotionExpiry time.Time) (bool, error)
}

// Store is the full entity store used by the service
type Store interface {
	ListingStore
	PaymentStore
	Ping(ctx context.Context) error
}
