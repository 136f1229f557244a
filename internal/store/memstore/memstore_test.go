package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ListingRoundTripIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	l := &model.Listing{ID: "l1", SellerID: "s1", Pictures: []string{"a"}, Model3DStatus: model.Model3DPending}
	require.NoError(t, s.CreateListing(ctx, l))

	assert.ErrorIs(t, s.CreateListing(ctx, l), store.ErrConflict)

	l.Pictures[0] = "mutated"
	got, err := s.GetListing(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Pictures)

	_, err = s.GetListing(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateListing(ctx, &model.Listing{ID: "missing"}), store.ErrNotFound)
}

func TestStore_CompletePaymentIntentOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateListing(ctx, &model.Listing{ID: "l1", SellerID: "s1"}))
	require.NoError(t, s.CreatePaymentIntent(ctx, &model.PaymentIntent{
		TxRef: "tx-1", SellerID: "s1", Amount: 50000, ListingIDs: []string{"l1"}, Status: model.PaymentPending,
	}))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ok, err := s.CompletePaymentIntent(ctx, "tx-1", now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompletePaymentIntent(ctx, "tx-1", now.Add(time.Minute), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	l, err := s.GetListing(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, l.PromotionExpiry)
	assert.Equal(t, now.Add(time.Hour), *l.PromotionExpiry)
}

func TestStore_Hook(t *testing.T) {
	s := New()
	boom := errors.New("connection refused")
	s.Hook = func(op string) error {
		if op == "GetPaymentIntent" {
			return boom
		}
		return nil
	}

	_, err := s.GetPaymentIntent(context.Background(), "tx")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, s.Ping(context.Background()))
}
