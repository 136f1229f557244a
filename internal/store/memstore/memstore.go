// Package memstore is an in-memory store.Store backing service, handler and
// end-to-end tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps copies of records so callers cannot mutate stored state
// without going through the API.
type Store struct {
	mu       sync.Mutex
	listings map[string]*model.Listing
	payments map[string]*model.PaymentIntent

	// Hook, when set, runs before every operation; a non-nil error is
	// returned from the operation unchanged. op is the method name.
	Hook func(op string) error
}

func New() *Store {
	return &Store{
		listings: make(map[string]*model.Listing),
		payments: make(map[string]*model.PaymentIntent),
	}
}

func (s *Store) hook(op string) error {
	if s.Hook == nil {
		return nil
	}
	return s.Hook(op)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.hook("Ping")
}

func (s *Store) CreateListing(ctx context.Context, l *model.Listing) error {
	if err := s.hook("CreateListing"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; ok {
		return fmt.Errorf("listing %s: %w", l.ID, store.ErrConflict)
	}
	s.listings[l.ID] = copyListing(l)
	return nil
}

func (s *Store) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	if err := s.hook("GetListing"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyListing(l), nil
}

func (s *Store) UpdateListing(ctx context.Context, l *model.Listing) error {
	if err := s.hook("UpdateListing"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[l.ID]; !ok {
		return store.ErrNotFound
	}
	s.listings[l.ID] = copyListing(l)
	return nil
}

func (s *Store) DeleteListing(ctx context.Context, id string) error {
	if err := s.hook("DeleteListing"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.listings, id)
	return nil
}

func (s *Store) ListBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error) {
	if err := s.hook("ListBySeller"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Listing, 0)
	for _, l := range s.listings {
		if l.SellerID == sellerID {
			out = append(out, copyListing(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountOwned(ctx context.Context, sellerID string, ids []string) (int, error) {
	if err := s.hook("CountOwned"); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range ids {
		if l, ok := s.listings[id]; ok && l.SellerID == sellerID {
			count++
		}
	}
	return count, nil
}

func (s *Store) CreatePaymentIntent(ctx context.Context, p *model.PaymentIntent) error {
	if err := s.hook("CreatePaymentIntent"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.TxRef]; ok {
		return fmt.Errorf("payment intent %s: %w", p.TxRef, store.ErrConflict)
	}
	s.payments[p.TxRef] = copyPayment(p)
	return nil
}

func (s *Store) GetPaymentIntent(ctx context.Context, txRef string) (*model.PaymentIntent, error) {
	if err := s.hook("GetPaymentIntent"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[txRef]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyPayment(p), nil
}

func (s *Store) CompletePaymentIntent(ctx context.Context, txRef string, completedAt, promotionExpiry time.Time) (bool, error) {
	if err := s.hook("CompletePaymentIntent"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[txRef]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = model.PaymentCompleted
	at := completedAt
	p.CompletedAt = &at
	for _, id := range p.ListingIDs {
		if l, ok := s.listings[id]; ok {
			expiry := promotionExpiry
			l.PromotionExpiry = &expiry
			l.UpdatedAt = completedAt
		}
	}
	return true, nil
}

func copyListing(l *model.Listing) *model.Listing {
	c := *l
	c.Pictures = append([]string(nil), l.Pictures...)
	if l.Model3D != nil {
		v := *l.Model3D
		c.Model3D = &v
	}
	if l.PromotionExpiry != nil {
		v := *l.PromotionExpiry
		c.PromotionExpiry = &v
	}
	return &c
}

func copyPayment(p *model.PaymentIntent) *model.PaymentIntent {
	c := *p
	c.ListingIDs = append([]string(nil), p.ListingIDs...)
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		c.CompletedAt = &v
	}
	return &c
}
