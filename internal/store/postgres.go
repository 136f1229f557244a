package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/pkg/postgres"
)

//go:embed schema.sql
var schema string

const (
	listingsTable = "listings"
	paymentsTable = "payment_intents"
)

var listingColumns = []string{
	"id", "seller_id", "property_type", "title", "description", "price",
	"state", "city", "location", "pictures", "model3d", "model3d_status",
	"model3d_retry_count", "promotion_expiry", "created_at", "updated_at",
}

var paymentColumns = []string{
	"tx_ref", "seller_id", "amount", "listing_ids", "status", "created_at", "completed_at",
}

var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store on top of a pgx pool
type PostgresStore struct {
	*postgres.Postgres
}

func NewPostgresStore(pg *postgres.Postgres) *PostgresStore {
	return &PostgresStore{pg}
}

// Migrate creates the tables if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("PostgresStore - Migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateListing(ctx context.Context, l *model.Listing) error {
	sql, args, err := s.Builder.
		Insert(listingsTable).
		Columns(listingColumns...).
		Values(
			l.ID, l.SellerID, l.PropertyType, l.Title, l.Description, l.Price,
			l.State, l.City, l.Location, nonNil(l.Pictures), l.Model3D, l.Model3DStatus,
			l.Model3DRetryCount, l.PromotionExpiry, l.CreatedAt, l.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("PostgresStore - CreateListing - ToSql: %w", err)
	}

	if _, err := s.GetExecutor(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("PostgresStore - CreateListing - Exec: %w", mapWriteError(err))
	}
	return nil
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	sql, args, err := s.Builder.
		Select(listingColumns...).
		From(listingsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("PostgresStore - GetListing - ToSql: %w", err)
	}

	l, err := scanListing(s.GetExecutor(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("PostgresStore - GetListing: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("PostgresStore - GetListing - QueryRow: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) UpdateListing(ctx context.Context, l *model.Listing) error {
	sql, args, err := s.Builder.
		Update(listingsTable).
		SetMap(map[string]interface{}{
			"property_type":       l.PropertyType,
			"title":               l.Title,
			"description":         l.Description,
			"price":               l.Price,
			"state":               l.State,
			"city":                l.City,
			"location":            l.Location,
			"pictures":            nonNil(l.Pictures),
			"model3d":             l.Model3D,
			"model3d_status":      l.Model3DStatus,
			"model3d_retry_count": l.Model3DRetryCount,
			"promotion_expiry":    l.PromotionExpiry,
			"updated_at":          l.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": l.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("PostgresStore - UpdateListing - ToSql: %w", err)
	}

	tag, err := s.GetExecutor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("PostgresStore - UpdateListing - Exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("PostgresStore - UpdateListing: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteListing(ctx context.Context, id string) error {
	sql, args, err := s.Builder.
		Delete(listingsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("PostgresStore - DeleteListing - ToSql: %w", err)
	}

	tag, err := s.GetExecutor(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("PostgresStore - DeleteListing - Exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("PostgresStore - DeleteListing: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListBySeller(ctx context.Context, sellerID string) ([]*model.Listing, error) {
	sql, args, err := s.Builder.
		Select(listingColumns...).
		From(listingsTable).
		Where(squirrel.Eq{"seller_id": sellerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("PostgresStore - ListBySeller - ToSql: %w", err)
	}

	rows, err := s.GetExecutor(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("PostgresStore - ListBySeller - Query: %w", err)
	}
	defer rows.Close()

	listings := make([]*model.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("PostgresStore - ListBySeller - Scan: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PostgresStore - ListBySeller - rows.Err: %w", err)
	}
	return listings, nil
}

func (s *PostgresStore) CountOwned(ctx context.Context, sellerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	sql, args, err := s.Builder.
		Select("COUNT(*)").
		From(listingsTable).
		Where(squirrel.And{
			squirrel.Eq{"seller_id": sellerID},
			squirrel.Eq{"id": ids},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("PostgresStore - CountOwned - ToSql: %w", err)
	}

	var count int
	if err := s.GetExecutor(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("PostgresStore - CountOwned - QueryRow: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CreatePaymentIntent(ctx context.Context, p *model.PaymentIntent) error {
	sql, args, err := s.Builder.
		Insert(paymentsTable).
		Columns(paymentColumns...).
		Values(p.TxRef, p.SellerID, p.Amount, p.ListingIDs, p.Status, p.CreatedAt, p.CompletedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("PostgresStore - CreatePaymentIntent - ToSql: %w", err)
	}

	if _, err := s.GetExecutor(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("PostgresStore - CreatePaymentIntent - Exec: %w", mapWriteError(err))
	}
	return nil
}

func (s *PostgresStore) GetPaymentIntent(ctx context.Context, txRef string) (*model.PaymentIntent, error) {
	sql, args, err := s.Builder.
		Select(paymentColumns...).
		From(paymentsTable).
		Where(squirrel.Eq{"tx_ref": txRef}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("PostgresStore - GetPaymentIntent - ToSql: %w", err)
	}

	var p model.PaymentIntent
	err = s.GetExecutor(ctx).QueryRow(ctx, sql, args...).Scan(
		&p.TxRef, &p.SellerID, &p.Amount, &p.ListingIDs, &p.Status, &p.CreatedAt, &p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("PostgresStore - GetPaymentIntent: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("PostgresStore - GetPaymentIntent - QueryRow: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CompletePaymentIntent(ctx context.Context, txRef string, completedAt, promotionExpiry time.Time) (bool, error) {
	completed := false

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		// The status predicate makes the transition happen at most once even
		// when two deliveries race past the caller's pending check.
		sql, args, err := s.Builder.
			Update(paymentsTable).
			Set("status", model.PaymentCompleted).
			Set("completed_at", completedAt).
			Where(squirrel.Eq{"tx_ref": txRef, "status": model.PaymentPending}).
			Suffix("RETURNING listing_ids").
			ToSql()
		if err != nil {
			return fmt.Errorf("PostgresStore - CompletePaymentIntent - ToSql: %w", err)
		}

		var listingIDs []string
		err = s.GetExecutor(ctx).QueryRow(ctx, sql, args...).Scan(&listingIDs)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("PostgresStore - CompletePaymentIntent - QueryRow: %w", err)
		}

		sql, args, err = s.Builder.
			Update(listingsTable).
			Set("promotion_expiry", promotionExpiry).
			Set("updated_at", completedAt).
			Where(squirrel.Eq{"id": listingIDs}).
			ToSql()
		if err != nil {
			return fmt.Errorf("PostgresStore - CompletePaymentIntent - listings ToSql: %w", err)
		}

		if _, err := s.GetExecutor(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("PostgresStore - CompletePaymentIntent - listings Exec: %w", err)
		}

		completed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

func scanListing(row pgx.Row) (*model.Listing, error) {
	var l model.Listing
	err := row.Scan(
		&l.ID, &l.SellerID, &l.PropertyType, &l.Title, &l.Description, &l.Price,
		&l.State, &l.City, &l.Location, &l.Pictures, &l.Model3D, &l.Model3DStatus,
		&l.Model3DRetryCount, &l.PromotionExpiry, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// mapWriteError turns a unique violation into ErrConflict
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
