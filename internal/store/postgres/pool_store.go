package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a new PoolStore backed by the given connection pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Create inserts a pool and its items in one transaction, preserving upload
// order.
func (s *PoolStore) Create(ctx context.Context, p domain.Pool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin pool tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO pools (id, name, created_at) VALUES ($1, $2, NOW())`,
		p.ID, p.Name,
	); err != nil {
		return fmt.Errorf("postgres: create pool %q: %w", p.Name, err)
	}

	const insertItem = `
		INSERT INTO items (id, pool_id, name, photo, base_price, sold, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i, item := range p.Items {
		if _, err := tx.Exec(ctx, insertItem,
			item.ID, p.ID, item.Name, item.Photo, item.BasePrice.String(), item.Sold, i,
		); err != nil {
			return fmt.Errorf("postgres: create item %q: %w", item.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit pool tx: %w", err)
	}
	return nil
}

// GetByID returns a pool with its items in upload order.
func (s *PoolStore) GetByID(ctx context.Context, id string) (domain.Pool, error) {
	var p domain.Pool
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM pools WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pool{}, domain.ErrNotFound
		}
		return domain.Pool{}, fmt.Errorf("postgres: get pool %q: %w", id, err)
	}

	if p.Items, err = s.items(ctx, `WHERE pool_id = $1`, id); err != nil {
		return domain.Pool{}, err
	}
	return p, nil
}

// List returns all pools with their items, oldest first.
func (s *PoolStore) List(ctx context.Context) ([]domain.Pool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_at FROM pools ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pools: %w", err)
	}
	defer rows.Close()

	pools := []domain.Pool{}
	for rows.Next() {
		var p domain.Pool
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list pools: %w", err)
	}

	for i := range pools {
		if pools[i].Items, err = s.items(ctx, `WHERE pool_id = $1`, pools[i].ID); err != nil {
			return nil, err
		}
	}
	return pools, nil
}

// ListItems returns every item across all pools in upload order.
func (s *PoolStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.items(ctx, "")
}

// MarkItemSold flips the sold flag exactly once.
func (s *PoolStore) MarkItemSold(ctx context.Context, itemID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET sold = TRUE WHERE id = $1 AND sold = FALSE`, itemID)
	if err != nil {
		return fmt.Errorf("postgres: mark item %q sold: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, itemID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check item %q: %w", itemID, err)
		}
		if !exists {
			return domain.ErrItemNotFound
		}
		return domain.ErrItemSold
	}
	return nil
}

// DeleteAll removes every pool and, by cascade, every item.
func (s *PoolStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM pools`); err != nil {
		return fmt.Errorf("postgres: delete all pools: %w", err)
	}
	return nil
}

// items loads item rows with an optional WHERE clause bound to args.
func (s *PoolStore) items(ctx context.Context, where string, args ...any) ([]domain.Item, error) {
	query := `
		SELECT id, pool_id, name, photo, base_price::text, sold
		FROM items ` + where + `
		ORDER BY pool_id, position`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var (
			item  domain.Item
			price string
		)
		if err := rows.Scan(&item.ID, &item.PoolID, &item.Name, &item.Photo, &price, &item.Sold); err != nil {
			return nil, fmt.Errorf("postgres: scan item: %w", err)
		}
		if item.BasePrice, err = domain.MoneyFromString(price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list items: %w", err)
	}
	return items, nil
}

// Compile-time interface check.
var _ domain.PoolStore = (*PoolStore)(nil)
