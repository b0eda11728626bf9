package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// StateStore implements domain.StateStore over the auction_state singleton
// row.
type StateStore struct {
	pool *pgxpool.Pool
}

// NewStateStore creates a new StateStore backed by the given connection pool.
func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

// ensureRow inserts the singleton row if the table is empty.
func (s *StateStore) ensureRow(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auction_state (singleton) VALUES (TRUE)
		ON CONFLICT (singleton) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("postgres: ensure auction_state row: %w", err)
	}
	return nil
}

// Status returns the auction status, creating the default row when missing.
func (s *StateStore) Status(ctx context.Context) (domain.AuctionStatus, error) {
	if err := s.ensureRow(ctx); err != nil {
		return domain.AuctionStatus{}, err
	}

	var status domain.AuctionStatus
	err := s.pool.QueryRow(ctx,
		`SELECT ended FROM auction_state WHERE singleton`,
	).Scan(&status.Ended)
	if err != nil {
		return domain.AuctionStatus{}, fmt.Errorf("postgres: get auction status: %w", err)
	}
	return status, nil
}

// SetEnded flips the monotonic ended flag.
func (s *StateStore) SetEnded(ctx context.Context) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE auction_state SET ended = TRUE, updated_at = NOW() WHERE singleton`,
	); err != nil {
		return fmt.Errorf("postgres: set ended: %w", err)
	}
	return nil
}

// CurrentPoolID returns the active pool id, or ErrNotFound when unset.
func (s *StateStore) CurrentPoolID(ctx context.Context) (string, error) {
	if err := s.ensureRow(ctx); err != nil {
		return "", err
	}

	var poolID *string
	err := s.pool.QueryRow(ctx,
		`SELECT current_pool_id FROM auction_state WHERE singleton`,
	).Scan(&poolID)
	if err != nil {
		return "", fmt.Errorf("postgres: get current pool: %w", err)
	}
	if poolID == nil {
		return "", domain.ErrNotFound
	}
	return *poolID, nil
}

// SetCurrentPool persists the active-pool pointer.
func (s *StateStore) SetCurrentPool(ctx context.Context, poolID string) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE auction_state SET current_pool_id = $1, updated_at = NOW() WHERE singleton`,
		poolID,
	); err != nil {
		return fmt.Errorf("postgres: set current pool: %w", err)
	}
	return nil
}

// ClearCurrentPool unsets the active-pool pointer.
func (s *StateStore) ClearCurrentPool(ctx context.Context) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE auction_state SET current_pool_id = NULL, updated_at = NOW() WHERE singleton`,
	); err != nil {
		return fmt.Errorf("postgres: clear current pool: %w", err)
	}
	return nil
}

// SaveActiveBid checkpoints the open bid slot.
func (s *StateStore) SaveActiveBid(ctx context.Context, bid domain.ActiveBid) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}

	var leader *string
	if bid.Leader != "" {
		leader = &bid.Leader
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE auction_state
		SET bid_item_id = $1, bid_amount = $2, bid_leader = $3, updated_at = NOW()
		WHERE singleton`,
		bid.ItemID, bid.Amount.String(), leader,
	); err != nil {
		return fmt.Errorf("postgres: save active bid: %w", err)
	}
	return nil
}

// ClearActiveBid removes the bid checkpoint.
func (s *StateStore) ClearActiveBid(ctx context.Context) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE auction_state
		SET bid_item_id = NULL, bid_amount = NULL, bid_leader = NULL, updated_at = NOW()
		WHERE singleton`,
	); err != nil {
		return fmt.Errorf("postgres: clear active bid: %w", err)
	}
	return nil
}

// ActiveBid returns the checkpointed slot, or nil when no bid is open.
func (s *StateStore) ActiveBid(ctx context.Context) (*domain.ActiveBid, error) {
	if err := s.ensureRow(ctx); err != nil {
		return nil, err
	}

	var (
		itemID *string
		amount *string
		leader *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT bid_item_id, bid_amount::text, bid_leader FROM auction_state WHERE singleton`,
	).Scan(&itemID, &amount, &leader)
	if err != nil {
		return nil, fmt.Errorf("postgres: get active bid: %w", err)
	}
	if itemID == nil || amount == nil {
		return nil, nil
	}

	bid := &domain.ActiveBid{ItemID: *itemID}
	if bid.Amount, err = domain.MoneyFromString(*amount); err != nil {
		return nil, err
	}
	if leader != nil {
		bid.Leader = *leader
	}
	return bid, nil
}

// Reset returns the singleton row to its defaults.
func (s *StateStore) Reset(ctx context.Context) error {
	if err := s.ensureRow(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE auction_state
		SET ended = FALSE, current_pool_id = NULL,
		    bid_item_id = NULL, bid_amount = NULL, bid_leader = NULL,
		    updated_at = NOW()
		WHERE singleton`,
	); err != nil {
		return fmt.Errorf("postgres: reset auction state: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.StateStore = (*StateStore)(nil)
