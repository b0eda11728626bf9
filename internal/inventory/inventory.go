// Package inventory tracks the currently active pool and provides item
// lookup for the engine. Reads are in-memory against the loaded pool; the
// single mutation path is the idempotent-checked sold flag.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// Inventory holds the active pool in memory, backed by the pool store. The
// active-pool pointer is persisted in the state store so it survives
// restarts.
type Inventory struct {
	pools  domain.PoolStore
	state  domain.StateStore
	logger *slog.Logger

	mu     sync.RWMutex
	active *domain.Pool
}

// New creates an Inventory. Call Restore at boot to reload the persisted
// active-pool pointer.
func New(pools domain.PoolStore, state domain.StateStore, logger *slog.Logger) *Inventory {
	return &Inventory{
		pools:  pools,
		state:  state,
		logger: logger.With(slog.String("component", "inventory")),
	}
}

// Restore reloads the active pool named by the state store, if any.
func (inv *Inventory) Restore(ctx context.Context) error {
	poolID, err := inv.state.CurrentPoolID(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("inventory: restore pool pointer: %w", err)
	}

	pool, err := inv.pools.GetByID(ctx, poolID)
	if err != nil {
		// The pointed-to pool may have been cleared; start with no active
		// pool rather than failing boot.
		inv.logger.WarnContext(ctx, "active pool missing, clearing pointer",
			slog.String("pool_id", poolID),
			slog.String("error", err.Error()),
		)
		return inv.state.ClearCurrentPool(ctx)
	}

	inv.mu.Lock()
	inv.active = &pool
	inv.mu.Unlock()

	inv.logger.InfoContext(ctx, "active pool restored",
		slog.String("pool_id", pool.ID),
		slog.String("pool", pool.Name),
	)
	return nil
}

// SetActivePool loads the pool from the store, persists the pointer, and
// makes it the active pool.
func (inv *Inventory) SetActivePool(ctx context.Context, poolID string) (domain.Pool, error) {
	pool, err := inv.pools.GetByID(ctx, poolID)
	if err != nil {
		return domain.Pool{}, err
	}
	if err := inv.state.SetCurrentPool(ctx, poolID); err != nil {
		return domain.Pool{}, fmt.Errorf("inventory: persist pool pointer: %w", err)
	}

	inv.mu.Lock()
	inv.active = &pool
	inv.mu.Unlock()
	return pool, nil
}

// ActivePool returns a copy of the active pool, or nil when none is set.
func (inv *Inventory) ActivePool() *domain.Pool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if inv.active == nil {
		return nil
	}
	pool := *inv.active
	pool.Items = append([]domain.Item(nil), inv.active.Items...)
	return &pool
}

// Find returns the item with the given id from the active pool. It returns
// ErrItemNotFound when no pool is active or the item is not in it.
func (inv *Inventory) Find(itemID string) (domain.Item, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if inv.active == nil {
		return domain.Item{}, domain.ErrItemNotFound
	}
	for _, item := range inv.active.Items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return domain.Item{}, domain.ErrItemNotFound
}

// MarkSold flips the item's sold flag in the store and the in-memory pool.
// It returns ErrItemSold when the flag is already set, making a double
// close on the same item visible to the caller.
func (inv *Inventory) MarkSold(ctx context.Context, itemID string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.active == nil {
		return domain.ErrItemNotFound
	}
	idx := -1
	for i, item := range inv.active.Items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrItemNotFound
	}
	if inv.active.Items[idx].Sold {
		return domain.ErrItemSold
	}

	if err := inv.pools.MarkItemSold(ctx, itemID); err != nil {
		return err
	}
	inv.active.Items[idx].Sold = true
	return nil
}

// Reset drops the in-memory active pool. Used after pool clears.
func (inv *Inventory) Reset() {
	inv.mu.Lock()
	inv.active = nil
	inv.mu.Unlock()
}
