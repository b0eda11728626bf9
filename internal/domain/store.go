package domain

import "context"

// TeamStore persists teams and their acquisitions.
type TeamStore interface {
	// Create inserts a new team. Returns ErrTeamExists when the name is taken.
	Create(ctx context.Context, team Team) error
	// GetByName returns a team with its acquisitions, or ErrTeamNotFound.
	GetByName(ctx context.Context, name string) (Team, error)
	List(ctx context.Context) ([]Team, error)
	// Delete removes a team. Returns ErrTeamNotFound when absent.
	Delete(ctx context.Context, name string) error
	// DebitAndRecord atomically checks budget >= amount, debits the team,
	// and appends the acquisition, all in one transaction. It returns
	// ErrInsufficientFunds (and mutates nothing) when the guard fails.
	DebitAndRecord(ctx context.Context, name string, amount Money, acq Acquisition) error
	DeleteAll(ctx context.Context) error
}

// PoolStore persists pools and their items.
type PoolStore interface {
	Create(ctx context.Context, pool Pool) error
	// GetByID returns a pool with its items in upload order, or ErrNotFound.
	GetByID(ctx context.Context, id string) (Pool, error)
	List(ctx context.Context) ([]Pool, error)
	// ListItems returns every item across all pools in upload order.
	ListItems(ctx context.Context) ([]Item, error)
	// MarkItemSold flips an item's sold flag. It returns ErrItemSold if the
	// flag is already set and ErrItemNotFound if the item does not exist.
	MarkItemSold(ctx context.Context, itemID string) error
	DeleteAll(ctx context.Context) error
}

// SoldRecordStore persists the append-only sale audit trail.
type SoldRecordStore interface {
	Append(ctx context.Context, rec SoldRecord) error
	List(ctx context.Context) ([]SoldRecord, error)
	DeleteByTeam(ctx context.Context, team string) error
	DeleteAll(ctx context.Context) error
}

// StateStore persists the singleton auction state: the ended flag, the
// active-pool pointer, and the durable checkpoint of the active bid slot.
type StateStore interface {
	// Status returns the auction status, creating the default (not ended)
	// row if none exists yet.
	Status(ctx context.Context) (AuctionStatus, error)
	// SetEnded flips the monotonic ended flag to true.
	SetEnded(ctx context.Context) error
	// CurrentPoolID returns the active pool id, or ErrNotFound when unset.
	CurrentPoolID(ctx context.Context) (string, error)
	SetCurrentPool(ctx context.Context, poolID string) error
	ClearCurrentPool(ctx context.Context) error
	// SaveActiveBid checkpoints the open bid slot. The engine writes this
	// while holding the slot lock, before committing the in-memory
	// transition.
	SaveActiveBid(ctx context.Context, bid ActiveBid) error
	ClearActiveBid(ctx context.Context) error
	// ActiveBid returns the checkpointed slot, or nil when no bid is open.
	ActiveBid(ctx context.Context) (*ActiveBid, error)
	// Reset clears the whole singleton row back to defaults.
	Reset(ctx context.Context) error
}
