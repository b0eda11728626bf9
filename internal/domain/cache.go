package domain

import (
	"context"
	"time"
)

// EventBus provides the pub/sub backbone between the engine and the
// websocket hub, plus a durable stream for the event audit trail.
type EventBus interface {
	// Publish sends a raw payload to a channel.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a read-only channel of payloads for the given
	// channel, closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	// StreamAppend appends a payload to a bounded durable stream.
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// SnapshotCache holds current-state snapshots so reconnecting observers can
// pull the latest ActiveBid and AuctionStatus instead of replaying events.
type SnapshotCache interface {
	// SetActiveBid stores the open bid slot; a nil bid clears the snapshot.
	SetActiveBid(ctx context.Context, bid *ActiveBid) error
	// ActiveBid returns the snapshot, or nil when no bid is open.
	ActiveBid(ctx context.Context) (*ActiveBid, error)
	SetStatus(ctx context.Context, status AuctionStatus) error
	Status(ctx context.Context) (AuctionStatus, error)
}

// RateLimiter enforces request rate limits keyed by client.
type RateLimiter interface {
	// Allow reports whether the caller identified by key may proceed, given
	// a limit of `limit` calls per `window`.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides coarse advisory locks for destructive admin
// operations (pool clears, full resets) so two moderators cannot interleave
// them. Acquire returns ErrLockHeld when the lock is taken.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
