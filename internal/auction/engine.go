package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// ItemCatalog is the inventory surface the engine needs: item lookup within
// the active pool, the single sold-flag mutation path, and active-pool
// management.
type ItemCatalog interface {
	Find(itemID string) (domain.Item, error)
	MarkSold(ctx context.Context, itemID string) error
	SetActivePool(ctx context.Context, poolID string) (domain.Pool, error)
	Reset()
}

// FundsLedger commits the financial side of a sale: an atomic
// debit-and-record against the winning team.
type FundsLedger interface {
	Commit(ctx context.Context, team string, amount domain.Money, acq domain.Acquisition) error
}

// Notifier announces noteworthy auction events to operators. Satisfied by
// notify.Notifier; may be nil.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Policy    Policy
	Catalog   ItemCatalog
	Ledger    FundsLedger
	Teams     domain.TeamStore
	Sold      domain.SoldRecordStore
	State     domain.StateStore
	Snapshots domain.SnapshotCache
	Broadcast *Broadcaster
	Notifier  Notifier
	Archiver  domain.Archiver
	Logger    *slog.Logger
}

// Engine owns the single open bid slot. One mutex serializes every
// read-validate-mutate sequence on the slot, so accepted bids form a total
// order: each accepted raise applies the policy to exactly the amount that
// attempt observed. The in-memory slot is authoritative; the durable
// checkpoint is written while the lock is held, before the in-memory
// transition commits.
type Engine struct {
	mu     sync.Mutex
	active *domain.ActiveBid
	ended  bool

	policy    Policy
	catalog   ItemCatalog
	ledger    FundsLedger
	teams     domain.TeamStore
	sold      domain.SoldRecordStore
	state     domain.StateStore
	snaps     domain.SnapshotCache
	broadcast *Broadcaster
	notifier  Notifier
	archiver  domain.Archiver
	logger    *slog.Logger
}

// NewEngine creates an Engine. Call Restore before serving traffic so the
// slot and ended flag survive process restarts.
func NewEngine(d Deps) *Engine {
	return &Engine{
		policy:    d.Policy,
		catalog:   d.Catalog,
		ledger:    d.Ledger,
		teams:     d.Teams,
		sold:      d.Sold,
		state:     d.State,
		snaps:     d.Snapshots,
		broadcast: d.Broadcast,
		notifier:  d.Notifier,
		archiver:  d.Archiver,
		logger:    d.Logger.With(slog.String("component", "engine")),
	}
}

// Restore loads the auction status and any checkpointed open bid from the
// durable store, typically after a restart mid-auction.
func (e *Engine) Restore(ctx context.Context) error {
	status, err := e.state.Status(ctx)
	if err != nil {
		return fmt.Errorf("auction: restore status: %w", err)
	}

	bid, err := e.state.ActiveBid(ctx)
	if err != nil {
		return fmt.Errorf("auction: restore active bid: %w", err)
	}

	e.mu.Lock()
	e.ended = status.Ended
	e.active = bid
	e.mu.Unlock()

	e.refreshSnapshots(ctx)

	if bid != nil {
		e.logger.InfoContext(ctx, "restored open bid",
			slog.String("item_id", bid.ItemID),
			slog.String("bid", bid.Amount.String()),
			slog.String("leader", bid.Leader),
		)
	}
	return nil
}

// Open starts bidding on an item. The slot must be empty and the item must
// be an unsold member of the active pool. The opening amount is the greater
// of the requested base price and the item's own base price.
func (e *Engine) Open(ctx context.Context, itemID string, basePrice domain.Money) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		return domain.ErrAuctionEnded
	}
	if e.active != nil {
		return domain.ErrBidAlreadyOpen
	}

	item, err := e.catalog.Find(itemID)
	if err != nil {
		return err
	}
	if item.Sold {
		return domain.ErrItemSold
	}

	opening := basePrice
	if opening.LessThan(item.BasePrice) {
		opening = item.BasePrice
	}

	bid := domain.ActiveBid{ItemID: itemID, Amount: opening}
	if err := e.state.SaveActiveBid(ctx, bid); err != nil {
		return fmt.Errorf("auction: checkpoint open: %w", err)
	}
	e.active = &bid

	e.setBidSnapshot(ctx)
	e.broadcast.Publish(ctx, domain.ChannelBid, domain.Event{
		Type:    domain.EventBidOpened,
		Payload: e.bidPayloadLocked(),
	})

	e.logger.InfoContext(ctx, "bid opened",
		slog.String("item_id", itemID),
		slog.String("item", item.Name),
		slog.String("bid", opening.String()),
	)
	return nil
}

// Bid raises the open bid on behalf of a team. The raise is computed by the
// increment policy from the amount this attempt observes under the lock, so
// two concurrent attempts can never both apply the same pre-raise amount.
// Rejections leave the slot untouched and are reported to the caller only.
func (e *Engine) Bid(ctx context.Context, itemID, teamName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.ItemID != itemID {
		return domain.ErrNoActiveBid
	}

	team, err := e.teams.GetByName(ctx, teamName)
	if err != nil {
		return err
	}

	next := e.policy.Next(e.active.Amount)
	if team.Budget.LessThan(next) {
		return domain.ErrInsufficientFunds
	}

	bid := domain.ActiveBid{ItemID: itemID, Amount: next, Leader: teamName}
	if err := e.state.SaveActiveBid(ctx, bid); err != nil {
		return fmt.Errorf("auction: checkpoint bid: %w", err)
	}
	e.active = &bid

	e.setBidSnapshot(ctx)
	e.broadcast.Publish(ctx, domain.ChannelBid, domain.Event{
		Type:    domain.EventBidUpdated,
		Payload: e.bidPayloadLocked(),
	})

	e.logger.InfoContext(ctx, "bid raised",
		slog.String("item_id", itemID),
		slog.String("bid", next.String()),
		slog.String("leader", teamName),
	)
	return nil
}

// Close ends bidding on the open item. With no leader the item goes unsold;
// with a leader the ledger commit, sold flag, and audit record are applied
// and the sale is broadcast. Either way the slot is cleared and the engine
// returns to idle.
func (e *Engine) Close(ctx context.Context, itemID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || e.active.ItemID != itemID {
		return domain.ErrNoActiveBid
	}

	item, err := e.catalog.Find(itemID)
	if err != nil {
		return err
	}

	if e.active.Leader == "" {
		if err := e.clearSlotLocked(ctx); err != nil {
			return err
		}
		e.broadcast.Publish(ctx, domain.ChannelBid, domain.Event{
			Type: domain.EventBidUnsold,
			Payload: domain.UnsoldNotice{
				ItemID:  itemID,
				Message: fmt.Sprintf("%s went unsold", item.Name),
			},
		})
		e.logger.InfoContext(ctx, "item unsold", slog.String("item", item.Name))
		return nil
	}

	leader := e.active.Leader
	finalPrice := e.active.Amount
	acq := domain.Acquisition{
		ItemID:   itemID,
		ItemName: item.Name,
		Price:    finalPrice,
		Photo:    item.Photo,
	}

	// The budget was checked when the leading bid was accepted, but it may
	// have been invalidated since (for example by an operator edit). A
	// failed commit must not leave the slot dangling half-closed: reject
	// the close with the slot intact for operator intervention.
	if err := e.ledger.Commit(ctx, leader, finalPrice, acq); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) || errors.Is(err, domain.ErrTeamNotFound) {
			return fmt.Errorf("%w: commit for %q failed: %v", domain.ErrConsistency, leader, err)
		}
		return fmt.Errorf("auction: ledger commit: %w", err)
	}

	// The debit is durable from here on. Follow-up failures are logged for
	// operator review rather than aborting the sale.
	if err := e.catalog.MarkSold(ctx, itemID); err != nil && !errors.Is(err, domain.ErrItemSold) {
		e.logger.ErrorContext(ctx, "mark sold failed after ledger commit; needs operator review",
			slog.String("item_id", itemID),
			slog.String("team", leader),
			slog.String("error", err.Error()),
		)
	}
	if err := e.sold.Append(ctx, domain.SoldRecord{
		ItemID:     itemID,
		ItemName:   item.Name,
		Team:       leader,
		FinalPrice: finalPrice,
		Photo:      item.Photo,
	}); err != nil {
		e.logger.ErrorContext(ctx, "sold record append failed after ledger commit; needs operator review",
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}

	if err := e.clearSlotLocked(ctx); err != nil {
		return err
	}

	e.broadcast.Publish(ctx, domain.ChannelBid, domain.Event{
		Type: domain.EventBidClosed,
		Payload: domain.SaleOutcome{
			ItemID:     itemID,
			Team:       &leader,
			FinalPrice: &finalPrice,
			ItemName:   &item.Name,
			Photo:      &item.Photo,
		},
	})
	e.publishTeamUpdateLocked(ctx)

	e.logger.InfoContext(ctx, "item sold",
		slog.String("item", item.Name),
		slog.String("team", leader),
		slog.String("final_price", finalPrice.String()),
	)
	e.notify(ctx, "sale", "Item sold",
		fmt.Sprintf("%s goes to %s for %s", item.Name, leader, finalPrice))
	return nil
}

// RemoveTeam deletes a team along with its sale records. If the team leads
// the open bid, the bid is forcibly ended with a null outcome; the item
// stays unsold and can be reopened by the moderator.
func (e *Engine) RemoveTeam(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.teams.Delete(ctx, name); err != nil {
		return err
	}
	if err := e.sold.DeleteByTeam(ctx, name); err != nil {
		return fmt.Errorf("auction: delete sold records for %q: %w", name, err)
	}

	if e.active != nil && e.active.Leader == name {
		itemID := e.active.ItemID
		if err := e.clearSlotLocked(ctx); err != nil {
			return err
		}
		e.broadcast.Publish(ctx, domain.ChannelBid, domain.Event{
			Type:    domain.EventBidEnded,
			Payload: domain.SaleOutcome{ItemID: itemID},
		})
		e.logger.InfoContext(ctx, "open bid force-ended, leader removed",
			slog.String("item_id", itemID),
			slog.String("team", name),
		)
	}

	e.publishTeamUpdateLocked(ctx)
	return nil
}

// SetCurrentPool switches the active pool and broadcasts the change.
func (e *Engine) SetCurrentPool(ctx context.Context, poolID string) (domain.Pool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return domain.Pool{}, domain.ErrBidAlreadyOpen
	}

	pool, err := e.catalog.SetActivePool(ctx, poolID)
	if err != nil {
		return domain.Pool{}, err
	}

	e.broadcast.Publish(ctx, domain.ChannelPools, domain.Event{
		Type:    domain.EventCurrentPoolUpdate,
		Payload: pool,
	})
	e.logger.InfoContext(ctx, "current pool set",
		slog.String("pool_id", pool.ID),
		slog.String("pool", pool.Name),
	)
	return pool, nil
}

// EndAuction flips the monotonic ended flag, broadcasts auctionEnded, and
// archives the final results when an archiver is configured. Calling it
// again after the auction has ended is a no-op.
func (e *Engine) EndAuction(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ended {
		return nil
	}
	if err := e.state.SetEnded(ctx); err != nil {
		return fmt.Errorf("auction: set ended: %w", err)
	}
	e.ended = true

	if err := e.snaps.SetStatus(ctx, domain.AuctionStatus{Ended: true}); err != nil {
		e.logger.WarnContext(ctx, "status snapshot failed", slog.String("error", err.Error()))
	}
	e.broadcast.Publish(ctx, domain.ChannelStatus, domain.Event{Type: domain.EventAuctionEnded})
	e.logger.InfoContext(ctx, "auction ended")
	e.notify(ctx, "auction_end", "Auction ended", "Bidding is closed for all items")

	if e.archiver != nil {
		path, err := e.archiver.ArchiveResults(ctx)
		if err != nil {
			e.logger.ErrorContext(ctx, "results archive failed", slog.String("error", err.Error()))
		} else {
			e.logger.InfoContext(ctx, "results archived", slog.String("path", path))
		}
	}
	return nil
}

// Reset returns the engine to its initial state: slot empty, not ended,
// no active pool. Used by the clear-all-data admin path; the caller is
// responsible for purging the stores.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.state.Reset(ctx); err != nil {
		return fmt.Errorf("auction: reset state: %w", err)
	}
	e.active = nil
	e.ended = false
	e.catalog.Reset()
	e.refreshSnapshotsLocked(ctx)
	return nil
}

// ActiveBid returns a copy of the open bid slot, or nil when idle.
func (e *Engine) ActiveBid() *domain.ActiveBid {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	bid := *e.active
	return &bid
}

// Status returns the auction status.
func (e *Engine) Status() domain.AuctionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.AuctionStatus{Ended: e.ended}
}

// PublishTeamUpdate broadcasts a refreshed team-list snapshot. Exposed for
// the REST handlers that create teams.
func (e *Engine) PublishTeamUpdate(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publishTeamUpdateLocked(ctx)
}

// Broadcaster exposes the engine's broadcaster for handlers that emit
// non-engine events (pool uploads, clears).
func (e *Engine) Broadcaster() *Broadcaster {
	return e.broadcast
}

// ---------------------------------------------------------------------------
// internals (callers hold e.mu)
// ---------------------------------------------------------------------------

// clearSlotLocked clears the durable checkpoint, then the in-memory slot and
// the reconnect snapshot.
func (e *Engine) clearSlotLocked(ctx context.Context) error {
	if err := e.state.ClearActiveBid(ctx); err != nil {
		return fmt.Errorf("auction: clear checkpoint: %w", err)
	}
	e.active = nil
	e.setBidSnapshot(ctx)
	return nil
}

// bidPayloadLocked builds the BidSnapshot payload for the current slot.
func (e *Engine) bidPayloadLocked() domain.BidSnapshot {
	snap := domain.BidSnapshot{
		ItemID: e.active.ItemID,
		Bid:    e.active.Amount,
	}
	if e.active.Leader != "" {
		leader := e.active.Leader
		snap.Leader = &leader
	}
	return snap
}

func (e *Engine) publishTeamUpdateLocked(ctx context.Context) {
	teams, err := e.teams.List(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "team list for broadcast failed", slog.String("error", err.Error()))
		return
	}
	e.broadcast.Publish(ctx, domain.ChannelTeams, domain.Event{
		Type:    domain.EventTeamUpdate,
		Payload: teams,
	})
}

func (e *Engine) setBidSnapshot(ctx context.Context) {
	if err := e.snaps.SetActiveBid(ctx, e.active); err != nil {
		e.logger.WarnContext(ctx, "bid snapshot failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) refreshSnapshots(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshSnapshotsLocked(ctx)
}

func (e *Engine) refreshSnapshotsLocked(ctx context.Context) {
	e.setBidSnapshot(ctx)
	if err := e.snaps.SetStatus(ctx, domain.AuctionStatus{Ended: e.ended}); err != nil {
		e.logger.WarnContext(ctx, "status snapshot failed", slog.String("error", err.Error()))
	}
}

func (e *Engine) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
