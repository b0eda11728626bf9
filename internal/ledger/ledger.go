// Package ledger enforces a team's spending constraints and commits the
// financial side effect of a sale.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// Ledger serializes budget commits per team. The store performs the
// debit-and-record as one guarded transaction; the per-team mutex on top
// keeps a commit from interleaving with any other budget mutation on the
// same team issued through this process.
type Ledger struct {
	teams  domain.TeamStore
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Ledger over the given team store.
func New(teams domain.TeamStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		teams:  teams,
		logger: logger.With(slog.String("component", "ledger")),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Commit atomically checks that the team's budget covers amount, debits it,
// and appends the acquisition. On a failed guard it returns
// ErrInsufficientFunds and mutates nothing. Amounts are already fixed to two
// decimals by the Money type.
func (l *Ledger) Commit(ctx context.Context, team string, amount domain.Money, acq domain.Acquisition) error {
	if amount.IsNegative() {
		return fmt.Errorf("ledger: negative commit amount %s for %q", amount, team)
	}

	lock := l.teamLock(team)
	lock.Lock()
	defer lock.Unlock()

	if err := l.teams.DebitAndRecord(ctx, team, amount, acq); err != nil {
		return fmt.Errorf("ledger: commit %s against %q: %w", amount, team, err)
	}

	l.logger.InfoContext(ctx, "budget committed",
		slog.String("team", team),
		slog.String("amount", amount.String()),
		slog.String("item", acq.ItemName),
	)
	return nil
}

// teamLock returns the mutex guarding the given team's budget, creating it
// on first use.
func (l *Ledger) teamLock(team string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[team]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[team] = lock
	}
	return lock
}
