package ledger

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// memTeams is a minimal TeamStore backed by a map with the same guarded
// debit semantics as the postgres store.
type memTeams struct {
	mu    sync.Mutex
	teams map[string]domain.Team
}

func newMemTeams(teams ...domain.Team) *memTeams {
	s := &memTeams{teams: make(map[string]domain.Team)}
	for _, t := range teams {
		s.teams[t.Name] = t
	}
	return s
}

func (s *memTeams) Create(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.Name]; ok {
		return domain.ErrTeamExists
	}
	s.teams[team.Name] = team
	return nil
}

func (s *memTeams) GetByName(_ context.Context, name string) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[name]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return t, nil
}

func (s *memTeams) List(context.Context) ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	return out, nil
}

func (s *memTeams) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[name]; !ok {
		return domain.ErrTeamNotFound
	}
	delete(s.teams, name)
	return nil
}

func (s *memTeams) DebitAndRecord(_ context.Context, name string, amount domain.Money, acq domain.Acquisition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[name]
	if !ok {
		return domain.ErrTeamNotFound
	}
	if t.Budget.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	t.Budget = t.Budget.Sub(amount)
	t.Acquisitions = append(t.Acquisitions, acq)
	s.teams[name] = t
	return nil
}

func (s *memTeams) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = make(map[string]domain.Team)
	return nil
}

func newTestLedger(teams ...domain.Team) (*Ledger, *memTeams) {
	store := newMemTeams(teams...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger), store
}

func acq(itemID string, price float64) domain.Acquisition {
	return domain.Acquisition{
		ItemID:   itemID,
		ItemName: "Item " + itemID,
		Price:    domain.MoneyFromFloat(price),
	}
}

func TestCommitDebitsAndRecords(t *testing.T) {
	l, store := newTestLedger(domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(100)})
	ctx := context.Background()

	require.NoError(t, l.Commit(ctx, "Lions", domain.MoneyFromFloat(2.2), acq("i1", 2.2)))

	team, err := store.GetByName(ctx, "Lions")
	require.NoError(t, err)
	assert.Equal(t, "97.80", team.Budget.String())
	require.Len(t, team.Acquisitions, 1)
	assert.Equal(t, "i1", team.Acquisitions[0].ItemID)
}

func TestCommitExactBudget(t *testing.T) {
	l, store := newTestLedger(domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(5)})
	ctx := context.Background()

	require.NoError(t, l.Commit(ctx, "Lions", domain.MoneyFromFloat(5), acq("i1", 5)))

	team, _ := store.GetByName(ctx, "Lions")
	assert.Equal(t, "0.00", team.Budget.String())
}

func TestCommitInsufficientFundsMutatesNothing(t *testing.T) {
	l, store := newTestLedger(domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(4.99)})
	ctx := context.Background()

	err := l.Commit(ctx, "Lions", domain.MoneyFromFloat(5), acq("i1", 5))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	team, _ := store.GetByName(ctx, "Lions")
	assert.Equal(t, "4.99", team.Budget.String())
	assert.Empty(t, team.Acquisitions)
}

func TestCommitUnknownTeam(t *testing.T) {
	l, _ := newTestLedger()
	err := l.Commit(context.Background(), "Ghosts", domain.MoneyFromFloat(1), acq("i1", 1))
	require.ErrorIs(t, err, domain.ErrTeamNotFound)
}

func TestCommitRejectsNegativeAmount(t *testing.T) {
	l, store := newTestLedger(domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(100)})

	err := l.Commit(context.Background(), "Lions", domain.MoneyFromFloat(-1), acq("i1", -1))
	require.Error(t, err)

	team, _ := store.GetByName(context.Background(), "Lions")
	assert.Equal(t, "100.00", team.Budget.String())
}

func TestConcurrentCommitsNeverOverspend(t *testing.T) {
	// Budget covers exactly 10 commits of 1.00; 50 attempts race for them.
	l, store := newTestLedger(domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(10)})
	ctx := context.Background()

	const attempts = 50
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results <- l.Commit(ctx, "Lions", domain.MoneyFromFloat(1), acq("i", 1))
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, rejected int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrInsufficientFunds):
			rejected++
		}
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, attempts-10, rejected)

	team, _ := store.GetByName(ctx, "Lions")
	assert.Equal(t, "0.00", team.Budget.String())
	assert.Len(t, team.Acquisitions, 10)
}
