package inventory

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

type memPools struct {
	mu    sync.Mutex
	pools map[string]domain.Pool
}

func newMemPools(pools ...domain.Pool) *memPools {
	s := &memPools{pools: make(map[string]domain.Pool)}
	for _, p := range pools {
		s.pools[p.ID] = p
	}
	return s
}

func (s *memPools) Create(_ context.Context, pool domain.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[pool.ID] = pool
	return nil
}

func (s *memPools) GetByID(_ context.Context, id string) (domain.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[id]
	if !ok {
		return domain.Pool{}, domain.ErrNotFound
	}
	p.Items = append([]domain.Item(nil), p.Items...)
	return p, nil
}

func (s *memPools) List(context.Context) ([]domain.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		out = append(out, p)
	}
	return out, nil
}

func (s *memPools) ListItems(context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Item
	for _, p := range s.pools {
		out = append(out, p.Items...)
	}
	return out, nil
}

func (s *memPools) MarkItemSold(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pools {
		for i, it := range p.Items {
			if it.ID == itemID {
				if it.Sold {
					return domain.ErrItemSold
				}
				p.Items[i].Sold = true
				s.pools[id] = p
				return nil
			}
		}
	}
	return domain.ErrItemNotFound
}

func (s *memPools) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = make(map[string]domain.Pool)
	return nil
}

type memState struct {
	mu     sync.Mutex
	poolID string
}

func (s *memState) Status(context.Context) (domain.AuctionStatus, error) {
	return domain.AuctionStatus{}, nil
}
func (s *memState) SetEnded(context.Context) error { return nil }

func (s *memState) CurrentPoolID(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poolID == "" {
		return "", domain.ErrNotFound
	}
	return s.poolID, nil
}

func (s *memState) SetCurrentPool(_ context.Context, poolID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolID = poolID
	return nil
}

func (s *memState) ClearCurrentPool(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolID = ""
	return nil
}

func (s *memState) SaveActiveBid(context.Context, domain.ActiveBid) error { return nil }
func (s *memState) ClearActiveBid(context.Context) error                  { return nil }
func (s *memState) ActiveBid(context.Context) (*domain.ActiveBid, error)  { return nil, nil }
func (s *memState) Reset(context.Context) error                           { return nil }

func testPool() domain.Pool {
	return domain.Pool{
		ID:   "pool-1",
		Name: "Batters",
		Items: []domain.Item{
			{ID: "i1", PoolID: "pool-1", Name: "First Pick", BasePrice: domain.MoneyFromFloat(2)},
			{ID: "i2", PoolID: "pool-1", Name: "Second Pick", BasePrice: domain.MoneyFromFloat(2)},
		},
	}
}

func newTestInventory(pools ...domain.Pool) (*Inventory, *memPools, *memState) {
	store := newMemPools(pools...)
	state := &memState{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, state, logger), store, state
}

func TestSetActivePoolPersistsPointer(t *testing.T) {
	inv, _, state := newTestInventory(testPool())
	ctx := context.Background()

	pool, err := inv.SetActivePool(ctx, "pool-1")
	require.NoError(t, err)
	assert.Equal(t, "Batters", pool.Name)

	id, err := state.CurrentPoolID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pool-1", id)

	active := inv.ActivePool()
	require.NotNil(t, active)
	assert.Len(t, active.Items, 2)
}

func TestSetActivePoolUnknown(t *testing.T) {
	inv, _, state := newTestInventory(testPool())

	_, err := inv.SetActivePool(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = state.CurrentPoolID(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindScopedToActivePool(t *testing.T) {
	other := domain.Pool{
		ID:    "pool-2",
		Name:  "Bowlers",
		Items: []domain.Item{{ID: "x1", PoolID: "pool-2", Name: "Other"}},
	}
	inv, _, _ := newTestInventory(testPool(), other)
	ctx := context.Background()

	_, err := inv.Find("i1")
	require.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = inv.SetActivePool(ctx, "pool-1")
	require.NoError(t, err)

	item, err := inv.Find("i1")
	require.NoError(t, err)
	assert.Equal(t, "First Pick", item.Name)

	// Items in other pools are invisible until their pool is activated.
	_, err = inv.Find("x1")
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestMarkSoldIsIdempotentChecked(t *testing.T) {
	inv, store, _ := newTestInventory(testPool())
	ctx := context.Background()

	_, err := inv.SetActivePool(ctx, "pool-1")
	require.NoError(t, err)

	require.NoError(t, inv.MarkSold(ctx, "i1"))
	require.ErrorIs(t, inv.MarkSold(ctx, "i1"), domain.ErrItemSold)
	require.ErrorIs(t, inv.MarkSold(ctx, "missing"), domain.ErrItemNotFound)

	// Both the memory copy and the store carry the flag.
	item, err := inv.Find("i1")
	require.NoError(t, err)
	assert.True(t, item.Sold)
	pool, err := store.GetByID(ctx, "pool-1")
	require.NoError(t, err)
	assert.True(t, pool.Items[0].Sold)
	assert.False(t, pool.Items[1].Sold)
}

func TestRestoreReloadsPointer(t *testing.T) {
	inv, store, state := newTestInventory(testPool())
	ctx := context.Background()

	require.NoError(t, state.SetCurrentPool(ctx, "pool-1"))
	require.NoError(t, inv.Restore(ctx))

	active := inv.ActivePool()
	require.NotNil(t, active)
	assert.Equal(t, "pool-1", active.ID)

	// A dangling pointer is cleared instead of failing boot.
	require.NoError(t, store.DeleteAll(ctx))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inv2 := New(store, state, logger)
	require.NoError(t, inv2.Restore(ctx))
	assert.Nil(t, inv2.ActivePool())
	_, err := state.CurrentPoolID(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestoreWithNoPointerIsNoop(t *testing.T) {
	inv, _, _ := newTestInventory(testPool())
	require.NoError(t, inv.Restore(context.Background()))
	assert.Nil(t, inv.ActivePool())
}

func TestResetDropsActivePool(t *testing.T) {
	inv, _, _ := newTestInventory(testPool())
	ctx := context.Background()

	_, err := inv.SetActivePool(ctx, "pool-1")
	require.NoError(t, err)
	inv.Reset()
	assert.Nil(t, inv.ActivePool())
	_, err = inv.Find("i1")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestActivePoolReturnsCopy(t *testing.T) {
	inv, _, _ := newTestInventory(testPool())
	ctx := context.Background()

	_, err := inv.SetActivePool(ctx, "pool-1")
	require.NoError(t, err)

	snapshot := inv.ActivePool()
	snapshot.Items[0].Sold = true

	item, err := inv.Find("i1")
	require.NoError(t, err)
	assert.False(t, item.Sold)
}
