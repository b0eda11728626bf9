package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cricketattax/auctioneer/internal/domain"
)

type memTeams struct {
	mu    sync.Mutex
	teams map[string]domain.Team
}

func newMemTeams() *memTeams {
	return &memTeams{teams: make(map[string]domain.Team)}
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

func (s *memTeams) DebitAndRecord(context.Context, string, domain.Money, domain.Acquisition) error {
	return nil
}

func (s *memTeams) DeleteAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = make(map[string]domain.Team)
	return nil
}

// stubCoordinator records engine calls made by the handler.
type stubCoordinator struct {
	mu        sync.Mutex
	removed   []string
	published int
	removeErr error
	teams     *memTeams
}

func (c *stubCoordinator) RemoveTeam(ctx context.Context, name string) error {
	c.mu.Lock()
	c.removed = append(c.removed, name)
	c.mu.Unlock()
	if c.removeErr != nil {
		return c.removeErr
	}
	return c.teams.Delete(ctx, name)
}

func (c *stubCoordinator) PublishTeamUpdate(context.Context) {
	c.mu.Lock()
	c.published++
	c.mu.Unlock()
}

func newTeamHarness() (*TeamHandler, *memTeams, *stubCoordinator) {
	store := newMemTeams()
	coord := &stubCoordinator{teams: store}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewTeamHandler(store, coord, domain.MoneyFromFloat(100), logger)
	return h, store, coord
}

func TestCreateTeamAppliesDefaultBudget(t *testing.T) {
	h, store, coord := newTeamHarness()

	req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(`{"name":"Lions"}`))
	rec := httptest.NewRecorder()
	h.CreateTeam(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	team, err := store.GetByName(context.Background(), "Lions")
	require.NoError(t, err)
	assert.Equal(t, "100.00", team.Budget.String())
	assert.Equal(t, 1, coord.published)
}

func TestCreateTeamExplicitBudget(t *testing.T) {
	h, store, _ := newTeamHarness()

	body := `{"name":"Tigers","budget":250.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateTeam(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	team, _ := store.GetByName(context.Background(), "Tigers")
	assert.Equal(t, "250.50", team.Budget.String())
}

func TestCreateTeamValidation(t *testing.T) {
	h, _, coord := newTeamHarness()

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"budget":100}`},
		{"empty name", `{"name":""}`},
		{"name too long", `{"name":"` + strings.Repeat("x", 65) + `"}`},
		{"negative budget", `{"name":"Lions","budget":-5}`},
		{"not json", `name=Lions`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.CreateTeam(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Zero(t, coord.published)
}

func TestCreateTeamDuplicateConflicts(t *testing.T) {
	h, _, _ := newTeamHarness()

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/teams", strings.NewReader(`{"name":"Lions"}`))
		rec := httptest.NewRecorder()
		h.CreateTeam(rec, req)
		require.Equal(t, want, rec.Code, "attempt %d", i)
	}
}

func TestListTeams(t *testing.T) {
	h, store, _ := newTeamHarness()
	require.NoError(t, store.Create(context.Background(),
		domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(97.8)}))

	req := httptest.NewRequest(http.MethodGet, "/api/teams", nil)
	rec := httptest.NewRecorder()
	h.ListTeams(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var teams []domain.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	require.Len(t, teams, 1)
	assert.Equal(t, "Lions", teams[0].Name)
	assert.Equal(t, "97.80", teams[0].Budget.String())
}

func TestRemoveTeamRoutesThroughEngine(t *testing.T) {
	h, store, coord := newTeamHarness()
	require.NoError(t, store.Create(context.Background(),
		domain.Team{Name: "Lions", Budget: domain.MoneyFromFloat(100)}))

	req := httptest.NewRequest(http.MethodPost, "/api/remove-team", strings.NewReader(`{"name":"Lions"}`))
	rec := httptest.NewRecorder()
	h.RemoveTeam(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Lions"}, coord.removed)
	_, err := store.GetByName(context.Background(), "Lions")
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
}

func TestRemoveTeamNotFound(t *testing.T) {
	h, _, coord := newTeamHarness()
	coord.removeErr = domain.ErrTeamNotFound

	req := httptest.NewRequest(http.MethodPost, "/api/remove-team", strings.NewReader(`{"name":"Ghosts"}`))
	rec := httptest.NewRecorder()
	h.RemoveTeam(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "TeamNotFound", body["kind"])
}
