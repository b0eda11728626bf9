package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// TeamCoordinator is the slice of the engine the team handler needs: removal
// runs through the engine so a removed leader force-ends the open bid.
type TeamCoordinator interface {
	RemoveTeam(ctx context.Context, name string) error
	PublishTeamUpdate(ctx context.Context)
}

// TeamHandler serves team registration, listing, and removal.
type TeamHandler struct {
	teams         domain.TeamStore
	engine        TeamCoordinator
	defaultBudget domain.Money
	logger        *slog.Logger
}

// NewTeamHandler creates a TeamHandler. Teams registered without an explicit
// budget start with defaultBudget.
func NewTeamHandler(teams domain.TeamStore, engine TeamCoordinator, defaultBudget domain.Money, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teams:         teams,
		engine:        engine,
		defaultBudget: defaultBudget,
		logger:        logHandler(logger, "team"),
	}
}

// ListTeams returns all teams with their budgets and acquisitions.
// GET /api/teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list teams failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// createTeamRequest is the payload for team registration. Budget is optional;
// when omitted or zero the configured default applies.
type createTeamRequest struct {
	Name   string  `json:"name" validate:"required,min=1,max=64"`
	Budget float64 `json:"budget" validate:"omitempty,gt=0"`
}

// CreateTeam registers a new team and broadcasts the refreshed team list.
// POST /api/teams
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget := h.defaultBudget
	if req.Budget > 0 {
		budget = domain.MoneyFromFloat(req.Budget)
	}

	team := domain.Team{Name: req.Name, Budget: budget}
	if err := h.teams.Create(r.Context(), team); err != nil {
		h.logger.WarnContext(r.Context(), "create team failed",
			slog.String("team", req.Name),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	h.engine.PublishTeamUpdate(r.Context())
	h.logger.InfoContext(r.Context(), "team created",
		slog.String("team", req.Name),
		slog.String("budget", budget.String()),
	)
	writeJSON(w, http.StatusCreated, team)
}

// removeTeamRequest is the payload for team removal.
type removeTeamRequest struct {
	Name string `json:"name" validate:"required"`
}

// RemoveTeam deletes a team and its sale records. A team leading the open
// bid force-ends that bid with a null outcome.
// POST /api/remove-team
func (h *TeamHandler) RemoveTeam(w http.ResponseWriter, r *http.Request) {
	var req removeTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engine.RemoveTeam(r.Context(), req.Name); err != nil {
		h.logger.WarnContext(r.Context(), "remove team failed",
			slog.String("team", req.Name),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "team removed", slog.String("team", req.Name))
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
