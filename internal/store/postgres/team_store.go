package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// TeamStore implements domain.TeamStore using PostgreSQL.
type TeamStore struct {
	pool *pgxpool.Pool
}

// NewTeamStore creates a new TeamStore backed by the given connection pool.
func NewTeamStore(pool *pgxpool.Pool) *TeamStore {
	return &TeamStore{pool: pool}
}

// Create inserts a new team with its starting budget.
func (s *TeamStore) Create(ctx context.Context, team domain.Team) error {
	const query = `
		INSERT INTO teams (name, budget, created_at)
		VALUES ($1, $2, NOW())`

	if _, err := s.pool.Exec(ctx, query, team.Name, team.Budget.String()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrTeamExists
		}
		return fmt.Errorf("postgres: create team %q: %w", team.Name, err)
	}
	return nil
}

// GetByName returns a team and its acquisitions.
func (s *TeamStore) GetByName(ctx context.Context, name string) (domain.Team, error) {
	const query = `
		SELECT name, budget::text, created_at
		FROM teams
		WHERE name = $1`

	var (
		team   domain.Team
		budget string
	)
	err := s.pool.QueryRow(ctx, query, name).Scan(&team.Name, &budget, &team.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Team{}, domain.ErrTeamNotFound
		}
		return domain.Team{}, fmt.Errorf("postgres: get team %q: %w", name, err)
	}
	if team.Budget, err = domain.MoneyFromString(budget); err != nil {
		return domain.Team{}, err
	}

	if team.Acquisitions, err = s.acquisitions(ctx, name); err != nil {
		return domain.Team{}, err
	}
	return team, nil
}

// List returns all teams with their acquisitions, ordered by creation time.
func (s *TeamStore) List(ctx context.Context) ([]domain.Team, error) {
	const query = `
		SELECT name, budget::text, created_at
		FROM teams
		ORDER BY created_at, name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list teams: %w", err)
	}
	defer rows.Close()

	teams := []domain.Team{}
	for rows.Next() {
		var (
			team   domain.Team
			budget string
		)
		if err := rows.Scan(&team.Name, &budget, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan team: %w", err)
		}
		if team.Budget, err = domain.MoneyFromString(budget); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list teams: %w", err)
	}

	for i := range teams {
		if teams[i].Acquisitions, err = s.acquisitions(ctx, teams[i].Name); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

// Delete removes a team; acquisitions cascade.
func (s *TeamStore) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("postgres: delete team %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

// DebitAndRecord debits the team's budget and appends the acquisition in a
// single transaction. The UPDATE's budget guard makes the check-and-debit
// indivisible: a concurrent commit on the same team serializes on the row
// lock and sees the already-debited budget.
func (s *TeamStore) DebitAndRecord(ctx context.Context, name string, amount domain.Money, acq domain.Acquisition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin debit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const debit = `
		UPDATE teams
		SET budget = budget - $2
		WHERE name = $1 AND budget >= $2`

	tag, err := tx.Exec(ctx, debit, name, amount.String())
	if err != nil {
		return fmt.Errorf("postgres: debit team %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the team is gone or the guard failed; distinguish for the
		// caller.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM teams WHERE name = $1)`, name,
		).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: check team %q: %w", name, err)
		}
		if !exists {
			return domain.ErrTeamNotFound
		}
		return domain.ErrInsufficientFunds
	}

	const record = `
		INSERT INTO acquisitions (team_name, item_id, item_name, price, photo)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := tx.Exec(ctx, record,
		name, acq.ItemID, acq.ItemName, acq.Price.String(), acq.Photo,
	); err != nil {
		return fmt.Errorf("postgres: record acquisition for %q: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit debit tx: %w", err)
	}
	return nil
}

// DeleteAll removes every team and, by cascade, every acquisition.
func (s *TeamStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM teams`); err != nil {
		return fmt.Errorf("postgres: delete all teams: %w", err)
	}
	return nil
}

// acquisitions loads a team's purchases in insertion order.
func (s *TeamStore) acquisitions(ctx context.Context, name string) ([]domain.Acquisition, error) {
	const query = `
		SELECT item_id, item_name, price::text, photo
		FROM acquisitions
		WHERE team_name = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("postgres: list acquisitions for %q: %w", name, err)
	}
	defer rows.Close()

	acqs := []domain.Acquisition{}
	for rows.Next() {
		var (
			acq   domain.Acquisition
			price string
		)
		if err := rows.Scan(&acq.ItemID, &acq.ItemName, &price, &acq.Photo); err != nil {
			return nil, fmt.Errorf("postgres: scan acquisition: %w", err)
		}
		if acq.Price, err = domain.MoneyFromString(price); err != nil {
			return nil, err
		}
		acqs = append(acqs, acq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list acquisitions for %q: %w", name, err)
	}
	return acqs, nil
}

// Compile-time interface check.
var _ domain.TeamStore = (*TeamStore)(nil)
