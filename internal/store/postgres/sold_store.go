package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// SoldRecordStore implements domain.SoldRecordStore using PostgreSQL.
type SoldRecordStore struct {
	pool *pgxpool.Pool
}

// NewSoldRecordStore creates a new SoldRecordStore backed by the given pool.
func NewSoldRecordStore(pool *pgxpool.Pool) *SoldRecordStore {
	return &SoldRecordStore{pool: pool}
}

// Append inserts a sale audit record.
func (s *SoldRecordStore) Append(ctx context.Context, rec domain.SoldRecord) error {
	const query = `
		INSERT INTO sold_records (item_id, item_name, team_name, final_price, photo)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.pool.Exec(ctx, query,
		rec.ItemID, rec.ItemName, rec.Team, rec.FinalPrice.String(), rec.Photo,
	); err != nil {
		return fmt.Errorf("postgres: append sold record %q: %w", rec.ItemName, err)
	}
	return nil
}

// List returns the sale history in insertion order.
func (s *SoldRecordStore) List(ctx context.Context) ([]domain.SoldRecord, error) {
	const query = `
		SELECT item_id, item_name, team_name, final_price::text, photo, created_at
		FROM sold_records
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sold records: %w", err)
	}
	defer rows.Close()

	recs := []domain.SoldRecord{}
	for rows.Next() {
		var (
			rec   domain.SoldRecord
			price string
		)
		if err := rows.Scan(&rec.ItemID, &rec.ItemName, &rec.Team, &price, &rec.Photo, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan sold record: %w", err)
		}
		if rec.FinalPrice, err = domain.MoneyFromString(price); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sold records: %w", err)
	}
	return recs, nil
}

// DeleteByTeam removes the sale records of a removed team.
func (s *SoldRecordStore) DeleteByTeam(ctx context.Context, team string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM sold_records WHERE team_name = $1`, team,
	); err != nil {
		return fmt.Errorf("postgres: delete sold records for %q: %w", team, err)
	}
	return nil
}

// DeleteAll clears the sale history.
func (s *SoldRecordStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM sold_records`); err != nil {
		return fmt.Errorf("postgres: delete all sold records: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SoldRecordStore = (*SoldRecordStore)(nil)
