package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cricketattax/auctioneer/internal/domain"
)

// Narrow store interfaces required by the archiver. The Postgres stores
// satisfy these implicitly through their List methods.

// SoldArchiveStore provides read access to the sale history.
type SoldArchiveStore interface {
	List(ctx context.Context) ([]domain.SoldRecord, error)
}

// TeamArchiveStore provides read access to final team standings.
type TeamArchiveStore interface {
	List(ctx context.Context) ([]domain.Team, error)
}

// ResultsArchiver implements domain.Archiver by serializing the sale history
// and final team standings to JSONL and uploading the snapshot to S3. It runs
// once, when the auction is ended.
type ResultsArchiver struct {
	writer domain.BlobWriter
	sold   SoldArchiveStore
	teams  TeamArchiveStore
}

// NewResultsArchiver creates a new ResultsArchiver.
func NewResultsArchiver(writer domain.BlobWriter, sold SoldArchiveStore, teams TeamArchiveStore) *ResultsArchiver {
	return &ResultsArchiver{
		writer: writer,
		sold:   sold,
		teams:  teams,
	}
}

// archiveLine is one JSONL record in the results snapshot. Kind is either
// "sale" or "team".
type archiveLine struct {
	Kind string             `json:"kind"`
	Sale *domain.SoldRecord `json:"sale,omitempty"`
	Team *domain.Team       `json:"team,omitempty"`
}

// ArchiveResults uploads the sale history followed by the team standings as
// a single JSONL object and returns the object path written.
func (a *ResultsArchiver) ArchiveResults(ctx context.Context) (string, error) {
	sold, err := a.sold.List(ctx)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive results sales query: %w", err)
	}
	teams, err := a.teams.List(ctx)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive results teams query: %w", err)
	}

	lines := make([]archiveLine, 0, len(sold)+len(teams))
	for i := range sold {
		lines = append(lines, archiveLine{Kind: "sale", Sale: &sold[i]})
	}
	for i := range teams {
		lines = append(lines, archiveLine{Kind: "team", Team: &teams[i]})
	}

	buf, err := marshalJSONL(lines)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive results marshal: %w", err)
	}

	path := fmt.Sprintf("archive/results/%s.jsonl", time.Now().UTC().Format("2006-01-02T15-04-05"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive results upload: %w", err)
	}

	return path, nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON. Each
// element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ResultsArchiver)(nil)
