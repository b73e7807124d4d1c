package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nodal-works/ferret/backend/internal/util"
)

// ErrNotFound is returned when an investigation id does not exist.
var ErrNotFound = errors.New("investigation not found")

// Investigation status values. Transitions are one-way:
// pending -> running -> completed | failed.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Investigation is one stored investigation run. ReportKey points at the full
// report artifact in object storage; only summary columns live in Postgres.
type Investigation struct {
	ID          string     `json:"id"`
	Query       string     `json:"query"`
	Status      string     `json:"status"`
	ReportKey   string     `json:"report_key,omitempty"`
	Error       string     `json:"error,omitempty"`
	ResultCount int        `json:"result_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SimilarInvestigation is a similarity-search hit.
type SimilarInvestigation struct {
	Investigation
	Similarity float64 `json:"similarity"`
}

// Store wraps the connection pool with investigation queries.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const investigationColumns = `id, query, status,
	coalesce(report_key, ''), coalesce(error, ''), result_count,
	created_at, updated_at, completed_at`

func scanInvestigation(row pgx.Row) (Investigation, error) {
	var inv Investigation
	err := row.Scan(
		&inv.ID, &inv.Query, &inv.Status,
		&inv.ReportKey, &inv.Error, &inv.ResultCount,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return inv, ErrNotFound
	}
	return inv, err
}

// CreateInvestigation inserts a new pending investigation.
func (s *Store) CreateInvestigation(ctx context.Context, id string, query string) (Investigation, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO investigations (id, query, status)
		VALUES ($1, $2, $3)
		RETURNING `+investigationColumns,
		id, util.SanitizePostgresText(query), StatusPending,
	)
	return scanInvestigation(row)
}

// GetInvestigation fetches one investigation by id.
func (s *Store) GetInvestigation(ctx context.Context, id string) (Investigation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+investigationColumns+`
		FROM investigations
		WHERE id = $1`,
		id,
	)
	return scanInvestigation(row)
}

// ListInvestigations returns investigations newest first.
func (s *Store) ListInvestigations(ctx context.Context, limit int, offset int) ([]Investigation, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+investigationColumns+`
		FROM investigations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Investigation
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// DeleteInvestigation removes an investigation row.
func (s *Store) DeleteInvestigation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM investigations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkRunning transitions a pending investigation to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE investigations
		SET status = $2, updated_at = now()
		WHERE id = $1`,
		id, StatusRunning,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCompleted records the report location, result count and the query
// embedding used for similarity search. A nil embedding leaves the column
// NULL and the row simply never matches similarity queries.
func (s *Store) MarkCompleted(
	ctx context.Context,
	id string,
	reportKey string,
	resultCount int,
	embedding []float32,
) error {
	var vec *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE investigations
		SET status = $2, report_key = $3, result_count = $4, embedding = $5,
			updated_at = now(), completed_at = now()
		WHERE id = $1`,
		id, StatusCompleted, reportKey, resultCount, vec,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure.
func (s *Store) MarkFailed(ctx context.Context, id string, cause string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE investigations
		SET status = $2, error = $3, updated_at = now(), completed_at = now()
		WHERE id = $1`,
		id, StatusFailed, util.SanitizePostgresText(cause),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindSimilar returns completed investigations whose query embedding is
// closest to the given vector, excluding the investigation itself.
func (s *Store) FindSimilar(
	ctx context.Context,
	excludeID string,
	embedding []float32,
	limit int,
) ([]SimilarInvestigation, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+investigationColumns+`,
			1 - (embedding <=> $2) AS similarity
		FROM investigations
		WHERE id <> $1
		  AND status = 'completed'
		  AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3`,
		excludeID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SimilarInvestigation
	for rows.Next() {
		var sim SimilarInvestigation
		err := rows.Scan(
			&sim.ID, &sim.Query, &sim.Status,
			&sim.ReportKey, &sim.Error, &sim.ResultCount,
			&sim.CreatedAt, &sim.UpdatedAt, &sim.CompletedAt,
			&sim.Similarity,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, sim)
	}
	return out, rows.Err()
}

// GetEmbedding fetches the stored query embedding for an investigation.
func (s *Store) GetEmbedding(ctx context.Context, id string) ([]float32, error) {
	var vec *pgvector.Vector
	err := s.pool.QueryRow(ctx, `
		SELECT embedding FROM investigations WHERE id = $1`,
		id,
	).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, nil
	}
	return vec.Slice(), nil
}
