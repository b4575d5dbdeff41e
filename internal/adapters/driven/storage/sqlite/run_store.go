package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/casemap/internal/core/domain"
	"github.com/custodia-labs/casemap/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// timeLayout has a fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, started_at, finished_at, status, input_path, output_path,
	documents, n_fine, n_mid, density_clusters, noise_points, failures,
	silhouettes, settings, error`

// SaveRun inserts or updates a run record.
func (s *runStore) SaveRun(ctx context.Context, run *domain.RunRecord) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("%w: run id required", domain.ErrInvalidInput)
	}

	silhouettes, err := json.Marshal(run.Silhouettes)
	if err != nil {
		return fmt.Errorf("marshalling silhouettes: %w", err)
	}

	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(timeLayout)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			status = excluded.status,
			input_path = excluded.input_path,
			output_path = excluded.output_path,
			documents = excluded.documents,
			n_fine = excluded.n_fine,
			n_mid = excluded.n_mid,
			density_clusters = excluded.density_clusters,
			noise_points = excluded.noise_points,
			failures = excluded.failures,
			silhouettes = excluded.silhouettes,
			settings = excluded.settings,
			error = excluded.error
	`,
		run.ID,
		run.StartedAt.UTC().Format(timeLayout),
		finished,
		string(run.Status),
		nullString(run.InputPath),
		nullString(run.OutputPath),
		run.Documents, run.NFine, run.NMid,
		run.DensityClusters, run.NoisePoints, run.Failures,
		string(silhouettes),
		settingsOrEmpty(run.Settings),
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *runStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run record.
func (s *runStore) DeleteRun(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var run domain.RunRecord
	var started, status, silhouettes, settings string
	var finished, input, output, errText sql.NullString

	err := row.Scan(&run.ID, &started, &finished, &status, &input, &output,
		&run.Documents, &run.NFine, &run.NMid, &run.DensityClusters, &run.NoisePoints, &run.Failures,
		&silhouettes, &settings, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.StartedAt = parseTime(started)
	if finished.Valid && finished.String != "" {
		t := parseTime(finished.String)
		run.FinishedAt = &t
	}
	run.InputPath = input.String
	run.OutputPath = output.String
	run.Settings = settings
	run.Error = errText.String

	if err := json.Unmarshal([]byte(silhouettes), &run.Silhouettes); err != nil {
		return nil, fmt.Errorf("%w: run silhouettes: %v", domain.ErrSerialization, err)
	}
	return &run, nil
}

// parseTime parses a stored timestamp, returning zero time when invalid.
func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func settingsOrEmpty(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
