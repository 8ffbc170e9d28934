package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gospike/domain/core"
	"gospike/domain/ue"
	"gospike/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new analysis run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Create inserts a new analysis run into the database
func (r *runRepository) Create(ctx context.Context, run *ue.Run) error {
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `INSERT INTO ue_runs (
		id, dataset_fingerprint, num_windows, num_significant, result, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6
	)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Fingerprint, run.NumWindows, run.NumSignificant, resultJSON, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetByID retrieves a run, including the full result payload
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*ue.Run, error) {
	query := `SELECT id, dataset_fingerprint, num_windows, num_significant, result, created_at
	FROM ue_runs WHERE id = $1`

	var run ue.Run
	var resultJSON []byte

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Fingerprint, &run.NumWindows, &run.NumSignificant, &resultJSON, &run.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if len(resultJSON) > 0 {
		run.Result = &ue.AnalysisResult{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}

	return &run, nil
}

// List retrieves run summaries newest-first with pagination
func (r *runRepository) List(ctx context.Context, limit, offset int) ([]ue.RunSummary, error) {
	query := `SELECT id, dataset_fingerprint, num_windows, num_significant, result, created_at
	FROM ue_runs
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return r.scanSummaries(rows)
}

// Delete removes a run from the database
func (r *runRepository) Delete(ctx context.Context, id core.RunID) error {
	query := `DELETE FROM ue_runs WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return core.ErrRunNotFound
	}

	return nil
}

// GetByFingerprint retrieves all runs over a given dataset
func (r *runRepository) GetByFingerprint(ctx context.Context, fp core.DatasetFingerprint) ([]ue.RunSummary, error) {
	query := `SELECT id, dataset_fingerprint, num_windows, num_significant, result, created_at
	FROM ue_runs
	WHERE dataset_fingerprint = $1
	ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs by fingerprint: %w", err)
	}
	defer rows.Close()

	return r.scanSummaries(rows)
}

// scanSummaries is a helper function to scan multiple run rows into summaries
func (r *runRepository) scanSummaries(rows *sql.Rows) ([]ue.RunSummary, error) {
	var summaries []ue.RunSummary
	for rows.Next() {
		var run ue.Run
		var resultJSON []byte

		err := rows.Scan(
			&run.ID, &run.Fingerprint, &run.NumWindows, &run.NumSignificant, &resultJSON, &run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if len(resultJSON) > 0 {
			run.Result = &ue.AnalysisResult{}
			if err := json.Unmarshal(resultJSON, run.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal result: %w", err)
			}
		}

		summaries = append(summaries, run.Summary())
	}

	return summaries, nil
}
