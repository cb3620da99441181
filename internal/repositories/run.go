package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spoticamper/internal/models"
	"github.com/desertthunder/spoticamper/internal/shared"
)

// RunRepository records run history in SQLite.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts run, assigning an ID when it has none.
func (r *RunRepository) Create(run *models.Run) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: run %s has no start time", shared.ErrInvalidInput, run.ID)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	query := `
		INSERT INTO runs (id, playlist, albums, registered, searched, found, purchased, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.Playlist,
		run.Albums,
		run.Registered,
		run.Searched,
		run.Found,
		run.Purchased,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepository) Recent(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, playlist, albums, registered, searched, found, purchased, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(
			&run.ID,
			&run.Playlist,
			&run.Albums,
			&run.Registered,
			&run.Searched,
			&run.Found,
			&run.Purchased,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
