package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StoryPlot groups story blocks and carries the derived textCount: the
// live sum of the text lengths of every block under it. The counter is
// maintained by signed deltas on each block mutation, never recomputed.
type StoryPlot struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	TextCount   int       `json:"textCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const plotColumns = `id, project_id, name, description, position, text_count, created_at, updated_at`

func scanPlot(row interface{ Scan(...interface{}) error }) (*StoryPlot, error) {
	var p StoryPlot
	var createdAt, updatedAt int64
	err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Description,
		&p.Position, &p.TextCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// CreatePlot appends a plot after the project's current last position
func (s *Store) CreatePlot(ctx context.Context, projectID int64, name, description string) (*StoryPlot, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var maxPos int
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) FROM story_plots
			 WHERE project_id = ? AND deleted_at IS NULL`, projectID)
		if err := row.Scan(&maxPos); err != nil {
			return fmt.Errorf("max plot position: %w", err)
		}

		now := nowMillis()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO story_plots (project_id, name, description, position, text_count, created_at, updated_at)
			 VALUES (?, ?, ?, ?, 0, ?, ?)`,
			projectID, name, description, maxPos+1, now, now,
		)
		if err != nil {
			return fmt.Errorf("create plot: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("create plot id: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("story plot created", zap.Int64("plot_id", id), zap.Int64("project_id", projectID))
	return s.GetPlot(ctx, id)
}

// GetPlot returns the live plot with the given id, or nil when missing
func (s *Store) GetPlot(ctx context.Context, id int64) (*StoryPlot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+plotColumns+` FROM story_plots WHERE id = ? AND deleted_at IS NULL`, id)
	p, err := scanPlot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plot: %w", err)
	}
	return p, nil
}

// ListPlotsByProject returns a project's live plots in position order
func (s *Store) ListPlotsByProject(ctx context.Context, projectID int64) ([]StoryPlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+plotColumns+` FROM story_plots
		 WHERE project_id = ? AND deleted_at IS NULL
		 ORDER BY position`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	defer rows.Close()

	plots := []StoryPlot{}
	for rows.Next() {
		p, err := scanPlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plot: %w", err)
		}
		plots = append(plots, *p)
	}
	return plots, rows.Err()
}

// UpdatePlot replaces a plot's name and description
func (s *Store) UpdatePlot(ctx context.Context, id int64, name, description string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE story_plots SET name = ?, description = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		name, description, nowMillis(), id,
	)
	if err != nil {
		return false, fmt.Errorf("update plot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update plot rows: %w", err)
	}
	return n > 0, nil
}

// SoftDeletePlot stamps deleted_at on a plot and closes the position gap
// among its project's remaining plots.
func (s *Store) SoftDeletePlot(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var projectID int64
		var position int
		row := tx.QueryRowContext(ctx,
			`SELECT project_id, position FROM story_plots WHERE id = ? AND deleted_at IS NULL`, id)
		if err := row.Scan(&projectID, &position); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("soft-delete plot lookup: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE story_plots SET deleted_at = ?, updated_at = ? WHERE id = ?`,
			nowMillis(), nowMillis(), id); err != nil {
			return fmt.Errorf("soft-delete plot: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE story_plots SET position = position - 1
			 WHERE project_id = ? AND deleted_at IS NULL AND position > ?`,
			projectID, position); err != nil {
			return fmt.Errorf("close plot position gap: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if found {
		s.logger.Info("story plot soft-deleted", zap.Int64("plot_id", id))
	}
	return found, nil
}
