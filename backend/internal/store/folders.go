package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// UniverseFolder organizes world-building files within a project
type UniverseFolder struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"projectId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const folderColumns = `id, project_id, name, created_at, updated_at`

func scanFolder(row interface{ Scan(...interface{}) error }) (*UniverseFolder, error) {
	var f UniverseFolder
	var createdAt, updatedAt int64
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(createdAt)
	f.UpdatedAt = fromMillis(updatedAt)
	return &f, nil
}

// CreateFolder inserts a universe folder
func (s *Store) CreateFolder(ctx context.Context, projectID int64, name string) (*UniverseFolder, error) {
	now := nowMillis()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO universe_folders (project_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		projectID, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create folder id: %w", err)
	}

	s.logger.Info("universe folder created", zap.Int64("folder_id", id))
	return s.GetFolder(ctx, id)
}

// GetFolder returns the live folder with the given id, or nil when missing
func (s *Store) GetFolder(ctx context.Context, id int64) (*UniverseFolder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+folderColumns+` FROM universe_folders WHERE id = ? AND deleted_at IS NULL`, id)
	f, err := scanFolder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	return f, nil
}

// ListFoldersByProject returns a project's live folders
func (s *Store) ListFoldersByProject(ctx context.Context, projectID int64) ([]UniverseFolder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+folderColumns+` FROM universe_folders
		 WHERE project_id = ? AND deleted_at IS NULL
		 ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []UniverseFolder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *f)
	}
	return folders, rows.Err()
}

// SoftDeleteFolder stamps deleted_at on a live folder
func (s *Store) SoftDeleteFolder(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE universe_folders SET deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		nowMillis(), nowMillis(), id,
	)
	if err != nil {
		return false, fmt.Errorf("soft-delete folder: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft-delete folder rows: %w", err)
	}
	return n > 0, nil
}
