package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CastingRecord is the authoritative relational record for a character.
// Its graph twin in internal/graph shares the same id.
type CastingRecord struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int64     `json:"age"`
	Gender    string    `json:"gender"`
	Role      string    `json:"role"`
	Detail    string    `json:"detail"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CoordX    int       `json:"coordX"`
	CoordY    int       `json:"coordY"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const castingColumns = `id, name, age, gender, role, detail, image_url, coord_x, coord_y, created_at, updated_at`

func scanCasting(row interface{ Scan(...interface{}) error }) (*CastingRecord, error) {
	var rec CastingRecord
	var createdAt, updatedAt int64
	err := row.Scan(&rec.ID, &rec.Name, &rec.Age, &rec.Gender, &rec.Role,
		&rec.Detail, &rec.ImageURL, &rec.CoordX, &rec.CoordY, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}

// CreateCasting inserts a casting record and returns it with its assigned id
func (s *Store) CreateCasting(ctx context.Context, rec *CastingRecord) (*CastingRecord, error) {
	now := nowMillis()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO castings (name, age, gender, role, detail, image_url, coord_x, coord_y, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Age, rec.Gender, rec.Role, rec.Detail, rec.ImageURL,
		rec.CoordX, rec.CoordY, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create casting: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create casting id: %w", err)
	}

	s.logger.Info("casting record created", zap.Int64("casting_id", id))
	return s.GetCasting(ctx, id)
}

// GetCasting returns the live record with the given id, or nil when it is
// missing or soft-deleted.
func (s *Store) GetCasting(ctx context.Context, id int64) (*CastingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+castingColumns+` FROM castings WHERE id = ? AND deleted_at IS NULL`, id)
	rec, err := scanCasting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get casting: %w", err)
	}
	return rec, nil
}

// UpdateCastingInfo replaces the descriptive fields of a live record.
// Returns false when no live record matched.
func (s *Store) UpdateCastingInfo(ctx context.Context, id int64, name string, age int64, gender, role, detail, imageURL string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE castings SET name = ?, age = ?, gender = ?, role = ?, detail = ?, image_url = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		name, age, gender, role, detail, imageURL, nowMillis(), id,
	)
	if err != nil {
		return false, fmt.Errorf("update casting info: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update casting info rows: %w", err)
	}
	return n > 0, nil
}

// UpdateCastingCoord moves a record on the relationship canvas
func (s *Store) UpdateCastingCoord(ctx context.Context, id int64, coordX, coordY int) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE castings SET coord_x = ?, coord_y = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		coordX, coordY, nowMillis(), id,
	)
	if err != nil {
		return false, fmt.Errorf("update casting coord: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update casting coord rows: %w", err)
	}
	return n > 0, nil
}

// UpdateCastingImage stores a generated portrait URL on a live record
func (s *Store) UpdateCastingImage(ctx context.Context, id int64, imageURL string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE castings SET image_url = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		imageURL, nowMillis(), id,
	)
	if err != nil {
		return false, fmt.Errorf("update casting image: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update casting image rows: %w", err)
	}
	return n > 0, nil
}

// SoftDeleteCasting stamps deleted_at on a live record. The row is kept
// because its graph twin may still anchor historical relationships.
func (s *Store) SoftDeleteCasting(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE castings SET deleted_at = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		nowMillis(), nowMillis(), id,
	)
	if err != nil {
		return false, fmt.Errorf("soft-delete casting: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft-delete casting rows: %w", err)
	}
	if n > 0 {
		s.logger.Info("casting record soft-deleted", zap.Int64("casting_id", id))
	}
	return n > 0, nil
}
