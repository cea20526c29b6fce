package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Content is one fragment of a block's text
type Content struct {
	Text string `json:"text"`
}

// TextLen returns the total text length of a content sequence
func TextLen(contents []Content) int {
	total := 0
	for _, c := range contents {
		total += len([]rune(c.Text))
	}
	return total
}

// StoryBlock is one node of the ordered block forest of a plot. Position
// is 1-based and contiguous among siblings: blocks sharing the same plot
// and parent (parent NULL = plot root) always occupy exactly {1..N}.
type StoryBlock struct {
	ID            int64                  `json:"id"`
	StoryPlotID   int64                  `json:"storyPlotId"`
	ParentBlockID *int64                 `json:"parentBlockId,omitempty"`
	Type          string                 `json:"type"`
	Props         map[string]interface{} `json:"props"`
	Contents      []Content              `json:"contents"`
	TextLen       int                    `json:"-"`
	Position      int                    `json:"position"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`

	// Children is not a column. Reads that expand the subtree fill it
	// in, ordered by position; everywhere else it stays nil.
	Children []StoryBlock `json:"children"`
}

// PositionShift is one atomic range update of sibling positions: add
// Delta to every sibling of Parent (within Plot) whose position lies in
// [From, To]. Shifts are produced by the pure move planner and applied as
// single UPDATE statements, never per-row edits.
type PositionShift struct {
	PlotID   int64
	ParentID *int64
	From     int
	To       int
	Delta    int
}

const blockColumns = `id, story_plot_id, parent_block_id, block_type, props, contents, text_len, position, created_at, updated_at`

func parentArg(parentID *int64) interface{} {
	if parentID == nil {
		return nil
	}
	return *parentID
}

func scanBlock(row interface{ Scan(...interface{}) error }) (*StoryBlock, error) {
	var b StoryBlock
	var parentID sql.NullInt64
	var props, contents string
	var createdAt, updatedAt int64
	err := row.Scan(&b.ID, &b.StoryPlotID, &parentID, &b.Type, &props, &contents,
		&b.TextLen, &b.Position, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		b.ParentBlockID = &parentID.Int64
	}
	if err := json.Unmarshal([]byte(props), &b.Props); err != nil {
		return nil, fmt.Errorf("decode block props: %w", err)
	}
	if err := json.Unmarshal([]byte(contents), &b.Contents); err != nil {
		return nil, fmt.Errorf("decode block contents: %w", err)
	}
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	return &b, nil
}

func encodeBlockFields(props map[string]interface{}, contents []Content) (string, string, error) {
	if props == nil {
		props = map[string]interface{}{}
	}
	if contents == nil {
		contents = []Content{}
	}
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return "", "", fmt.Errorf("encode block props: %w", err)
	}
	contentsJSON, err := json.Marshal(contents)
	if err != nil {
		return "", "", fmt.Errorf("encode block contents: %w", err)
	}
	return string(propsJSON), string(contentsJSON), nil
}

// CreateBlock appends a block after the current maximum sibling position
// under (plot, parent) and adds its text length to the plot's textCount.
// Append only: this operation never inserts mid-sequence.
func (s *Store) CreateBlock(ctx context.Context, plotID int64, parentID *int64, blockType string, props map[string]interface{}, contents []Content) (*StoryBlock, error) {
	propsJSON, contentsJSON, err := encodeBlockFields(props, contents)
	if err != nil {
		return nil, err
	}
	textLen := TextLen(contents)

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var maxPos int
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) FROM story_blocks
			 WHERE story_plot_id = ? AND parent_block_id IS ?`,
			plotID, parentArg(parentID))
		if err := row.Scan(&maxPos); err != nil {
			return fmt.Errorf("max sibling position: %w", err)
		}

		now := nowMillis()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO story_blocks (story_plot_id, parent_block_id, block_type, props, contents, text_len, position, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plotID, parentArg(parentID), blockType, propsJSON, contentsJSON, textLen, maxPos+1, now, now,
		)
		if err != nil {
			return fmt.Errorf("create block: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("create block id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE story_plots SET text_count = text_count + ?, updated_at = ? WHERE id = ?`,
			textLen, now, plotID); err != nil {
			return fmt.Errorf("apply text count delta: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("story block created", zap.Int64("block_id", id), zap.Int64("plot_id", plotID))
	return s.GetBlock(ctx, id)
}

// GetBlock returns the block with the given id, or nil when missing
func (s *Store) GetBlock(ctx context.Context, id int64) (*StoryBlock, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM story_blocks WHERE id = ?`, id)
	b, err := scanBlock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block: %w", err)
	}
	return b, nil
}

// ListBlocks returns the direct children of (plot, parent) in position order
func (s *Store) ListBlocks(ctx context.Context, plotID int64, parentID *int64) ([]StoryBlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM story_blocks
		 WHERE story_plot_id = ? AND parent_block_id IS ?
		 ORDER BY position`,
		plotID, parentArg(parentID))
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	blocks := []StoryBlock{}
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

// CountChildren returns the number of direct children under (plot, parent)
func (s *Store) CountChildren(ctx context.Context, plotID int64, parentID *int64) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM story_blocks
		 WHERE story_plot_id = ? AND parent_block_id IS ?`,
		plotID, parentArg(parentID))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

func countChildrenTx(ctx context.Context, tx *sql.Tx, plotID int64, parentID *int64) (int, error) {
	var count int
	row := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM story_blocks
		 WHERE story_plot_id = ? AND parent_block_id IS ?`,
		plotID, parentArg(parentID))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

// UpdateBlock replaces a block's type, props and contents in place and
// applies the signed text-length delta to the plot's textCount. Position
// and parent are untouched.
func (s *Store) UpdateBlock(ctx context.Context, id int64, blockType string, props map[string]interface{}, contents []Content) (*StoryBlock, error) {
	propsJSON, contentsJSON, err := encodeBlockFields(props, contents)
	if err != nil {
		return nil, err
	}
	newLen := TextLen(contents)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var plotID int64
		var oldLen int
		row := tx.QueryRowContext(ctx,
			`SELECT story_plot_id, text_len FROM story_blocks WHERE id = ?`, id)
		if err := row.Scan(&plotID, &oldLen); err != nil {
			return fmt.Errorf("update block lookup: %w", err)
		}

		now := nowMillis()
		if _, err := tx.ExecContext(ctx,
			`UPDATE story_blocks SET block_type = ?, props = ?, contents = ?, text_len = ?, updated_at = ?
			 WHERE id = ?`,
			blockType, propsJSON, contentsJSON, newLen, now, id); err != nil {
			return fmt.Errorf("update block: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE story_plots SET text_count = text_count + ?, updated_at = ? WHERE id = ?`,
			newLen-oldLen, now, plotID); err != nil {
			return fmt.Errorf("apply text count delta: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBlock(ctx, id)
}

// MovePlanner maps a block and the sibling counts of its old and new
// parents to the landing position and the shift plan. It runs inside the
// move transaction, so the counts it sees cannot go stale before the
// shifts apply.
type MovePlanner func(block *StoryBlock, oldCount, newCount int) (newPosition int, shifts []PositionShift, err error)

// MoveBlock repositions a block under newParentID. The block lookup, the
// sibling counts, the plan and its application all run in one
// transaction, so a concurrent append into either parent serializes
// against the whole move instead of racing the planner's counts. Every
// shift is a single range UPDATE; the block's own row moves last.
// Returns nil when the block does not exist.
func (s *Store) MoveBlock(ctx context.Context, blockID int64, newParentID *int64, plan MovePlanner) (*StoryBlock, error) {
	found := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+blockColumns+` FROM story_blocks WHERE id = ?`, blockID)
		block, err := scanBlock(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("move block lookup: %w", err)
		}
		found = true

		oldCount, err := countChildrenTx(ctx, tx, block.StoryPlotID, block.ParentBlockID)
		if err != nil {
			return err
		}
		newCount, err := countChildrenTx(ctx, tx, block.StoryPlotID, newParentID)
		if err != nil {
			return err
		}

		newPosition, shifts, err := plan(block, oldCount, newCount)
		if err != nil {
			return err
		}
		if len(shifts) == 0 && newPosition == block.Position {
			return nil
		}

		for _, shift := range shifts {
			if _, err := tx.ExecContext(ctx,
				`UPDATE story_blocks SET position = position + ?
				 WHERE story_plot_id = ? AND parent_block_id IS ?
				   AND position BETWEEN ? AND ?`,
				shift.Delta, shift.PlotID, parentArg(shift.ParentID),
				shift.From, shift.To); err != nil {
				return fmt.Errorf("apply position shift: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE story_blocks SET parent_block_id = ?, position = ?, updated_at = ?
			 WHERE id = ?`,
			parentArg(newParentID), newPosition, nowMillis(), blockID); err != nil {
			return fmt.Errorf("apply block move: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return s.GetBlock(ctx, blockID)
}

// DeleteBlockTree removes a block and its whole subtree, closes the
// sibling position gap it leaves behind and subtracts the subtree's
// aggregate text length from the plot's textCount. Returns the subtracted
// length. Returns found=false when the block does not exist.
func (s *Store) DeleteBlockTree(ctx context.Context, id int64) (removed int, found bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var plotID int64
		var parentID sql.NullInt64
		var position int
		row := tx.QueryRowContext(ctx,
			`SELECT story_plot_id, parent_block_id, position FROM story_blocks WHERE id = ?`, id)
		if scanErr := row.Scan(&plotID, &parentID, &position); scanErr != nil {
			if scanErr == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("delete block lookup: %w", scanErr)
		}
		found = true

		row = tx.QueryRowContext(ctx,
			`WITH RECURSIVE subtree(id) AS (
				SELECT id FROM story_blocks WHERE id = ?
				UNION ALL
				SELECT b.id FROM story_blocks b JOIN subtree s ON b.parent_block_id = s.id
			 )
			 SELECT COALESCE(SUM(text_len), 0) FROM story_blocks WHERE id IN (SELECT id FROM subtree)`, id)
		if scanErr := row.Scan(&removed); scanErr != nil {
			return fmt.Errorf("subtree text length: %w", scanErr)
		}

		if _, execErr := tx.ExecContext(ctx,
			`WITH RECURSIVE subtree(id) AS (
				SELECT id FROM story_blocks WHERE id = ?
				UNION ALL
				SELECT b.id FROM story_blocks b JOIN subtree s ON b.parent_block_id = s.id
			 )
			 DELETE FROM story_blocks WHERE id IN (SELECT id FROM subtree)`, id); execErr != nil {
			return fmt.Errorf("delete subtree: %w", execErr)
		}

		var parentPtr *int64
		if parentID.Valid {
			parentPtr = &parentID.Int64
		}
		if _, execErr := tx.ExecContext(ctx,
			`UPDATE story_blocks SET position = position - 1
			 WHERE story_plot_id = ? AND parent_block_id IS ? AND position > ?`,
			plotID, parentArg(parentPtr), position); execErr != nil {
			return fmt.Errorf("close sibling gap: %w", execErr)
		}

		if _, execErr := tx.ExecContext(ctx,
			`UPDATE story_plots SET text_count = text_count - ?, updated_at = ? WHERE id = ?`,
			removed, nowMillis(), plotID); execErr != nil {
			return fmt.Errorf("apply text count delta: %w", execErr)
		}

		s.logger.Info("story block subtree deleted",
			zap.Int64("block_id", id), zap.Int("text_removed", removed))
		return nil
	})
	return removed, found, err
}
