// Package story maintains the ordered block forest of each story plot:
// contiguous 1-based sibling positions under every parent, and a plot
// textCount kept in sync through signed deltas on every block mutation.
package story

import (
	"context"

	"go.uber.org/zap"

	"owing/backend/internal/store"
	"owing/backend/pkg/errors"
	"owing/backend/pkg/logger"
)

// BlockStore is the relational surface the tree manager needs
type BlockStore interface {
	GetPlot(ctx context.Context, id int64) (*store.StoryPlot, error)
	CreatePlot(ctx context.Context, projectID int64, name, description string) (*store.StoryPlot, error)
	ListPlotsByProject(ctx context.Context, projectID int64) ([]store.StoryPlot, error)
	UpdatePlot(ctx context.Context, id int64, name, description string) (bool, error)
	SoftDeletePlot(ctx context.Context, id int64) (bool, error)

	GetBlock(ctx context.Context, id int64) (*store.StoryBlock, error)
	CreateBlock(ctx context.Context, plotID int64, parentID *int64, blockType string, props map[string]interface{}, contents []store.Content) (*store.StoryBlock, error)
	ListBlocks(ctx context.Context, plotID int64, parentID *int64) ([]store.StoryBlock, error)
	UpdateBlock(ctx context.Context, id int64, blockType string, props map[string]interface{}, contents []store.Content) (*store.StoryBlock, error)
	MoveBlock(ctx context.Context, blockID int64, newParentID *int64, plan store.MovePlanner) (*store.StoryBlock, error)
	DeleteBlockTree(ctx context.Context, id int64) (removed int, found bool, err error)
}

// PlotGraph mirrors plots into the casting graph so castings can be
// scoped by project ancestry
type PlotGraph interface {
	EnsurePlotNode(ctx context.Context, projectID, plotID int64, name string) error
	SoftDeletePlotNode(ctx context.Context, plotID int64) error
}

// Service is the story block tree manager
type Service struct {
	store  BlockStore
	graph  PlotGraph
	logger *zap.Logger
}

// NewService creates a new story service
func NewService(blockStore BlockStore, plotGraph PlotGraph) *Service {
	return &Service{
		store:  blockStore,
		graph:  plotGraph,
		logger: logger.Get(),
	}
}

// Plot operations

// CreatePlot creates a plot and mirrors it into the graph. A graph
// failure after the relational insert surfaces as a partial write.
func (s *Service) CreatePlot(ctx context.Context, projectID int64, name, description string) (*store.StoryPlot, error) {
	plot, err := s.store.CreatePlot(ctx, projectID, name, description)
	if err != nil {
		return nil, err
	}
	if err := s.graph.EnsurePlotNode(ctx, projectID, plot.ID, name); err != nil {
		return nil, errors.NewPartialWriteFailure("create plot", err)
	}
	return plot, nil
}

// GetPlot returns a live plot
func (s *Service) GetPlot(ctx context.Context, id int64) (*store.StoryPlot, error) {
	plot, err := s.store.GetPlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if plot == nil {
		return nil, errors.NewPlotNotFound(id)
	}
	return plot, nil
}

// ListPlots returns a project's plots in position order
func (s *Service) ListPlots(ctx context.Context, projectID int64) ([]store.StoryPlot, error) {
	return s.store.ListPlotsByProject(ctx, projectID)
}

// UpdatePlot renames a plot
func (s *Service) UpdatePlot(ctx context.Context, id int64, name, description string) (*store.StoryPlot, error) {
	ok, err := s.store.UpdatePlot(ctx, id, name, description)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewPlotNotFound(id)
	}
	return s.store.GetPlot(ctx, id)
}

// DeletePlot soft-deletes a plot in both stores
func (s *Service) DeletePlot(ctx context.Context, id int64) error {
	ok, err := s.store.SoftDeletePlot(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewPlotNotFound(id)
	}
	if err := s.graph.SoftDeletePlotNode(ctx, id); err != nil {
		return errors.NewPartialWriteFailure("delete plot", err)
	}
	return nil
}

// Block operations

// CreateBlock appends a block under (plot, parent) and grows the plot's
// textCount by the new content's length.
func (s *Service) CreateBlock(ctx context.Context, plotID int64, parentID *int64, blockType string, props map[string]interface{}, contents []store.Content) (*store.StoryBlock, error) {
	plot, err := s.store.GetPlot(ctx, plotID)
	if err != nil {
		return nil, err
	}
	if plot == nil {
		return nil, errors.NewPlotNotFound(plotID)
	}

	if parentID != nil {
		parent, err := s.store.GetBlock(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.StoryPlotID != plotID {
			return nil, errors.NewBlockNotFound(*parentID)
		}
	}

	return s.store.CreateBlock(ctx, plotID, parentID, blockType, props, contents)
}

// GetBlock returns a block by id with its full subtree attached, each
// level ordered by position.
func (s *Service) GetBlock(ctx context.Context, id int64) (*store.StoryBlock, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.NewBlockNotFound(id)
	}
	if err := s.attachChildren(ctx, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (s *Service) attachChildren(ctx context.Context, block *store.StoryBlock) error {
	children, err := s.store.ListBlocks(ctx, block.StoryPlotID, &block.ID)
	if err != nil {
		return err
	}
	for i := range children {
		if err := s.attachChildren(ctx, &children[i]); err != nil {
			return err
		}
	}
	block.Children = children
	return nil
}

// ListBlocks returns the direct children under (plot, parent) in order
func (s *Service) ListBlocks(ctx context.Context, plotID int64, parentID *int64) ([]store.StoryBlock, error) {
	plot, err := s.store.GetPlot(ctx, plotID)
	if err != nil {
		return nil, err
	}
	if plot == nil {
		return nil, errors.NewPlotNotFound(plotID)
	}
	return s.store.ListBlocks(ctx, plotID, parentID)
}

// UpdateBlock replaces a block's type, props and contents, applying the
// text-length delta to the plot's textCount. Position and parent are
// untouched.
func (s *Service) UpdateBlock(ctx context.Context, id int64, blockType string, props map[string]interface{}, contents []store.Content) (*store.StoryBlock, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.NewBlockNotFound(id)
	}
	return s.store.UpdateBlock(ctx, id, blockType, props, contents)
}

// MoveBlock moves a block to (newParentID, newPosition) within its plot.
// Out-of-range targets fail before any mutation; a move to the current
// slot is a no-op.
func (s *Service) MoveBlock(ctx context.Context, id int64, newParentID *int64, newPosition int) (*store.StoryBlock, error) {
	block, err := s.store.GetBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.NewBlockNotFound(id)
	}

	if newParentID != nil {
		newParent, err := s.store.GetBlock(ctx, *newParentID)
		if err != nil {
			return nil, err
		}
		if newParent == nil || newParent.StoryPlotID != block.StoryPlotID {
			return nil, errors.NewBlockNotFound(*newParentID)
		}
		if *newParentID == id {
			return nil, errors.NewInvalidMove(id, "cannot move a block under itself")
		}
		if err := s.ensureNotDescendant(ctx, id, newParent); err != nil {
			return nil, err
		}
	}

	// Bounds, clamp and planning run inside the store's move transaction
	// so the sibling counts they depend on cannot go stale under a
	// concurrent create or delete in either parent.
	moved, err := s.store.MoveBlock(ctx, id, newParentID, func(b *store.StoryBlock, oldCount, newCount int) (int, []store.PositionShift, error) {
		samePar := sameParent(b.ParentBlockID, newParentID)
		if samePar && newPosition == b.Position {
			return b.Position, nil, nil
		}
		if newPosition < 1 || newPosition > newCount+1 {
			return 0, nil, errors.NewInvalidPosition(newPosition, newCount+1)
		}

		// Within one parent the block is its own sibling, so the last
		// reachable slot is the current count, not count+1.
		pos := newPosition
		if samePar && pos > newCount {
			pos = newCount
		}
		if samePar && pos == b.Position {
			return b.Position, nil, nil
		}

		shifts := PlanMove(b.StoryPlotID, b.ParentBlockID, newParentID,
			b.Position, pos, oldCount, newCount)
		return pos, shifts, nil
	})
	if err != nil {
		return nil, err
	}
	if moved == nil {
		return nil, errors.NewBlockNotFound(id)
	}

	s.logger.Info("story block moved",
		zap.Int64("block_id", id),
		zap.Int("new_position", moved.Position),
	)
	return moved, nil
}

// DeleteBlock removes a block and its whole subtree. A parentless
// remainder would break the forest, so descendants always go with it.
func (s *Service) DeleteBlock(ctx context.Context, id int64) error {
	_, found, err := s.store.DeleteBlockTree(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return errors.NewBlockNotFound(id)
	}
	return nil
}

// ensureNotDescendant walks up from candidate to the root and rejects the
// move when blockID appears on the path.
func (s *Service) ensureNotDescendant(ctx context.Context, blockID int64, candidate *store.StoryBlock) error {
	current := candidate
	for current.ParentBlockID != nil {
		if *current.ParentBlockID == blockID {
			return errors.NewInvalidMove(blockID, "cannot move a block under its own descendant")
		}
		parent, err := s.store.GetBlock(ctx, *current.ParentBlockID)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		current = parent
	}
	return nil
}
