package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "owing_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCastingRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec, err := s.CreateCasting(ctx, &CastingRecord{
		Name: "Aria", Age: 27, Gender: "female", Role: "protagonist",
		Detail: "sharp-tongued archivist", CoordX: 10, CoordY: 20,
	})
	require.NoError(t, err)
	require.NotZero(t, rec.ID)
	assert.Equal(t, "Aria", rec.Name)

	ok, err := s.UpdateCastingInfo(ctx, rec.ID, "Aria", 28, "female", "narrator", "quieter now", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateCastingCoord(ctx, rec.ID, 300, 400)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetCasting(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(28), got.Age)
	assert.Equal(t, 300, got.CoordX)

	ok, err = s.SoftDeleteCasting(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Soft-deleted records disappear from reads and further writes
	got, err = s.GetCasting(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = s.UpdateCastingCoord(ctx, rec.ID, 0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPlotPositionsStayContiguous(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	var ids []int64
	for _, name := range []string{"act one", "act two", "act three"} {
		plot, err := s.CreatePlot(ctx, 1, name, "")
		require.NoError(t, err)
		ids = append(ids, plot.ID)
	}

	plots, err := s.ListPlotsByProject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, plots, 3)
	for i, p := range plots {
		assert.Equal(t, i+1, p.Position)
	}

	ok, err := s.SoftDeletePlot(ctx, ids[1])
	require.NoError(t, err)
	require.True(t, ok)

	plots, err = s.ListPlotsByProject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, plots, 2)
	assert.Equal(t, 1, plots[0].Position)
	assert.Equal(t, 2, plots[1].Position)
	assert.Equal(t, "act three", plots[1].Name)
}

func TestCreateBlockAppendsAndGrowsTextCount(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	plot, err := s.CreatePlot(ctx, 1, "plot", "")
	require.NoError(t, err)

	first, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil,
		[]Content{{Text: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 5, first.TextLen)

	second, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil,
		[]Content{{Text: "ворлд"}})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
	// Text length counts runes, not bytes
	assert.Equal(t, 5, second.TextLen)

	// Children get their own position run
	child, err := s.CreateBlock(ctx, plot.ID, &first.ID, "quote", nil,
		[]Content{{Text: "abc"}})
	require.NoError(t, err)
	assert.Equal(t, 1, child.Position)

	got, err := s.GetPlot(ctx, plot.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, got.TextCount)
}

func TestUpdateBlockAppliesSignedDelta(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	plot, err := s.CreatePlot(ctx, 1, "plot", "")
	require.NoError(t, err)
	block, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil,
		[]Content{{Text: "aaaa"}})
	require.NoError(t, err)

	updated, err := s.UpdateBlock(ctx, block.ID, "heading",
		map[string]interface{}{"level": 2}, []Content{{Text: "xx"}})
	require.NoError(t, err)
	assert.Equal(t, "heading", updated.Type)
	assert.Equal(t, 2, updated.TextLen)
	assert.Equal(t, block.Position, updated.Position)

	got, err := s.GetPlot(ctx, plot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TextCount)
}

func TestMoveBlockShiftsRangesInOneTransaction(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	plot, err := s.CreatePlot(ctx, 1, "plot", "")
	require.NoError(t, err)

	var blocks []*StoryBlock
	for _, text := range []string{"a", "b", "c"} {
		b, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil, []Content{{Text: text}})
		require.NoError(t, err)
		blocks = append(blocks, b)
	}

	// Move b (position 2) to position 1: a shifts from 1 to 2
	moved, err := s.MoveBlock(ctx, blocks[1].ID, nil,
		func(b *StoryBlock, oldCount, newCount int) (int, []PositionShift, error) {
			require.Equal(t, 3, oldCount)
			require.Equal(t, 3, newCount)
			return 1, []PositionShift{
				{PlotID: plot.ID, ParentID: nil, From: 1, To: 1, Delta: 1},
			}, nil
		})
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, 1, moved.Position)

	siblings, err := s.ListBlocks(ctx, plot.ID, nil)
	require.NoError(t, err)
	require.Len(t, siblings, 3)
	assert.Equal(t, blocks[1].ID, siblings[0].ID)
	assert.Equal(t, blocks[0].ID, siblings[1].ID)
	assert.Equal(t, blocks[2].ID, siblings[2].ID)
	for i, b := range siblings {
		assert.Equal(t, i+1, b.Position)
	}
}

func TestMoveBlockPlannerErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	plot, err := s.CreatePlot(ctx, 1, "plot", "")
	require.NoError(t, err)
	a, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil, []Content{{Text: "a"}})
	require.NoError(t, err)
	_, err = s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil, []Content{{Text: "b"}})
	require.NoError(t, err)

	wantErr := fmt.Errorf("target slot out of range")
	_, err = s.MoveBlock(ctx, a.ID, nil,
		func(b *StoryBlock, oldCount, newCount int) (int, []PositionShift, error) {
			return 0, nil, wantErr
		})
	require.ErrorIs(t, err, wantErr)

	siblings, err := s.ListBlocks(ctx, plot.ID, nil)
	require.NoError(t, err)
	require.Len(t, siblings, 2)
	for i, b := range siblings {
		assert.Equal(t, i+1, b.Position)
	}
}

func TestDeleteBlockTreeCascadesAndClosesGap(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	plot, err := s.CreatePlot(ctx, 1, "plot", "")
	require.NoError(t, err)

	a, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil, []Content{{Text: "aa"}})
	require.NoError(t, err)
	b, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil, []Content{{Text: "bbb"}})
	require.NoError(t, err)
	c, err := s.CreateBlock(ctx, plot.ID, nil, "paragraph", nil, []Content{{Text: "cccc"}})
	require.NoError(t, err)

	// Nested subtree under b
	child, err := s.CreateBlock(ctx, plot.ID, &b.ID, "quote", nil, []Content{{Text: "dd"}})
	require.NoError(t, err)
	_, err = s.CreateBlock(ctx, plot.ID, &child.ID, "quote", nil, []Content{{Text: "e"}})
	require.NoError(t, err)

	removed, found, err := s.DeleteBlockTree(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 6, removed) // bbb + dd + e

	got, err := s.GetBlock(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "descendants must go with the deleted block")

	siblings, err := s.ListBlocks(ctx, plot.ID, nil)
	require.NoError(t, err)
	require.Len(t, siblings, 2)
	assert.Equal(t, a.ID, siblings[0].ID)
	assert.Equal(t, 1, siblings[0].Position)
	assert.Equal(t, c.ID, siblings[1].ID)
	assert.Equal(t, 2, siblings[1].Position)

	gotPlot, err := s.GetPlot(ctx, plot.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, gotPlot.TextCount) // aa + cccc

	_, found, err = s.DeleteBlockTree(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUniverseFolderLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	folder, err := s.CreateFolder(ctx, 1, "world lore")
	require.NoError(t, err)
	require.NotZero(t, folder.ID)

	folders, err := s.ListFoldersByProject(ctx, 1)
	require.NoError(t, err)
	require.Len(t, folders, 1)

	ok, err := s.SoftDeleteFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetFolder(ctx, folder.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
