package story

import (
	"owing/backend/internal/store"
)

// PlanMove computes the sibling position shifts a block move requires.
// It is pure: given the old and new (parent, position) and the sibling
// counts, it returns the range updates that keep both parents' position
// runs contiguous once the block itself lands on newPos.
//
// Same-parent moves shift only the siblings strictly between the two
// positions: moving up (newPos < oldPos) pushes [newPos, oldPos-1] one
// slot down the list (+1); moving down pushes [oldPos+1, newPos] one slot
// up (-1). Cross-parent moves close the gap left behind (old siblings
// past oldPos get -1) and open the target slot (new siblings at or past
// newPos get +1).
func PlanMove(plotID int64, oldParentID, newParentID *int64, oldPos, newPos, oldCount, newCount int) []store.PositionShift {
	if sameParent(oldParentID, newParentID) {
		switch {
		case newPos < oldPos:
			return []store.PositionShift{
				{PlotID: plotID, ParentID: oldParentID, From: newPos, To: oldPos - 1, Delta: 1},
			}
		case newPos > oldPos:
			return []store.PositionShift{
				{PlotID: plotID, ParentID: oldParentID, From: oldPos + 1, To: newPos, Delta: -1},
			}
		default:
			return nil
		}
	}

	return []store.PositionShift{
		{PlotID: plotID, ParentID: oldParentID, From: oldPos + 1, To: oldCount, Delta: -1},
		{PlotID: plotID, ParentID: newParentID, From: newPos, To: newCount, Delta: 1},
	}
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
