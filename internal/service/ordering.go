package service

import (
	"github.com/google/uuid"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// planMove computes the ordering-key updates needed to place movedID at
// target (a 0-based index) within a partition. The partition slice is the
// target (user, status) sequence in ascending position order; when the
// task is arriving from another status it simply is not in the slice.
//
// The planner is pure: it returns the minimal set of changed rows and
// never touches storage. Keys are allocated into the gap between the new
// neighbors, so in the common case only the moved task changes. When the
// gap between the neighbors has no integer left, the whole partition is
// renumbered to multiples of PositionStep; that cost is amortized across
// the many moves that re-widen the gaps.
//
// noop is true when the task already sits at target in this partition; the
// caller must then write nothing at all.
func planMove(partition []model.Task, movedID uuid.UUID, target int) (changes []repository.PositionChange, noop bool) {
	oldIdx := -1
	for i := range partition {
		if partition[i].ID == movedID {
			oldIdx = i
			break
		}
	}

	remaining := make([]model.Task, 0, len(partition))
	for i := range partition {
		if i != oldIdx {
			remaining = append(remaining, partition[i])
		}
	}

	// A target past the end clamps to "append".
	if target < 0 {
		target = 0
	}
	if target > len(remaining) {
		target = len(remaining)
	}

	if oldIdx >= 0 && target == oldIdx {
		return nil, true
	}

	if key, ok := gapKey(remaining, target); ok {
		return []repository.PositionChange{{ID: movedID, Position: key}}, false
	}

	// Gap exhausted: renumber the partition in its new order.
	reordered := make([]uuid.UUID, 0, len(remaining)+1)
	for _, t := range remaining[:target] {
		reordered = append(reordered, t.ID)
	}
	reordered = append(reordered, movedID)
	for _, t := range remaining[target:] {
		reordered = append(reordered, t.ID)
	}

	oldKeys := make(map[uuid.UUID]int64, len(partition))
	for _, t := range partition {
		oldKeys[t.ID] = t.Position
	}

	for i, id := range reordered {
		key := int64(i+1) * model.PositionStep
		if old, ok := oldKeys[id]; ok && old == key && id != movedID {
			continue
		}
		changes = append(changes, repository.PositionChange{ID: id, Position: key})
	}
	return changes, false
}

// gapKey allocates a key strictly between the would-be neighbors at the
// insertion index, reporting failure when no integer fits.
func gapKey(remaining []model.Task, target int) (int64, bool) {
	switch {
	case len(remaining) == 0:
		return model.PositionStep, true
	case target == 0:
		head := remaining[0].Position
		key := head / 2
		return key, key > 0 && key < head
	case target == len(remaining):
		return remaining[len(remaining)-1].Position + model.PositionStep, true
	default:
		prev := remaining[target-1].Position
		next := remaining[target].Position
		key := prev + (next-prev)/2
		return key, key > prev && key < next
	}
}
