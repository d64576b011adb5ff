package snapshot

import (
	"sort"

	"github.com/younsl/snapkeeper/internal/models"
)

// DefaultKeep is the number of most recent snapshots retained per volume
const DefaultKeep = 2

// SortNewestFirst returns a copy of snapshots ordered by start time, newest
// first. Snapshots with equal start times keep their listing order.
func SortNewestFirst(snapshots []models.Snapshot) []models.Snapshot {
	sorted := make([]models.Snapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})
	return sorted
}

// PlanRetention splits snapshots into the keep newest and the rest.
// A keep value below one is treated as DefaultKeep.
func PlanRetention(snapshots []models.Snapshot, keep int) (kept, deleted []models.Snapshot) {
	sorted := SortNewestFirst(snapshots)
	if keep < 1 {
		keep = DefaultKeep
	}
	keep = min(keep, len(sorted))
	return sorted[:keep], sorted[keep:]
}

// Latest returns the snapshot with the most recent start time
func Latest(snapshots []models.Snapshot) (models.Snapshot, bool) {
	if len(snapshots) == 0 {
		return models.Snapshot{}, false
	}
	return SortNewestFirst(snapshots)[0], true
}
