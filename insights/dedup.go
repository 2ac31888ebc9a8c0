package insights

// StoredTask is a previously stored task in the shape duplicate suppression
// scans: id plus description.
type StoredTask struct {
	ID       int64
	Task     string
	Assigner string
}

// DuplicateSource supplies recently stored tasks to check new extractions
// against.
type DuplicateSource interface {
	RecentTasks(assigner string, daysBack, limit int) ([]StoredTask, error)
}

const (
	// DefaultDuplicateDaysBack bounds how far back suppression looks.
	DefaultDuplicateDaysBack = 30
	// duplicateCandidateLimit caps the candidate scan per item.
	duplicateCandidateLimit = 100
)

// FindDuplicate scans recent stored tasks for one similar to task at the
// conservative storage threshold. Returns the stored task's id when found.
// Lookup failures are treated as "no duplicate": suppression is best-effort
// and must never block an insert.
func FindDuplicate(src DuplicateSource, task, assigner string, daysBack int) (int64, bool) {
	if src == nil || task == "" {
		return 0, false
	}
	if daysBack <= 0 {
		daysBack = DefaultDuplicateDaysBack
	}
	candidates, err := src.RecentTasks(assigner, daysBack, duplicateCandidateLimit)
	if err != nil {
		return 0, false
	}
	for _, c := range candidates {
		if IsDuplicate(c.Task, task, DuplicateThreshold) {
			return c.ID, true
		}
	}
	return 0, false
}

// DeduplicateBeforeInsert splits freshly extracted items into ones to store
// and ones already represented by a recent stored task. Overlapping windows
// re-extract the same request routinely; this keeps storage
// idempotent-by-construction.
func DeduplicateBeforeInsert(src DuplicateSource, items []ExtractedItem, daysBack int) (fresh, duplicates []ExtractedItem) {
	for _, item := range items {
		if _, dup := FindDuplicate(src, item.Task, item.Assigner, daysBack); dup {
			duplicates = append(duplicates, item)
		} else {
			fresh = append(fresh, item)
		}
	}
	return fresh, duplicates
}
