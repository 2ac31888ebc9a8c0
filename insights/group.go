package insights

import (
	"strings"
	"time"
)

// Two thresholds on purpose: storage-time suppression stays conservative so
// genuinely distinct items aren't discarded, display-time grouping stays
// generous so the user isn't shown near-duplicate noise.
const (
	// DuplicateThreshold gates duplicate suppression before storage.
	DuplicateThreshold = 0.85
	// GroupingThreshold gates display-time grouping of query results.
	GroupingThreshold = 0.80
)

// Similarity scores two task descriptions in [0,1]: lower-case, trim, then
// Jaccard similarity of the whitespace-tokenized word sets. Exact lower-cased
// equality is always 1.0; an empty token set on either side never matches.
func Similarity(a, b string) float64 {
	t1 := strings.ToLower(strings.TrimSpace(a))
	t2 := strings.ToLower(strings.TrimSpace(b))

	if t1 == t2 && t1 != "" {
		return 1.0
	}

	set1 := tokenSet(t1)
	set2 := tokenSet(t2)
	if len(set1) == 0 || len(set2) == 0 {
		return 0
	}

	intersection := 0
	for tok := range set1 {
		if _, ok := set2[tok]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// IsDuplicate reports whether two task descriptions clear the given
// similarity threshold.
func IsDuplicate(existing, candidate string, threshold float64) bool {
	return Similarity(existing, candidate) >= threshold
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// GroupSimilar clusters task instances into canonical groups. Greedy
// single-link: items are scanned in input order, each unassigned item seeds a
// new group and absorbs every later unassigned item whose similarity to the
// seed exceeds the threshold. Absorbed items are never reconsidered and their
// similarity to further candidates is not checked, so a chain A~B, B~C can
// land in one group even when A is not similar to C. That is the intended
// behavior, not transitive clustering.
func GroupSimilar(items []TaskInstance, threshold float64) []Group {
	if len(items) == 0 {
		return nil
	}

	used := make([]bool, len(items))
	var groups []Group

	for i, item := range items {
		if used[i] {
			continue
		}
		used[i] = true

		group := Group{
			CanonicalTask: item.Task,
			Instances:     []TaskInstance{item},
		}

		for j := i + 1; j < len(items); j++ {
			if used[j] {
				continue
			}
			if IsDuplicate(item.Task, items[j].Task, threshold) {
				group.Instances = append(group.Instances, items[j])
				used[j] = true
			}
		}

		group.Count = len(group.Instances)
		group.FirstDate, group.LastDate = dateRange(group.Instances)
		group.Status = combinedStatus(group.Instances)
		group.Assigner = group.Instances[0].Assigner

		groups = append(groups, group)
	}
	return groups
}

// dateRange parses each instance's date field and returns the earliest and
// latest as YYYY-MM-DD. Malformed dates are skipped, not fatal.
func dateRange(instances []TaskInstance) (first, last string) {
	var min, max time.Time
	for _, inst := range instances {
		t, ok := parseItemDate(inst.Date)
		if !ok {
			continue
		}
		if min.IsZero() || t.Before(min) {
			min = t
		}
		if max.IsZero() || t.After(max) {
			max = t
		}
	}
	if min.IsZero() {
		return "", ""
	}
	return min.Format("2006-01-02"), max.Format("2006-01-02")
}

var itemDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseItemDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range itemDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// combinedStatus: all completed → completed; any open → open; otherwise the
// first instance's raw status.
func combinedStatus(instances []TaskInstance) string {
	if len(instances) == 0 {
		return "unknown"
	}
	allCompleted := true
	for _, inst := range instances {
		if inst.Status != "completed" {
			allCompleted = false
		}
		if inst.Status == "open" {
			return "open"
		}
	}
	if allCompleted {
		return "completed"
	}
	if instances[0].Status == "" {
		return "unknown"
	}
	return instances[0].Status
}
