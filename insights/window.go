package insights

import "fmt"

// PlanWindows splits an ordered message history into overlapping batches of
// up to size messages, advancing by (size - overlap) each step. Messages in
// the overlap region land in exactly two consecutive batches; the final batch
// may be shorter than size. The caller picks the input order (ascending or
// descending); batch order follows it deterministically.
//
// If overlap >= size it is clamped to size-1 and a warning is returned so the
// caller can surface it. An empty input produces no batches and no error.
func PlanWindows(messages []Message, size, overlap int) ([]Batch, string, error) {
	if size <= 0 {
		return nil, "", fmt.Errorf("PlanWindows: size must be > 0, got %d", size)
	}
	if overlap < 0 {
		return nil, "", fmt.Errorf("PlanWindows: overlap must be >= 0, got %d", overlap)
	}

	warning := ""
	if overlap >= size {
		warning = fmt.Sprintf("overlap (%d) >= batch size (%d), clamping overlap to %d", overlap, size, size-1)
		overlap = size - 1
	}

	if len(messages) == 0 {
		return nil, warning, nil
	}

	step := size - overlap
	var batches []Batch
	for i := 0; i < len(messages); i += step {
		end := i + size
		if end > len(messages) {
			end = len(messages)
		}
		batches = append(batches, Batch{Messages: messages[i:end]})
		if end == len(messages) {
			break
		}
	}
	return batches, warning, nil
}
