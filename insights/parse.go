package insights

import (
	"encoding/json"
	"strings"
)

// ParseExtractionResponse pulls a JSON array of extracted items out of raw
// model output. Three shapes are tolerated: a bare array, an array inside a
// markdown code fence, and prose followed by a fenced array. Anything
// unparseable degrades to an empty list; a bad reply costs one batch's
// results, never the run.
func ParseExtractionResponse(text string) []ExtractedItem {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	if strings.Contains(s, "```") {
		start := strings.IndexByte(s, '[')
		end := strings.LastIndexByte(s, ']')
		if start == -1 || end == -1 || end <= start {
			return nil
		}
		s = s[start : end+1]
	}

	var items []ExtractedItem
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil
	}
	return items
}
