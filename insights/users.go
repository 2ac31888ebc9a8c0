package insights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// UserMap resolves Slack user IDs to display names. Built once from a
// SlackDump users export and passed explicitly into the call sites that need
// it; there is deliberately no process-wide cache.
type UserMap map[string]string

// Resolve returns the display name for id, or the id itself when unknown.
func (m UserMap) Resolve(id string) string {
	if name, ok := m[id]; ok && name != "" {
		return name
	}
	return id
}

// LoadUserMap reads a SlackDump users file. Two formats are supported: the
// column-aligned TXT listing (`users-<workspace>.txt`) and a JSON array of
// {id, name} objects. Format is chosen by file extension; anything that is
// not .json is treated as TXT.
func LoadUserMap(path string) (UserMap, error) {
	if path == "" {
		return nil, fmt.Errorf("LoadUserMap: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadUserMap: read file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parseUsersJSON(b)
	}
	return parseUsersTXT(b)
}

func parseUsersJSON(b []byte) (UserMap, error) {
	var entries []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("LoadUserMap: unmarshal users json: %w", err)
	}
	m := make(UserMap, len(entries))
	for _, e := range entries {
		if e.ID != "" && e.Name != "" {
			m[e.ID] = e.Name
		}
	}
	return m, nil
}

// slackUserIDRe matches SlackDump user/bot IDs embedded in the TXT listing.
var slackUserIDRe = regexp.MustCompile(`\b([UWB][A-Z0-9]{6,})\b`)

func parseUsersTXT(b []byte) (UserMap, error) {
	m := make(UserMap)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		loc := slackUserIDRe.FindStringIndex(line)
		if loc == nil {
			// Header and separator rows carry no ID.
			continue
		}
		name := strings.TrimSpace(line[:loc[0]])
		id := line[loc[0]:loc[1]]
		if name == "" {
			continue
		}
		m[id] = name
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("LoadUserMap: no users found in TXT listing")
	}
	return m, nil
}
