package insights

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Export is a parsed SlackDump channel export: channel metadata plus its
// messages in file order.
type Export struct {
	ChannelID   string
	ChannelName string
	Messages    []Message
}

// rawExport mirrors the SlackDump JSON layout closely enough to decode it.
type rawExport struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Messages  []struct {
		Type     string `json:"type"`
		Subtype  string `json:"subtype"`
		User     string `json:"user"`
		Username string `json:"username"`
		Text     string `json:"text"`
		TS       string `json:"ts"`
		ThreadTS string `json:"thread_ts"`
	} `json:"messages"`
}

// ParseSlackDump reads a SlackDump JSON export and returns the channel's
// messages with timestamps decoded and display names resolved through users.
// Records without a timestamp or of a non-message type are skipped.
func ParseSlackDump(path string, users UserMap) (Export, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("ParseSlackDump: read file: %w", err)
	}

	var raw rawExport
	if err := json.Unmarshal(b, &raw); err != nil {
		return Export{}, fmt.Errorf("ParseSlackDump: unmarshal export: %w", err)
	}

	out := Export{
		ChannelID:   raw.ChannelID,
		ChannelName: raw.Name,
	}
	if out.ChannelID == "" {
		out.ChannelID = "unknown"
	}

	for _, rm := range raw.Messages {
		if rm.Type != "" && rm.Type != "message" {
			continue
		}
		ts, err := ParseSlackTimestamp(rm.TS)
		if err != nil {
			continue
		}

		msg := Message{
			ChannelID:   out.ChannelID,
			ChannelName: out.ChannelName,
			UserID:      rm.User,
			Username:    rm.Username,
			Timestamp:   ts,
			Text:        rm.Text,
			Kind:        messageKind(rm.Type, rm.Subtype),
		}
		if users != nil && rm.User != "" {
			if name := users.Resolve(rm.User); name != rm.User {
				msg.DisplayName = name
			}
		}
		if rm.ThreadTS != "" {
			if tts, err := ParseSlackTimestamp(rm.ThreadTS); err == nil {
				msg.ThreadTS = &tts
			}
		}
		out.Messages = append(out.Messages, msg)
	}
	return out, nil
}

// ParseSlackTimestamp decodes Slack's "1485881960.000002" stamp into unix
// seconds with the fractional part preserved.
func ParseSlackTimestamp(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("ParseSlackTimestamp: empty timestamp")
	}
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return 0, fmt.Errorf("ParseSlackTimestamp: %w", err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("ParseSlackTimestamp: non-positive timestamp %q", ts)
	}
	return v, nil
}

func messageKind(typ, subtype string) string {
	if typ == "" {
		typ = "message"
	}
	if subtype != "" {
		return typ + "/" + subtype
	}
	return typ
}
