// Command import loads a SlackDump JSON export into the conversations table.
// Re-importing an overlapping export is safe: rows are unique on
// (channel_id, timestamp).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/carmandale/slack-insights/insights"
	"github.com/carmandale/slack-insights/insights/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	var users insights.UserMap
	if cfg.UsersFile != "" {
		users, err = insights.LoadUserMap(cfg.UsersFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v, continuing with user IDs only\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "loaded %d users from %s\n", len(users), cfg.UsersFile)
		}
	}

	export, err := insights.ParseSlackDump(cfg.FilePath, users)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if len(export.Messages) == 0 {
		fmt.Fprintln(os.Stderr, "warning: no messages found in export")
		return
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer db.Close()

	imported := 0
	for _, msg := range export.Messages {
		if _, err := db.InsertConversation(msg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to import message at %f: %v\n", msg.Timestamp, err)
			continue
		}
		imported++
	}

	fmt.Fprintf(os.Stdout, "messages_processed=%d messages_imported=%d db=%s\n",
		len(export.Messages), imported, cfg.DBPath)
}
