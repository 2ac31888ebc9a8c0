package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
)

type Config struct {
	FilePath  string
	DBPath    string
	UsersFile string
}

func defaultConfig() Config {
	return Config{
		DBPath:    envOr("SLACK_INSIGHTS_DB", "slack_insights.db"),
		UsersFile: os.Getenv("SLACK_USERS_FILE"),
	}
}

func (c Config) Validate() error {
	if c.FilePath == "" {
		return errors.New("missing -file")
	}
	if c.DBPath == "" {
		return errors.New("missing -db")
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.FilePath, "file", cfg.FilePath, "Path to SlackDump JSON export file")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database (default: $SLACK_INSIGHTS_DB or slack_insights.db)")
	fs.StringVar(&cfg.UsersFile, "users", cfg.UsersFile, "Optional SlackDump users file for display-name resolution (default: $SLACK_USERS_FILE)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 && cfg.FilePath == "" {
		cfg.FilePath = fs.Arg(0)
	}

	if cfg.FilePath != "" {
		cfg.FilePath = filepath.Clean(cfg.FilePath)
	}
	cfg.DBPath = filepath.Clean(cfg.DBPath)
	if cfg.UsersFile != "" {
		cfg.UsersFile = filepath.Clean(cfg.UsersFile)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
