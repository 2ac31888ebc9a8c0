package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Config struct {
	DBPath   string
	Model    string
	APIKey   string
	Question string
	Aliases  map[string]string
	ShowSQL  bool
}

func defaultConfig() Config {
	return Config{
		DBPath:  envOr("SLACK_INSIGHTS_DB", "slack_insights.db"),
		Model:   "gpt-5-mini",
		ShowSQL: true,
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("missing -db")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if strings.TrimSpace(c.Question) == "" {
		return errors.New("missing question, e.g.: query \"What did Dan ask me to do?\"")
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	var aliases string
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database (default: $SLACK_INSIGHTS_DB or slack_insights.db)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model to use for query translation")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides OPENAI_API_KEY env var)")
	fs.StringVar(&aliases, "aliases", envOr("SLACK_NAME_ALIASES", ""), "Colloquial name aliases as Name=username pairs, comma separated")
	fs.BoolVar(&cfg.ShowSQL, "show-sql", cfg.ShowSQL, "Print the generated SQL and its explanation")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Question = strings.TrimSpace(strings.Join(fs.Args(), " "))
	cfg.DBPath = filepath.Clean(cfg.DBPath)

	if aliases != "" {
		parsed, err := parseAliases(aliases)
		if err != nil {
			return Config{}, err
		}
		cfg.Aliases = parsed
	}
	return cfg, nil
}

// parseAliases parses "Dan=itzaferg,Sam=samk" into a map.
func parseAliases(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, username, ok := strings.Cut(pair, "=")
		name, username = strings.TrimSpace(name), strings.TrimSpace(username)
		if !ok || name == "" || username == "" {
			return nil, fmt.Errorf("invalid alias %q, want Name=username", pair)
		}
		out[name] = username
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
