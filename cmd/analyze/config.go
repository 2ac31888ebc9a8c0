package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
)

type Config struct {
	DBPath      string
	Model       string
	APIKey      string
	BatchSize   int
	Overlap     int
	NewestFirst bool
	MaxParents  int
	MaxBatches  int
	DedupDays   int
}

func defaultConfig() Config {
	return Config{
		DBPath:      envOr("SLACK_INSIGHTS_DB", "slack_insights.db"),
		Model:       "gpt-5-mini",
		BatchSize:   120,
		Overlap:     30,
		NewestFirst: true,
		MaxParents:  3,
		DedupDays:   30,
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("missing -db")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch-size must be > 0")
	}
	if c.Overlap < 0 {
		return errors.New("overlap must be >= 0")
	}
	if c.MaxParents < 0 {
		return errors.New("max-parents must be >= 0")
	}
	if c.MaxBatches < 0 {
		return errors.New("max-batches must be >= 0")
	}
	if c.DedupDays < 0 {
		return errors.New("dedup-days must be >= 0")
	}
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to SQLite database (default: $SLACK_INSIGHTS_DB or slack_insights.db)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model to use for extraction")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides OPENAI_API_KEY env var)")
	fs.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Messages per extraction batch")
	fs.IntVar(&cfg.Overlap, "overlap", cfg.Overlap, "Messages to overlap between consecutive batches")
	fs.BoolVar(&cfg.NewestFirst, "newest-first", cfg.NewestFirst, "Process newest messages first")
	fs.IntVar(&cfg.MaxParents, "max-parents", cfg.MaxParents, "Max thread-parent messages injected per reply")
	fs.IntVar(&cfg.MaxBatches, "max-batches", cfg.MaxBatches, "Process only the first N batches (0 = all)")
	fs.IntVar(&cfg.DedupDays, "dedup-days", cfg.DedupDays, "How many days back duplicate suppression looks")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.DBPath = filepath.Clean(cfg.DBPath)
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
