package main

import (
	"flag"
	"testing"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.BatchSize != 120 {
		t.Fatalf("BatchSize=%d, want 120", cfg.BatchSize)
	}
	if cfg.Overlap != 30 {
		t.Fatalf("Overlap=%d, want 30", cfg.Overlap)
	}
	if !cfg.NewestFirst {
		t.Fatalf("NewestFirst=false, want true")
	}
	if cfg.MaxParents != 3 {
		t.Fatalf("MaxParents=%d, want 3", cfg.MaxParents)
	}
	if cfg.DedupDays != 30 {
		t.Fatalf("DedupDays=%d, want 30", cfg.DedupDays)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-db", "data/insights.db",
		"-model", "gpt-5-mini",
		"-batch-size", "50",
		"-overlap", "10",
		"-newest-first=false",
		"-max-batches", "2",
		"-api-key", "k",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.DBPath != "data/insights.db" {
		t.Fatalf("DBPath=%q", cfg.DBPath)
	}
	if cfg.BatchSize != 50 || cfg.Overlap != 10 {
		t.Fatalf("BatchSize=%d Overlap=%d", cfg.BatchSize, cfg.Overlap)
	}
	if cfg.NewestFirst {
		t.Fatalf("NewestFirst=true, want false")
	}
	if cfg.MaxBatches != 2 {
		t.Fatalf("MaxBatches=%d", cfg.MaxBatches)
	}
	if cfg.APIKey != "k" {
		t.Fatalf("APIKey=%q", cfg.APIKey)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error")
	}
	if err := (Config{DBPath: "x.db", Model: "m", BatchSize: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
	if err := (Config{DBPath: "x.db", Model: "m", BatchSize: 120, Overlap: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative overlap")
	}
	if err := (Config{DBPath: "x.db", Model: "m", BatchSize: 120, Overlap: 30}).Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
