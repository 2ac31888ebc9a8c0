package main

import (
	"flag"
	"testing"
)

func TestParseFlags_QuestionFromArgs(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-db", "data/insights.db",
		"What", "did", "Dan", "ask", "me", "to", "do?",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Question != "What did Dan ask me to do?" {
		t.Fatalf("Question=%q", cfg.Question)
	}
	if cfg.DBPath != "data/insights.db" {
		t.Fatalf("DBPath=%q", cfg.DBPath)
	}
}

func TestParseFlags_Aliases(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-aliases", "Dan=itzaferg, Sam=samk",
		"anything open?",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Aliases["Dan"] != "itzaferg" || cfg.Aliases["Sam"] != "samk" {
		t.Fatalf("Aliases=%v", cfg.Aliases)
	}
}

func TestParseFlags_MalformedAlias(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	if _, err := parseFlags(fs, []string{"-aliases", "Dan", "q"}); err == nil {
		t.Fatalf("expected error for alias without =")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{DBPath: "x.db", Model: "m"}).Validate(); err == nil {
		t.Fatalf("expected error for missing question")
	}
	if err := (Config{DBPath: "x.db", Model: "m", Question: "anything open?"}).Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}
