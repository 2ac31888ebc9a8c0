// Command analyze runs the extraction pipeline over imported conversations:
// plan overlapping windows, enrich thread replies with their ancestors, send
// each batch to the model, parse the reply, suppress duplicates, store the
// rest. One failed batch costs its own items only; the run continues.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

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

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(2)
	}

	if _, err := os.Stat(cfg.DBPath); err != nil {
		fmt.Fprintln(os.Stderr, "database not found, run import first")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer db.Close()

	messages, err := db.Conversations(cfg.NewestFirst)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	if len(messages) == 0 {
		fmt.Fprintln(os.Stderr, "no messages to analyze, run import first")
		return
	}

	batches, warning, err := insights.PlanWindows(messages, cfg.BatchSize, cfg.Overlap)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	if cfg.MaxBatches > 0 && len(batches) > cfg.MaxBatches {
		batches = batches[:cfg.MaxBatches]
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	extractor := insights.NewExtractionClient(&client, cfg.Model)
	resolver := insights.NewThreadContextResolver(db, cfg.MaxParents)

	totalExtracted := 0
	totalSuppressed := 0
	failedBatches := 0

	for i, batch := range batches {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(1)
		default:
		}

		resolver.Enrich(&batch)

		items, err := extractor.Extract(ctx, batch)
		if err != nil {
			var xerr *insights.ExtractionError
			if errors.As(err, &xerr) && xerr.Kind == insights.AuthFailure {
				fmt.Fprintln(os.Stderr, err.Error())
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "warning: batch %d/%d failed: %v\n", i+1, len(batches), err)
			failedBatches++
			continue
		}

		fresh, dups := insights.DeduplicateBeforeInsert(db, items, cfg.DedupDays)
		totalSuppressed += len(dups)

		// No per-item source id comes back from the model; fall back to the
		// batch's first message.
		defaultConversationID := batch.Messages[0].ID

		for _, item := range fresh {
			_, err := db.InsertActionItem(store.ActionItem{
				ConversationID: defaultConversationID,
				Task:           item.Task,
				Assignee:       item.Assignee,
				Assigner:       item.Assigner,
				MentionedDate:  item.Date,
				Status:         item.Status,
				Urgency:        item.Urgency,
				ContextQuote:   item.Context,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to store item %q: %v\n", item.Task, err)
				continue
			}
			totalExtracted++
		}
	}

	fmt.Fprintf(os.Stdout, "messages_analyzed=%d batches=%d batches_failed=%d items_extracted=%d duplicates_suppressed=%d\n",
		len(messages), len(batches), failedBatches, totalExtracted, totalSuppressed)
}
