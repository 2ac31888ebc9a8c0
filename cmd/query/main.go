// Command query answers natural-language questions about stored action items.
// The model's SQL passes a static safety gate and runs on a read-only
// connection; when translation produces nothing executable the command falls
// back to structured parameter parsing against the storage layer directly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

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
		fmt.Fprintln(os.Stderr, "database not found, run import and analyze first")
		os.Exit(2)
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	translator := insights.NewQueryTranslator(&client, cfg.Model, cfg.Aliases)

	svc := &insights.QueryService{
		Translator: translator,
		Limiter:    insights.NewRateLimiter(0, 0),
		OpenReadOnly: func() (insights.RowSource, error) {
			return store.OpenReadOnly(cfg.DBPath)
		},
	}

	ctx := context.Background()

	result, err := svc.Execute(ctx, cfg.Question)
	switch {
	case err == nil:
		if cfg.ShowSQL {
			fmt.Fprintf(os.Stdout, "SQL: %s\n%s\n\n", result.SQL, result.Explanation)
		}
		printGroups(result.Groups)
	case errors.Is(err, insights.ErrCouldNotTranslate):
		fmt.Fprintln(os.Stderr, "warning: could not translate question, using structured search")
		groups, err := structuredFallback(ctx, translator, cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		printGroups(groups)
	default:
		var violation *insights.SafetyViolation
		if errors.As(err, &violation) {
			fmt.Fprintf(os.Stderr, "query rejected: %s\n", violation.Reason)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// structuredFallback answers the question without model-written SQL: parse
// filters, run fixed storage-layer queries, group the results.
func structuredFallback(ctx context.Context, translator *insights.QueryTranslator, cfg Config) ([]insights.Group, error) {
	params, err := translator.ParseQueryParams(ctx, cfg.Question)
	if err != nil {
		params = insights.FallbackParseQuery(cfg.Question)
	}

	db, err := store.OpenReadOnly(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	name := params.AssignerName
	if mapped, ok := cfg.Aliases[name]; ok {
		name = mapped
	}

	var instances []insights.TaskInstance
	if name != "" {
		instances, err = db.ItemsByAssigner(name, params.Status, params.RecentDays)
	} else {
		instances, err = db.Items(params.Status, params.RecentDays)
	}
	if err != nil {
		return nil, err
	}
	return insights.GroupSimilar(instances, insights.GroupingThreshold), nil
}

func printGroups(groups []insights.Group) {
	if len(groups) == 0 {
		fmt.Fprintln(os.Stdout, "No matching action items found.")
		return
	}

	fmt.Fprintf(os.Stdout, "Found %d action item(s):\n\n", len(groups))
	for i, g := range groups {
		fmt.Fprintf(os.Stdout, "%d. %s", i+1, g.CanonicalTask)
		if g.Count > 1 {
			fmt.Fprintf(os.Stdout, " (mentioned %d times)", g.Count)
		}
		fmt.Fprintln(os.Stdout)

		if g.Assigner != "" {
			fmt.Fprintf(os.Stdout, "   from: %s\n", g.Assigner)
		}
		switch {
		case g.FirstDate != "" && g.LastDate != "" && g.FirstDate != g.LastDate:
			fmt.Fprintf(os.Stdout, "   when: %s to %s\n", g.FirstDate, g.LastDate)
		case g.FirstDate != "":
			fmt.Fprintf(os.Stdout, "   when: %s\n", g.FirstDate)
		}
		if g.Status != "" {
			fmt.Fprintf(os.Stdout, "   status: %s\n", g.Status)
		}
		if ctx := firstContext(g.Instances); ctx != "" {
			fmt.Fprintf(os.Stdout, "   context: %q\n", ctx)
		}
		fmt.Fprintln(os.Stdout)
	}
}

func firstContext(instances []insights.TaskInstance) string {
	for _, inst := range instances {
		if inst.Context != "" {
			return inst.Context
		}
	}
	return ""
}
