package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"botfarm.ai/internal/persistence/usagedb"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		dbPath  = flag.String("db", "", "usage db path (default: <data>/usage.sqlite)")
		by      = flag.String("by", "agent", "group totals by: agent|model")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[usage] ", log.LstdFlags)

	path := *dbPath
	if path == "" {
		path = filepath.Join(*dataDir, "usage.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		logger.Fatalf("usage db: %v", err)
	}
	c, err := usagedb.OpenSQLite(path, usagedb.Options{Logger: logger})
	if err != nil {
		logger.Fatalf("open: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := report(ctx, os.Stdout, c, *by); err != nil {
		logger.Fatalf("%v", err)
	}
}

func report(ctx context.Context, w io.Writer, c *usagedb.Collector, by string) error {
	var (
		totals []usagedb.Total
		err    error
	)
	switch by {
	case "agent":
		totals, err = c.TotalsByAgent(ctx)
	case "model":
		totals, err = c.TotalsByModel(ctx)
	default:
		return fmt.Errorf("bad -by %q (want agent|model)", by)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tPROMPTS\tPROMPT_TOKENS\tCOMPLETION_TOKENS\tCOST\n", by)
	var sum float64
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.6f\n", t.Key, t.Prompts, t.PromptTokens, t.CompletionTokens, t.Cost)
		sum += t.Cost
	}
	fmt.Fprintf(tw, "total\t\t\t\t%.6f\n", sum)
	if err := tw.Flush(); err != nil {
		return err
	}

	counts, err := c.OutcomeCounts(ctx)
	if err != nil {
		return err
	}
	outcomes := make([]string, 0, len(counts))
	for k := range counts {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)
	fmt.Fprintln(w)
	for _, k := range outcomes {
		fmt.Fprintf(w, "syncs %s: %d\n", k, counts[k])
	}
	return nil
}
