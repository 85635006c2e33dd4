package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yutsang/ai-news/internal/cli"
	"github.com/yutsang/ai-news/internal/period"
	"github.com/yutsang/ai-news/internal/report"
	"github.com/yutsang/ai-news/internal/store"
)

func runReport(args []string) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	weekFlag := fs.String("week", "", "Any YYYY-MM-DD date inside the wanted reporting week (default: current week)")
	output := fs.String("output", "", "Path for the markdown digest (default stdout)")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, logger, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if err := cfg.RequireDatabase(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}

	week := period.Current()
	if raw := strings.TrimSpace(*weekFlag); raw != "" {
		day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --week %q: expected YYYY-MM-DD\n", raw)
			return 2
		}
		week = period.For(day)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := store.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	txns, err := pool.TransactionsInPeriod(ctx, store.TransactionQuery{Week: week})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load transactions: %v\n", err)
		return 1
	}
	news, err := pool.NewsInPeriod(ctx, week, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load news: %v\n", err)
		return 1
	}

	digest := report.Render(report.Digest{
		Week:         week,
		Transactions: txns,
		News:         news,
	})

	if strings.TrimSpace(*output) == "" {
		fmt.Print(digest)
		return 0
	}
	if err := os.WriteFile(*output, []byte(digest), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write digest: %v\n", err)
		return 1
	}
	logger.Info().Str("path", *output).Str("week", week.Label()).Msg("digest written")
	return 0
}
