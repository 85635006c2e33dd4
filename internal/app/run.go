package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yutsang/ai-news/internal/cli"
	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/globaltime"
	"github.com/yutsang/ai-news/internal/pipeline"
	"github.com/yutsang/ai-news/internal/record"
	"github.com/yutsang/ai-news/internal/store"
)

func runBatch(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Path to a JSON file holding the raw record batch (required)")
	output := fs.String("output", "", "Path for the JSON result (default stdout)")
	save := fs.Bool("save", false, "Persist the processed batch to the database")
	offline := fs.Bool("offline", false, "Use the lexical oracle instead of the chat API")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")

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

	if strings.TrimSpace(*input) == "" {
		fmt.Fprintln(os.Stderr, "--input is required")
		return 2
	}

	cfg, logger, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	engineCfg, err := config.LoadEngine(cfg.EngineConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load engine config: %v\n", err)
		return 1
	}

	batch, err := readBatch(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read batch: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	startedAt := globaltime.UTC()
	svc := pipeline.New(engineCfg, selectOracle(cfg, *offline, logger), logger)
	result, err := svc.Run(ctx, batch)
	if err != nil {
		logger.Error().Err(err).Msg("batch run failed")
		fmt.Fprintf(os.Stderr, "Batch run failed: %v\n", err)
		return 1
	}

	if *save {
		if err := cfg.RequireDatabase(); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		pool, err := store.NewPool(ctx, cfg)
		if err != nil {
			logger.Error().Err(err).Msg("database connection failed")
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			return 1
		}
		defer pool.Close()

		runID, err := pool.SaveRun(ctx, store.RunSummary{
			StartedAt:   startedAt,
			FinishedAt:  globaltime.UTC(),
			Input:       result.Input,
			Rejected:    len(result.Rejections),
			Suppressed:  result.SuppressedTxn + result.SuppressedNews,
			OracleCalls: result.OracleCalls,
		}, result.Transactions, result.News, result.Rejections)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save batch: %v\n", err)
			return 1
		}
		logger.Info().Int64("run_id", runID).Msg("batch saved")
	}

	if err := writeResult(*output, result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write result: %v\n", err)
		return 1
	}
	return 0
}

func readBatch(path string) ([]record.RawRecord, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	var batch []record.RawRecord
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("parse %q: %w", path, err)
	}
	return batch, nil
}

func writeResult(path string, result pipeline.Result) error {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	encoded = append(encoded, '\n')

	if strings.TrimSpace(path) == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}
