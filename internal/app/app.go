// Package app implements the CLI commands.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/logging"
	"github.com/yutsang/ai-news/internal/oracle"
	"github.com/yutsang/ai-news/internal/pipeline"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "run":
		return runBatch(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "report":
		return runReport(args[1:])
	case "serve":
		return runServe(args[1:])
	case "health":
		return runHealth(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "ai-news CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  ai-news <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run       Process a batch of raw records end to end")
	fmt.Fprintln(os.Stderr, "  validate  Validate raw record JSON files against the payload schema")
	fmt.Fprintln(os.Stderr, "  report    Render the weekly markdown digest from stored batches")
	fmt.Fprintln(os.Stderr, "  serve     Start the query API server")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"ai-news <command> -h\" for command-specific flags.")
}

func bootstrap() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// selectOracle picks the chat client when an API key is configured and the
// deterministic lexical oracle otherwise.
func selectOracle(cfg *config.Config, offline bool, logger zerolog.Logger) pipeline.Oracle {
	if offline || strings.TrimSpace(cfg.AIAPIKey) == "" {
		logger.Info().Msg("using offline lexical oracle")
		return oracle.KeywordOracle{}
	}
	return oracle.NewClient(oracle.ClientOptions{
		Endpoint:    cfg.AIEndpoint,
		APIKey:      cfg.AIAPIKey,
		Model:       cfg.AIModel,
		MaxTokens:   cfg.AIMaxTokens,
		Temperature: cfg.AITemperature,
	}, logger)
}
