package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/yutsang/ai-news/internal/record"
	"github.com/yutsang/ai-news/internal/schema"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ai-news validate <file.json> [...]")
		return 2
	}

	failures := 0
	for _, path := range paths {
		if err := validateFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failures++
			continue
		}
		fmt.Printf("%s: ok\n", path)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failures, len(paths))
		return 1
	}
	return 0
}

// validateFile accepts either a single raw record object or a batch array.
func validateFile(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var batch []record.RawRecord
	if err := json.Unmarshal(payload, &batch); err != nil {
		var single record.RawRecord
		if err := json.Unmarshal(payload, &single); err != nil {
			return fmt.Errorf("not a raw record or batch array: %w", err)
		}
		batch = []record.RawRecord{single}
	}

	for i, raw := range batch {
		if _, err := schema.ValidateRawRecordPayload(raw.Payload); err != nil {
			return fmt.Errorf("record %d (source %s): %w", i, raw.SourceID, err)
		}
	}
	return nil
}
