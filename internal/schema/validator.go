// Package schema validates raw record payloads delivered by source adapters
// before they reach the normalization engine.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_record.schema.json
var rawRecordSchemaJSON string

// RawPayload is the decoded adapter payload. Every value-carrying field stays
// a raw string; parsing and unit handling belong to the normalizer.
type RawPayload struct {
	SourceID    string  `json:"source_id"`
	RecordKind  string  `json:"record_kind"`
	Description string  `json:"description"`
	Date        *string `json:"date,omitempty"`
	URL         *string `json:"url,omitempty"`
	Price       *string `json:"price,omitempty"`
	Area        *string `json:"area,omitempty"`
	Nature      *string `json:"nature,omitempty"`
	Yield       *string `json:"yield,omitempty"`
	District    *string `json:"district,omitempty"`
	Seller      *string `json:"seller,omitempty"`
	Buyer       *string `json:"buyer,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	BodyHTML    *string `json:"body_html,omitempty"`
	Language    *string `json:"language,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawRecordPayload checks a payload against the embedded schema and
// decodes it.
func ValidateRawRecordPayload(payload json.RawMessage) (*RawPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var item RawPayload
	if err := json.Unmarshal(normalized, &item); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if strings.TrimSpace(item.SourceID) == "" {
		return nil, fmt.Errorf("source_id must not be blank")
	}
	if strings.TrimSpace(item.Description) == "" {
		return nil, fmt.Errorf("description must not be blank")
	}

	return &item, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("raw_record.schema.json", strings.NewReader(rawRecordSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("raw_record.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(payload json.RawMessage) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := ensureEOF(decoder); err != nil {
		return nil, err
	}
	return value, nil
}

func ensureEOF(decoder *json.Decoder) error {
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("payload must contain exactly one JSON document")
	}
	return nil
}
