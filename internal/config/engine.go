package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yutsang/ai-news/internal/record"
)

// Engine configuration validation errors.
var (
	ErrNoSources            = errors.New("at least one source is required")
	ErrSourceMissingID      = errors.New("source id is required")
	ErrSourceMissingLayout  = errors.New("source date_layout is required")
	ErrTwoDigitYearLayout   = errors.New("source date_layout must use a four-digit year")
	ErrDuplicateSource      = errors.New("duplicate source id")
	ErrNoKeywordRules       = errors.New("at least one keyword rule is required")
	ErrKeywordRuleEmpty     = errors.New("keyword rule must list at least one term")
	ErrNoThresholds         = errors.New("big-deal thresholds are required")
	ErrInvalidThreshold     = errors.New("big-deal threshold must be positive")
	ErrMissingDefaultT      = errors.New("default big-deal threshold is required")
	ErrInvalidRankerBounds  = errors.New("ranker min_n must not exceed max_n")
	ErrInvalidRankerFloor   = errors.New("ranker floor must be within the 0..10 score scale")
	ErrInvalidPrefilter     = errors.New("dedup prefilter_threshold must be in (0, 1]")
	ErrInvalidOracleTimeout = errors.New("oracle timeout must be positive")
)

// Source declares how one registered adapter presents its records. Date
// formats are declared here, never inferred per record.
type Source struct {
	ID         string `yaml:"id"`
	DateLayout string `yaml:"date_layout"`
	Priority   int    `yaml:"priority"`
}

// KeywordRule maps an ordered list of description keywords to an asset type.
type KeywordRule struct {
	AssetType record.AssetType `yaml:"asset_type"`
	Terms     []string         `yaml:"terms"`
}

// RankerConfig bounds the ranked news output.
type RankerConfig struct {
	MinN  int     `yaml:"min_n"`
	MaxN  int     `yaml:"max_n"`
	Floor float64 `yaml:"floor"`
}

// DedupConfig tunes the similarity stage.
type DedupConfig struct {
	PrefilterThreshold float64 `yaml:"prefilter_threshold"`
	OracleTimeoutSec   int     `yaml:"oracle_timeout_sec"`
	MaxConcurrent      int     `yaml:"max_concurrent"`
}

// OracleTimeout returns the per-call oracle timeout.
func (d DedupConfig) OracleTimeout() time.Duration {
	return time.Duration(d.OracleTimeoutSec) * time.Second
}

// EngineConfig is injected configuration data: source registry, classifier
// tables, and ranker/dedup tuning. The engine never hard-codes any of it.
type EngineConfig struct {
	Sources          []Source                   `yaml:"sources"`
	Keywords         []KeywordRule              `yaml:"keywords"`
	Thresholds       map[record.AssetType]int64 `yaml:"big_deal_thresholds"`
	DefaultThreshold int64                      `yaml:"default_big_deal_threshold"`
	Ranker           RankerConfig               `yaml:"ranker"`
	Dedup            DedupConfig                `yaml:"dedup"`
}

// LoadEngine reads and validates the YAML engine configuration file.
func LoadEngine(path string) (*EngineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read engine config %s: %w", path, err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse engine config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *EngineConfig) applyDefaults() {
	if c.Ranker.MaxN == 0 {
		c.Ranker.MaxN = 15
	}
	if c.Ranker.MinN == 0 {
		c.Ranker.MinN = 5
	}
	if c.Dedup.PrefilterThreshold == 0 {
		c.Dedup.PrefilterThreshold = 0.3
	}
	if c.Dedup.OracleTimeoutSec == 0 {
		c.Dedup.OracleTimeoutSec = 15
	}
	if c.Dedup.MaxConcurrent == 0 {
		c.Dedup.MaxConcurrent = 4
	}
}

func (c *EngineConfig) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		id := strings.TrimSpace(src.ID)
		if id == "" {
			return fmt.Errorf("sources[%d]: %w", i, ErrSourceMissingID)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("sources[%d] %q: %w", i, id, ErrDuplicateSource)
		}
		seen[id] = struct{}{}
		layout := strings.TrimSpace(src.DateLayout)
		if layout == "" {
			return fmt.Errorf("sources[%d] %q: %w", i, id, ErrSourceMissingLayout)
		}
		// Ambiguous two-digit-year dates are rejected rather than guessed.
		if !strings.Contains(layout, "2006") {
			return fmt.Errorf("sources[%d] %q layout %q: %w", i, id, layout, ErrTwoDigitYearLayout)
		}
	}

	if len(c.Keywords) == 0 {
		return ErrNoKeywordRules
	}
	for i, rule := range c.Keywords {
		if len(rule.Terms) == 0 {
			return fmt.Errorf("keywords[%d] (%s): %w", i, rule.AssetType, ErrKeywordRuleEmpty)
		}
	}

	if len(c.Thresholds) == 0 {
		return ErrNoThresholds
	}
	for assetType, threshold := range c.Thresholds {
		if threshold <= 0 {
			return fmt.Errorf("threshold for %s: %w", assetType, ErrInvalidThreshold)
		}
	}
	if c.DefaultThreshold <= 0 {
		return ErrMissingDefaultT
	}

	if c.Ranker.MinN < 0 || c.Ranker.MaxN < 1 || c.Ranker.MinN > c.Ranker.MaxN {
		return ErrInvalidRankerBounds
	}
	if c.Ranker.Floor < 0 || c.Ranker.Floor > 10 {
		return ErrInvalidRankerFloor
	}

	if c.Dedup.PrefilterThreshold <= 0 || c.Dedup.PrefilterThreshold > 1 {
		return ErrInvalidPrefilter
	}
	if c.Dedup.OracleTimeoutSec <= 0 {
		return ErrInvalidOracleTimeout
	}

	return nil
}

// SourceByID returns the registered source declaration, if any.
func (c *EngineConfig) SourceByID(id string) (Source, bool) {
	for _, src := range c.Sources {
		if src.ID == id {
			return src, true
		}
	}
	return Source{}, false
}
