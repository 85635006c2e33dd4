// Package classify assigns an asset-type category to deduplicated
// transactions and evaluates big-deal thresholds against it.
package classify

import (
	"strings"

	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/record"
)

// Classifier holds the injected keyword and threshold tables. Both are
// configuration data, never code.
type Classifier struct {
	rules            []config.KeywordRule
	thresholds       map[record.AssetType]int64
	defaultThreshold int64
}

func New(cfg *config.EngineConfig) *Classifier {
	return &Classifier{
		rules:            cfg.Keywords,
		thresholds:       cfg.Thresholds,
		defaultThreshold: cfg.DefaultThreshold,
	}
}

// Classify annotates the record with its asset type and big-deal flag.
// The keyword table is priority-ordered: the first matching category wins.
func (c *Classifier) Classify(txn *record.TransactionRecord) {
	txn.AssetType = c.detectAssetType(txn)
	txn.IsBigDeal = txn.Price >= c.Threshold(txn.AssetType)
}

// Threshold returns the big-deal threshold for the asset type. Unknown
// types fall back to the conservative default rather than always-false.
func (c *Classifier) Threshold(assetType record.AssetType) int64 {
	if threshold, ok := c.thresholds[assetType]; ok {
		return threshold
	}
	return c.defaultThreshold
}

func (c *Classifier) detectAssetType(txn *record.TransactionRecord) record.AssetType {
	haystack := strings.ToLower(strings.Join([]string{
		txn.Description,
		txn.PropertyName,
		txn.District,
	}, " "))

	for _, rule := range c.rules {
		for _, term := range rule.Terms {
			if term == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(term)) {
				return rule.AssetType
			}
		}
	}
	return record.AssetUnknown
}
