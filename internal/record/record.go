// Package record defines the canonical record shapes produced by the
// normalization, deduplication, and classification engine.
package record

import (
	"encoding/json"
	"math"
	"time"
)

// RecordKind distinguishes the two ingestion streams.
type RecordKind string

const (
	KindTransaction RecordKind = "transaction"
	KindNews        RecordKind = "news"
)

// DedupFlag is set exclusively by the deduplication engine.
type DedupFlag string

const (
	DedupUnique      DedupFlag = "unique"
	DedupMerged      DedupFlag = "merged"
	DedupNeedsReview DedupFlag = "needs-review"
)

// AssetNature distinguishes sales from leases.
type AssetNature string

const (
	NatureSale    AssetNature = "sale"
	NatureLease   AssetNature = "lease"
	NatureUnknown AssetNature = "unknown"
)

// AssetType is assigned exclusively by the classifier.
type AssetType string

const (
	AssetResidential AssetType = "residential"
	AssetOffice      AssetType = "office"
	AssetRetail      AssetType = "retail"
	AssetHotel       AssetType = "hotel"
	AssetLand        AssetType = "land"
	AssetCarpark     AssetType = "carpark"
	AssetCommercial  AssetType = "commercial"
	AssetUnknown     AssetType = "unknown"
)

// AreaUnit is the declared basis of an area figure. Units are carried, never
// silently converted, so mismatches stay visible downstream.
type AreaUnit string

const (
	UnitSqft AreaUnit = "sqft"
	UnitSqm  AreaUnit = "sqm"
)

// Area is a measured floor area plus its basis unit.
type Area struct {
	Value float64  `json:"value"`
	Unit  AreaUnit `json:"unit"`
}

// RawRecord is a source-specific payload handed to the engine by value.
// The payload layout is owned by the adapter that produced it; the engine
// only requires that SourceID be pre-registered.
type RawRecord struct {
	SourceID string          `json:"source_id"`
	Kind     RecordKind      `json:"record_kind"`
	Payload  json.RawMessage `json:"payload"`
}

// TransactionRecord is the canonical shape of one property transaction.
type TransactionRecord struct {
	Date         time.Time   `json:"date"`
	District     string      `json:"district,omitempty"`
	PropertyName string      `json:"property_name"`
	Floor        string      `json:"floor"`
	Unit         string      `json:"unit"`
	Nature       AssetNature `json:"asset_nature"`
	Price        int64       `json:"price"`
	Area         Area        `json:"area"`
	UnitPrice    int64       `json:"unit_price"`
	Yield        *float64    `json:"yield,omitempty"`
	Seller       string      `json:"seller,omitempty"`
	Buyer        string      `json:"buyer,omitempty"`
	SourceID     string      `json:"source_id"`
	SourceURL    string      `json:"source_url,omitempty"`

	Description string `json:"description,omitempty"`

	DedupFlag   DedupFlag `json:"dedup_flag"`
	MergedCount int       `json:"merged_count,omitempty"`

	AssetType AssetType `json:"asset_type,omitempty"`
	IsBigDeal bool      `json:"is_big_deal,omitempty"`
}

// NewsRecord is the canonical shape of one market news article.
type NewsRecord struct {
	Date      time.Time `json:"date"`
	SourceID  string    `json:"source_id"`
	Topic     string    `json:"topic"`
	Summary   string    `json:"summary,omitempty"`
	AssetType AssetType `json:"asset_type,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Language  string    `json:"language,omitempty"`

	DedupFlag   DedupFlag `json:"dedup_flag"`
	MergedCount int       `json:"merged_count,omitempty"`

	RelevanceScore float64 `json:"relevance_score"`
}

// Rejection reports a record the normalizer excluded. Rejections are
// surfaced to the caller, never swallowed.
type Rejection struct {
	SourceID  string `json:"source_id"`
	SourceURL string `json:"source_url,omitempty"`
	Reason    string `json:"reason"`
}

// UnitPriceTolerance is the rounding tolerance for the derived unit price.
const UnitPriceTolerance = 1.0

// DeriveUnitPrice returns price/area rounded to the nearest whole unit, or 0
// when the area is unknown.
func DeriveUnitPrice(price int64, area Area) int64 {
	if area.Value <= 0 {
		return 0
	}
	return int64(math.Round(float64(price) / area.Value))
}

// FieldCount counts populated optional fields. The deduplication engine uses
// it to pick the highest-information representative on ties.
func (t TransactionRecord) FieldCount() int {
	count := 0
	for _, s := range []string{t.District, t.PropertyName, t.Floor, t.Unit, t.Seller, t.Buyer, t.SourceURL} {
		if s != "" && s != "unknown" {
			count++
		}
	}
	if t.Nature != NatureUnknown && t.Nature != "" {
		count++
	}
	if t.Yield != nil {
		count++
	}
	return count
}

// FieldCount mirrors TransactionRecord.FieldCount for news records.
func (n NewsRecord) FieldCount() int {
	count := 0
	for _, s := range []string{n.Summary, n.SourceURL, n.Language, string(n.AssetType)} {
		if s != "" {
			count++
		}
	}
	return count
}
