package classify

import (
	"testing"

	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/record"
)

func testClassifier() *Classifier {
	return New(&config.EngineConfig{
		Keywords: []config.KeywordRule{
			{AssetType: record.AssetOffice, Terms: []string{"寫字樓", "office"}},
			{AssetType: record.AssetRetail, Terms: []string{"商舖", "retail"}},
			{AssetType: record.AssetCarpark, Terms: []string{"車位", "carpark"}},
		},
		Thresholds: map[record.AssetType]int64{
			record.AssetOffice:  100_000_000,
			record.AssetRetail:  50_000_000,
			record.AssetCarpark: 2_000_000,
		},
		DefaultThreshold: 50_000_000,
	})
}

func TestClassify_FirstMatchWins(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	txn := record.TransactionRecord{Description: "尖沙咀寫字樓連商舖成交", Price: 10_000_000}
	c.Classify(&txn)
	if txn.AssetType != record.AssetOffice {
		t.Fatalf("expected the earlier office rule to win, got %s", txn.AssetType)
	}
}

func TestClassify_BigDealBoundaryIsInclusive(t *testing.T) {
	t.Parallel()

	c := testClassifier()

	at := record.TransactionRecord{Description: "中環寫字樓成交", Price: 100_000_000}
	c.Classify(&at)
	if !at.IsBigDeal {
		t.Fatalf("price exactly at the threshold must be a big deal")
	}

	below := record.TransactionRecord{Description: "中環寫字樓成交", Price: 99_999_999}
	c.Classify(&below)
	if below.IsBigDeal {
		t.Fatalf("price one below the threshold must not be a big deal")
	}
}

func TestClassify_UnknownTypeUsesDefaultThreshold(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	txn := record.TransactionRecord{Description: "乙類工廈全幢易手", Price: 60_000_000}
	c.Classify(&txn)
	if txn.AssetType != record.AssetUnknown {
		t.Fatalf("unexpected asset type: %s", txn.AssetType)
	}
	if !txn.IsBigDeal {
		t.Fatalf("unknown asset type must use the default threshold")
	}
}

func TestClassify_CarparkThreshold(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	txn := record.TransactionRecord{Description: "山頂車位以280萬售出", Price: 2_800_000}
	c.Classify(&txn)
	if txn.AssetType != record.AssetCarpark {
		t.Fatalf("unexpected asset type: %s", txn.AssetType)
	}
	if !txn.IsBigDeal {
		t.Fatalf("carpark above its own threshold must be a big deal")
	}
}

func TestClassify_MatchesPropertyNameAndDistrict(t *testing.T) {
	t.Parallel()

	c := testClassifier()
	txn := record.TransactionRecord{PropertyName: "Central Office Tower", Price: 1}
	c.Classify(&txn)
	if txn.AssetType != record.AssetOffice {
		t.Fatalf("expected keyword match against property name, got %s", txn.AssetType)
	}
}
