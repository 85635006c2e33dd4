package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/oracle"
	"github.com/yutsang/ai-news/internal/record"
)

func testEngineConfig() *config.EngineConfig {
	cfg := &config.EngineConfig{
		Sources: []config.Source{
			{ID: "hket", DateLayout: "2006-01-02", Priority: 1},
			{ID: "wenweipo", DateLayout: "2006-01-02", Priority: 2},
		},
		Keywords: []config.KeywordRule{
			{AssetType: record.AssetOffice, Terms: []string{"寫字樓", "office"}},
			{AssetType: record.AssetRetail, Terms: []string{"商舖"}},
		},
		Thresholds: map[record.AssetType]int64{
			record.AssetOffice: 100_000_000,
		},
		DefaultThreshold: 50_000_000,
		Ranker:           config.RankerConfig{MinN: 1, MaxN: 10},
		Dedup: config.DedupConfig{
			PrefilterThreshold: 0.3,
			OracleTimeoutSec:   15,
			MaxConcurrent:      4,
		},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func raw(t *testing.T, sourceID string, kind record.RecordKind, fields map[string]any) record.RawRecord {
	t.Helper()

	fields["source_id"] = sourceID
	fields["record_kind"] = string(kind)
	payload, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return record.RawRecord{SourceID: sourceID, Kind: kind, Payload: payload}
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	svc := New(testEngineConfig(), oracle.KeywordOracle{}, zerolog.Nop())

	batch := []record.RawRecord{
		raw(t, "hket", record.KindTransaction, map[string]any{
			"description": "中環中心 18樓 A室 寫字樓成交",
			"date":        "2026-08-24",
			"price":       "4.5億",
			"area":        "12,000呎",
		}),
		// Same deal reported by a second source on the same day.
		raw(t, "wenweipo", record.KindTransaction, map[string]any{
			"description": "中環中心 18樓 A室 寫字樓成交",
			"date":        "2026-08-24",
			"price":       "4.5億",
			"area":        "12,000呎",
		}),
		raw(t, "hket", record.KindTransaction, map[string]any{
			"description": "觀塘商舖易手",
			"date":        "2026-08-25",
			"price":       "2800萬",
			"area":        "900呎",
		}),
		// Date does not match the registered layout: rejected, not fatal.
		raw(t, "hket", record.KindTransaction, map[string]any{
			"description": "旺角舖位成交",
			"date":        "25/08/2026",
			"price":       "1200萬",
			"area":        "500呎",
		}),
		raw(t, "hket", record.KindNews, map[string]any{
			"description": "甲廈租金連跌三個月",
			"date":        "2026-08-25",
			"summary":     "中環甲級寫字樓租金持續受壓，市場成交疏落。",
		}),
		raw(t, "wenweipo", record.KindNews, map[string]any{
			"description": "甲廈租金連跌三個月",
			"date":        "2026-08-25",
			"summary":     "中環甲級寫字樓租金持續受壓，市場成交疏落。",
		}),
		raw(t, "hket", record.KindNews, map[string]any{
			"description": "新地屯門地皮以48億投得",
			"date":        "2026-08-26",
			"summary":     "新地以48億元投得屯門住宅地皮，每呎樓面地價約8000元。",
		}),
		{SourceID: "hket", Kind: record.RecordKind("listing"), Payload: json.RawMessage(`{}`)},
	}

	result, err := svc.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Input != len(batch) {
		t.Fatalf("unexpected input count: %d", result.Input)
	}

	if len(result.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d: %+v", len(result.Transactions), result.Transactions)
	}
	var merged *record.TransactionRecord
	for i := range result.Transactions {
		if result.Transactions[i].DedupFlag == record.DedupMerged {
			merged = &result.Transactions[i]
		}
	}
	if merged == nil {
		t.Fatalf("expected one merged transaction: %+v", result.Transactions)
	}
	if merged.SourceID != "hket" {
		t.Fatalf("higher-priority source must survive, got %s", merged.SourceID)
	}
	if merged.MergedCount != 1 {
		t.Fatalf("unexpected merged count: %d", merged.MergedCount)
	}
	if merged.AssetType != record.AssetOffice {
		t.Fatalf("unexpected asset type: %s", merged.AssetType)
	}
	if !merged.IsBigDeal {
		t.Fatalf("4.5億 office deal must be flagged big")
	}
	if merged.PropertyName != "中環中心" || merged.Floor != "18" || merged.Unit != "A" {
		t.Fatalf("property descriptor not parsed: %+v", merged)
	}

	if len(result.News) != 2 {
		t.Fatalf("expected 2 news records, got %d: %+v", len(result.News), result.News)
	}
	for i := 1; i < len(result.News); i++ {
		if result.News[i].RelevanceScore > result.News[i-1].RelevanceScore {
			t.Fatalf("news not sorted by relevance: %+v", result.News)
		}
	}

	if len(result.Rejections) != 2 {
		t.Fatalf("expected 2 rejections, got %d: %+v", len(result.Rejections), result.Rejections)
	}
	var sawDate, sawKind bool
	for _, rej := range result.Rejections {
		if strings.Contains(rej.Reason, "date") {
			sawDate = true
		}
		if strings.Contains(rej.Reason, "kind") {
			sawKind = true
		}
	}
	if !sawDate || !sawKind {
		t.Fatalf("unexpected rejection reasons: %+v", result.Rejections)
	}

	if result.SuppressedTxn != 1 || result.SuppressedNews != 1 {
		t.Fatalf("unexpected suppression counts: txn=%d news=%d", result.SuppressedTxn, result.SuppressedNews)
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	t.Parallel()

	svc := New(testEngineConfig(), oracle.KeywordOracle{}, zerolog.Nop())
	result, err := svc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Input != 0 || len(result.Transactions) != 0 || len(result.News) != 0 {
		t.Fatalf("unexpected result for empty batch: %+v", result)
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	svc := New(testEngineConfig(), oracle.KeywordOracle{}, zerolog.Nop())
	batch := []record.RawRecord{
		raw(t, "hket", record.KindTransaction, map[string]any{
			"description": "中環中心 18樓 A室 寫字樓成交",
			"date":        "2026-08-24",
			"price":       "4.5億",
			"area":        "12,000呎",
		}),
		raw(t, "wenweipo", record.KindTransaction, map[string]any{
			"description": "中環中心 18樓 A室 寫字樓成交",
			"date":        "2026-08-24",
			"price":       "4.5億",
			"area":        "12,000呎",
		}),
	}

	first, err := svc.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(first.Transactions) != len(second.Transactions) {
		t.Fatalf("runs disagree: %d vs %d", len(first.Transactions), len(second.Transactions))
	}
}
