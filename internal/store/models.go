package store

import (
	"time"

	"github.com/yutsang/ai-news/internal/record"
)

// BatchRun records one engine run for traceability.
type BatchRun struct {
	RunID        int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	StartedAt    time.Time  `gorm:"column:started_at;type:timestamptz;not null"`
	FinishedAt   *time.Time `gorm:"column:finished_at;type:timestamptz"`
	InputCount   int        `gorm:"column:input_count;type:integer;not null;default:0"`
	Transactions int        `gorm:"column:transactions;type:integer;not null;default:0"`
	NewsItems    int        `gorm:"column:news_items;type:integer;not null;default:0"`
	Rejected     int        `gorm:"column:rejected;type:integer;not null;default:0"`
	Suppressed   int        `gorm:"column:suppressed;type:integer;not null;default:0"`
	OracleCalls  int        `gorm:"column:oracle_calls;type:integer;not null;default:0"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (BatchRun) TableName() string { return "engine.batch_runs" }

// Transaction maps engine.transactions.
type Transaction struct {
	TransactionID int64     `gorm:"column:transaction_id;primaryKey;autoIncrement"`
	RunID         int64     `gorm:"column:run_id;type:bigint;not null;index"`
	Date          time.Time `gorm:"column:date;type:date;not null;index"`
	District      string    `gorm:"column:district;type:text;not null;default:''"`
	PropertyName  string    `gorm:"column:property_name;type:text;not null"`
	Floor         string    `gorm:"column:floor;type:text;not null;default:unknown"`
	Unit          string    `gorm:"column:unit;type:text;not null;default:unknown"`
	Nature        string    `gorm:"column:nature;type:text;not null;default:unknown"`
	Price         int64     `gorm:"column:price;type:bigint;not null"`
	AreaValue     float64   `gorm:"column:area_value;type:double precision;not null;default:0"`
	AreaUnit      string    `gorm:"column:area_unit;type:text;not null;default:sqft"`
	UnitPrice     int64     `gorm:"column:unit_price;type:bigint;not null;default:0"`
	Yield         *float64  `gorm:"column:yield;type:double precision"`
	Seller        string    `gorm:"column:seller;type:text;not null;default:''"`
	Buyer         string    `gorm:"column:buyer;type:text;not null;default:''"`
	SourceID      string    `gorm:"column:source_id;type:text;not null"`
	SourceURL     string    `gorm:"column:source_url;type:text;not null;default:''"`
	Description   string    `gorm:"column:description;type:text;not null;default:''"`
	DedupFlag     string    `gorm:"column:dedup_flag;type:text;not null"`
	MergedCount   int       `gorm:"column:merged_count;type:integer;not null;default:0"`
	AssetType     string    `gorm:"column:asset_type;type:text;not null;default:unknown"`
	IsBigDeal     bool      `gorm:"column:is_big_deal;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Transaction) TableName() string { return "engine.transactions" }

// NewsItem maps engine.news_items.
type NewsItem struct {
	NewsItemID     int64     `gorm:"column:news_item_id;primaryKey;autoIncrement"`
	RunID          int64     `gorm:"column:run_id;type:bigint;not null;index"`
	Date           time.Time `gorm:"column:date;type:date;not null;index"`
	SourceID       string    `gorm:"column:source_id;type:text;not null"`
	Topic          string    `gorm:"column:topic;type:text;not null"`
	Summary        string    `gorm:"column:summary;type:text;not null;default:''"`
	AssetType      string    `gorm:"column:asset_type;type:text;not null;default:''"`
	SourceURL      string    `gorm:"column:source_url;type:text;not null;default:''"`
	Language       string    `gorm:"column:language;type:text;not null;default:''"`
	DedupFlag      string    `gorm:"column:dedup_flag;type:text;not null"`
	MergedCount    int       `gorm:"column:merged_count;type:integer;not null;default:0"`
	RelevanceScore float64   `gorm:"column:relevance_score;type:double precision;not null;default:0"`
	Rank           int       `gorm:"column:rank;type:integer;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (NewsItem) TableName() string { return "engine.news_items" }

// RejectedRecord maps engine.rejected_records.
type RejectedRecord struct {
	RejectedRecordID int64     `gorm:"column:rejected_record_id;primaryKey;autoIncrement"`
	RunID            int64     `gorm:"column:run_id;type:bigint;not null;index"`
	SourceID         string    `gorm:"column:source_id;type:text;not null"`
	SourceURL        string    `gorm:"column:source_url;type:text;not null;default:''"`
	Reason           string    `gorm:"column:reason;type:text;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RejectedRecord) TableName() string { return "engine.rejected_records" }

func autoMigrateModels() []any {
	return []any{
		&BatchRun{},
		&Transaction{},
		&NewsItem{},
		&RejectedRecord{},
	}
}

func transactionModel(runID int64, txn record.TransactionRecord) Transaction {
	return Transaction{
		RunID:        runID,
		Date:         txn.Date,
		District:     txn.District,
		PropertyName: txn.PropertyName,
		Floor:        txn.Floor,
		Unit:         txn.Unit,
		Nature:       string(txn.Nature),
		Price:        txn.Price,
		AreaValue:    txn.Area.Value,
		AreaUnit:     string(txn.Area.Unit),
		UnitPrice:    txn.UnitPrice,
		Yield:        txn.Yield,
		Seller:       txn.Seller,
		Buyer:        txn.Buyer,
		SourceID:     txn.SourceID,
		SourceURL:    txn.SourceURL,
		Description:  txn.Description,
		DedupFlag:    string(txn.DedupFlag),
		MergedCount:  txn.MergedCount,
		AssetType:    string(txn.AssetType),
		IsBigDeal:    txn.IsBigDeal,
	}
}

func (t Transaction) toRecord() record.TransactionRecord {
	return record.TransactionRecord{
		Date:         t.Date,
		District:     t.District,
		PropertyName: t.PropertyName,
		Floor:        t.Floor,
		Unit:         t.Unit,
		Nature:       record.AssetNature(t.Nature),
		Price:        t.Price,
		Area:         record.Area{Value: t.AreaValue, Unit: record.AreaUnit(t.AreaUnit)},
		UnitPrice:    t.UnitPrice,
		Yield:        t.Yield,
		Seller:       t.Seller,
		Buyer:        t.Buyer,
		SourceID:     t.SourceID,
		SourceURL:    t.SourceURL,
		Description:  t.Description,
		DedupFlag:    record.DedupFlag(t.DedupFlag),
		MergedCount:  t.MergedCount,
		AssetType:    record.AssetType(t.AssetType),
		IsBigDeal:    t.IsBigDeal,
	}
}

func newsModel(runID int64, rank int, item record.NewsRecord) NewsItem {
	return NewsItem{
		RunID:          runID,
		Date:           item.Date,
		SourceID:       item.SourceID,
		Topic:          item.Topic,
		Summary:        item.Summary,
		AssetType:      string(item.AssetType),
		SourceURL:      item.SourceURL,
		Language:       item.Language,
		DedupFlag:      string(item.DedupFlag),
		MergedCount:    item.MergedCount,
		RelevanceScore: item.RelevanceScore,
		Rank:           rank,
	}
}

func (n NewsItem) toRecord() record.NewsRecord {
	return record.NewsRecord{
		Date:           n.Date,
		SourceID:       n.SourceID,
		Topic:          n.Topic,
		Summary:        n.Summary,
		AssetType:      record.AssetType(n.AssetType),
		SourceURL:      n.SourceURL,
		Language:       n.Language,
		DedupFlag:      record.DedupFlag(n.DedupFlag),
		MergedCount:    n.MergedCount,
		RelevanceScore: n.RelevanceScore,
	}
}
