// Package store persists processed batches to Postgres through gorm and
// serves the period queries behind the report command and the HTTP API.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/globaltime"
	"github.com/yutsang/ai-news/internal/period"
	"github.com/yutsang/ai-news/internal/record"
)

type Pool struct {
	gdb   *gorm.DB
	sqlDB *sql.DB
}

func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	logLevel := resolveGormLogLevel(cfg.LogLevel, cfg.Environment)

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return globaltime.UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get gorm sql db: %w", err)
	}

	maxOpen := int(cfg.DBMaxConns)
	if maxOpen <= 0 {
		maxOpen = 8
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(max(1, min(int(cfg.DBMinConns), maxOpen)))
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pool := &Pool{
		gdb:   gdb,
		sqlDB: sqlDB,
	}
	if err := pool.autoMigrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("auto-migrate schema: %w", err)
	}

	return pool, nil
}

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	if err := p.gdb.WithContext(ctx).Exec(`CREATE SCHEMA IF NOT EXISTS engine`).Error; err != nil {
		return fmt.Errorf("create engine schema: %w", err)
	}
	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}
	return nil
}

func (p *Pool) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

// Ping verifies the connection, used by the health command.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.sqlDB == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	return p.sqlDB.PingContext(ctx)
}

// RunSummary carries the counters persisted alongside one batch.
type RunSummary struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Input       int
	Rejected    int
	Suppressed  int
	OracleCalls int
}

// SaveRun persists one processed batch atomically and returns the run id.
func (p *Pool) SaveRun(ctx context.Context, summary RunSummary, txns []record.TransactionRecord, news []record.NewsRecord, rejections []record.Rejection) (int64, error) {
	if p == nil || p.gdb == nil {
		return 0, fmt.Errorf("database pool is not initialized")
	}

	run := BatchRun{
		StartedAt:    summary.StartedAt,
		FinishedAt:   &summary.FinishedAt,
		InputCount:   summary.Input,
		Transactions: len(txns),
		NewsItems:    len(news),
		Rejected:     summary.Rejected,
		Suppressed:   summary.Suppressed,
		OracleCalls:  summary.OracleCalls,
	}

	err := p.gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("insert batch run: %w", err)
		}
		for _, txn := range txns {
			model := transactionModel(run.RunID, txn)
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}
		for rank, item := range news {
			model := newsModel(run.RunID, rank+1, item)
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("insert news item: %w", err)
			}
		}
		for _, rej := range rejections {
			model := RejectedRecord{
				RunID:     run.RunID,
				SourceID:  rej.SourceID,
				SourceURL: rej.SourceURL,
				Reason:    rej.Reason,
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("insert rejected record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return run.RunID, nil
}

// TransactionQuery filters the period transaction listing.
type TransactionQuery struct {
	Week         period.Week
	District     string
	AssetType    record.AssetType
	BigDealsOnly bool
	Limit        int
}

// TransactionsInPeriod lists stored transactions in the reporting week,
// newest first.
func (p *Pool) TransactionsInPeriod(ctx context.Context, q TransactionQuery) ([]record.TransactionRecord, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}

	query := p.gdb.WithContext(ctx).
		Model(&Transaction{}).
		Where("date >= ? AND date < ?", q.Week.Start, q.Week.End.AddDate(0, 0, 1)).
		Order("date DESC, price DESC").
		Limit(limit)
	if q.District != "" {
		query = query.Where("district = ?", q.District)
	}
	if q.AssetType != "" {
		query = query.Where("asset_type = ?", string(q.AssetType))
	}
	if q.BigDealsOnly {
		query = query.Where("is_big_deal")
	}

	var rows []Transaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	txns := make([]record.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.toRecord())
	}
	return txns, nil
}

// NewsInPeriod lists stored ranked news in the reporting week, rank order.
func (p *Pool) NewsInPeriod(ctx context.Context, week period.Week, limit int) ([]record.NewsRecord, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []NewsItem
	err := p.gdb.WithContext(ctx).
		Model(&NewsItem{}).
		Where("date >= ? AND date < ?", week.Start, week.End.AddDate(0, 0, 1)).
		Order("relevance_score DESC, rank ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query news items: %w", err)
	}

	news := make([]record.NewsRecord, 0, len(rows))
	for _, row := range rows {
		news = append(news, row.toRecord())
	}
	return news, nil
}

func resolveGormLogLevel(appLogLevel, environment string) logger.LogLevel {
	level := strings.ToLower(strings.TrimSpace(appLogLevel))
	switch level {
	case "trace", "debug":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error", "fatal", "panic":
		return logger.Error
	}
	if strings.ToLower(strings.TrimSpace(environment)) == "local" {
		return logger.Warn
	}
	return logger.Error
}
