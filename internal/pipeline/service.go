// Package pipeline wires the engine stages into one batch run: validate,
// normalize, deduplicate, then classify transactions and rank news. A batch
// never fails as a whole; individual records are rejected and reported.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/classify"
	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/dedup"
	"github.com/yutsang/ai-news/internal/normalize"
	"github.com/yutsang/ai-news/internal/propdesc"
	"github.com/yutsang/ai-news/internal/rank"
	"github.com/yutsang/ai-news/internal/record"
)

// Oracle bundles the two judgement capabilities a run needs. A single
// client usually provides both.
type Oracle interface {
	dedup.SimilarityOracle
	rank.RelevanceOracle
}

// Result is the outcome of one batch run.
type Result struct {
	Transactions []record.TransactionRecord `json:"transactions"`
	News         []record.NewsRecord        `json:"news"`
	Rejections   []record.Rejection         `json:"rejections,omitempty"`

	Input          int `json:"input"`
	SuppressedTxn  int `json:"suppressed_transactions"`
	SuppressedNews int `json:"suppressed_news"`
	OracleCalls    int `json:"oracle_calls"`
	NewsBelowFloor int `json:"news_below_floor"`
}

// Service runs batches. It is safe to reuse across batches.
type Service struct {
	cfg        *config.EngineConfig
	normalizer *normalize.Service
	classifier *classify.Classifier
	deduper    *dedup.Engine
	ranker     *rank.Ranker
	logger     zerolog.Logger
}

func New(cfg *config.EngineConfig, oracle Oracle, logger zerolog.Logger) *Service {
	normalizer := normalize.NewService(cfg, logger)

	priorities := make(map[string]int, len(cfg.Sources))
	for _, src := range cfg.Sources {
		priorities[src.ID] = src.Priority
	}

	dedupOpts := dedup.Options{
		PrefilterThreshold: cfg.Dedup.PrefilterThreshold,
		OracleTimeout:      cfg.Dedup.OracleTimeout(),
		MaxConcurrent:      cfg.Dedup.MaxConcurrent,
	}
	rankOpts := rank.Options{
		MinN:           cfg.Ranker.MinN,
		MaxN:           cfg.Ranker.MaxN,
		Floor:          cfg.Ranker.Floor,
		OracleTimeout:  cfg.Dedup.OracleTimeout(),
		MaxConcurrent:  cfg.Dedup.MaxConcurrent,
		SourcePriority: priorities,
	}

	return &Service{
		cfg:        cfg,
		normalizer: normalizer,
		classifier: classify.New(cfg),
		deduper:    dedup.NewEngine(oracle, dedupOpts, logger),
		ranker:     rank.New(oracle, rankOpts, logger),
		logger:     logger,
	}
}

// Run processes one batch of raw records end to end. The error return is
// reserved for context cancellation; per-record failures land in
// Result.Rejections.
func (s *Service) Run(ctx context.Context, batch []record.RawRecord) (Result, error) {
	result := Result{Input: len(batch)}

	var txns []record.TransactionRecord
	var news []record.NewsRecord

	for _, raw := range batch {
		switch raw.Kind {
		case record.KindTransaction:
			txn, err := s.normalizer.Transaction(raw)
			if err != nil {
				result.Rejections = append(result.Rejections, rejection(raw, err))
				continue
			}
			desc := propdesc.Parse(txn.Description)
			txn.PropertyName = desc.PropertyName
			txn.Floor = desc.Floor
			txn.Unit = desc.Unit
			txns = append(txns, txn)

		case record.KindNews:
			item, err := s.normalizer.News(raw)
			if err != nil {
				result.Rejections = append(result.Rejections, rejection(raw, err))
				continue
			}
			news = append(news, item)

		default:
			result.Rejections = append(result.Rejections, record.Rejection{
				SourceID: raw.SourceID,
				Reason:   fmt.Sprintf("unknown record kind %q", raw.Kind),
			})
		}
	}

	txns, suppressedTxn, txnCalls, err := s.dedupTransactions(ctx, txns)
	if err != nil {
		return Result{}, err
	}
	news, suppressedNews, newsCalls, err := s.dedupNews(ctx, news)
	if err != nil {
		return Result{}, err
	}
	result.SuppressedTxn = suppressedTxn
	result.SuppressedNews = suppressedNews
	result.OracleCalls = txnCalls + newsCalls

	for i := range txns {
		s.classifier.Classify(&txns[i])
	}
	result.Transactions = txns

	ranked, err := s.ranker.Rank(ctx, news)
	if err != nil {
		return Result{}, err
	}
	result.NewsBelowFloor = len(news) - len(ranked)
	result.News = ranked

	s.logger.Info().
		Int("input", result.Input).
		Int("transactions", len(result.Transactions)).
		Int("news", len(result.News)).
		Int("rejected", len(result.Rejections)).
		Int("suppressed", suppressedTxn+suppressedNews).
		Int("oracle_calls", result.OracleCalls).
		Msg("batch processed")

	return result, nil
}

func (s *Service) dedupTransactions(ctx context.Context, txns []record.TransactionRecord) ([]record.TransactionRecord, int, int, error) {
	candidates := make([]dedup.Candidate, len(txns))
	for i, txn := range txns {
		candidates[i] = dedup.Candidate{
			Index:          i,
			Text:           txn.Description,
			Date:           txn.Date,
			SourcePriority: s.normalizer.SourcePriority(txn.SourceID),
			FieldCount:     txn.FieldCount(),
		}
	}

	outcome, err := s.deduper.Run(ctx, candidates)
	if err != nil {
		return nil, 0, 0, err
	}

	kept := make([]record.TransactionRecord, 0, len(txns))
	suppressed := 0
	for i, assignment := range outcome.Assignments {
		if !assignment.Survivor {
			suppressed++
			continue
		}
		txns[i].DedupFlag = assignment.Flag
		txns[i].MergedCount = assignment.SuppressedCount
		kept = append(kept, txns[i])
	}
	return kept, suppressed, outcome.OracleCalls, nil
}

func (s *Service) dedupNews(ctx context.Context, news []record.NewsRecord) ([]record.NewsRecord, int, int, error) {
	candidates := make([]dedup.Candidate, len(news))
	for i, item := range news {
		candidates[i] = dedup.Candidate{
			Index:          i,
			Text:           item.Topic + " " + item.Summary,
			Date:           item.Date,
			SourcePriority: s.normalizer.SourcePriority(item.SourceID),
			FieldCount:     item.FieldCount(),
		}
	}

	outcome, err := s.deduper.Run(ctx, candidates)
	if err != nil {
		return nil, 0, 0, err
	}

	kept := make([]record.NewsRecord, 0, len(news))
	suppressed := 0
	for i, assignment := range outcome.Assignments {
		if !assignment.Survivor {
			suppressed++
			continue
		}
		news[i].DedupFlag = assignment.Flag
		news[i].MergedCount = assignment.SuppressedCount
		kept = append(kept, news[i])
	}
	return kept, suppressed, outcome.OracleCalls, nil
}

func rejection(raw record.RawRecord, err error) record.Rejection {
	rej := record.Rejection{
		SourceID: raw.SourceID,
		Reason:   err.Error(),
	}
	var unparseable *normalize.UnparseableError
	if errors.As(err, &unparseable) {
		rej.Reason = normalize.ReasonUnparseable + ": " + unparseable.Field + " (" + unparseable.Cause + ")"
	}
	return rej
}
