// Package rank scores deduplicated news records against a market-relevance
// rubric and truncates the batch to a bounded top-N.
package rank

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yutsang/ai-news/internal/record"
)

// RelevanceOracle scores one record on the 0..10 market-relevance scale.
type RelevanceOracle interface {
	ScoreRelevance(ctx context.Context, rec record.NewsRecord) (float64, error)
}

// Options bounds the ranked output. Dedup must run before ranking so no
// oracle call is wasted on a record that would be discarded.
type Options struct {
	MinN          int
	MaxN          int
	Floor         float64
	OracleTimeout time.Duration
	MaxConcurrent int
	// SourcePriority breaks score+date ties deterministically; lower wins.
	SourcePriority map[string]int
}

// Ranker is stateless between batches.
type Ranker struct {
	oracle RelevanceOracle
	opts   Options
	logger zerolog.Logger
}

func New(oracle RelevanceOracle, opts Options, logger zerolog.Logger) *Ranker {
	if opts.MaxN <= 0 {
		opts.MaxN = 15
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 15 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Ranker{
		oracle: oracle,
		opts:   opts,
		logger: logger,
	}
}

// Rank scores each record exactly once, sorts by descending relevance with
// deterministic tie order, and truncates to MaxN. Records below the floor
// are never padded in: if fewer than MinN clear it, only those that do are
// returned.
func (r *Ranker) Rank(ctx context.Context, batch []record.NewsRecord) ([]record.NewsRecord, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	scored := make([]record.NewsRecord, len(batch))
	copy(scored, batch)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.MaxConcurrent)
	for i := range scored {
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, r.opts.OracleTimeout)
			defer cancel()

			score, err := r.oracle.ScoreRelevance(callCtx, scored[i])
			if err != nil {
				// A failed oracle call degrades to the minimum score; the
				// batch keeps going.
				r.logger.Warn().
					Err(err).
					Str("source", scored[i].SourceID).
					Str("topic", scored[i].Topic).
					Msg("relevance oracle unavailable, scoring record at floor")
				score = 0
			}
			scored[i].RelevanceScore = clampScore(score)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Score with ties broken by recency (newer first), then source, then
	// batch position: identical regardless of oracle scheduling.
	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := scored[order[x]], scored[order[y]]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if pa, pb := r.priority(a.SourceID), r.priority(b.SourceID); pa != pb {
			return pa < pb
		}
		return order[x] < order[y]
	})

	ranked := make([]record.NewsRecord, 0, len(scored))
	for _, idx := range order {
		if scored[idx].RelevanceScore < r.opts.Floor {
			continue
		}
		ranked = append(ranked, scored[idx])
		if len(ranked) == r.opts.MaxN {
			break
		}
	}

	if len(ranked) < r.opts.MinN {
		r.logger.Info().
			Int("cleared_floor", len(ranked)).
			Int("min_n", r.opts.MinN).
			Float64("floor", r.opts.Floor).
			Msg("fewer records cleared the relevance floor than requested; not padding")
	}

	return ranked, nil
}

func (r *Ranker) priority(sourceID string) int {
	if p, ok := r.opts.SourcePriority[sourceID]; ok {
		return p
	}
	return int(^uint(0) >> 1)
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 10:
		return 10
	default:
		return score
	}
}
