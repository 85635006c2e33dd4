package rank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/record"
)

type scoreFunc func(ctx context.Context, rec record.NewsRecord) (float64, error)

func (f scoreFunc) ScoreRelevance(ctx context.Context, rec record.NewsRecord) (float64, error) {
	return f(ctx, rec)
}

func scoreByTopic(scores map[string]float64) scoreFunc {
	return func(_ context.Context, rec record.NewsRecord) (float64, error) {
		return scores[rec.Topic], nil
	}
}

func newsOn(topic string, d int) record.NewsRecord {
	return record.NewsRecord{
		Topic: topic,
		Date:  time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC),
	}
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	t.Parallel()

	oracle := scoreByTopic(map[string]float64{"a": 3, "b": 9, "c": 6})
	ranker := New(oracle, Options{MaxN: 10}, zerolog.Nop())

	ranked, err := ranker.Rank(context.Background(), []record.NewsRecord{
		newsOn("a", 1), newsOn("b", 2), newsOn("c", 3),
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("unexpected length: %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].RelevanceScore > ranked[i-1].RelevanceScore {
			t.Fatalf("scores not non-increasing: %+v", ranked)
		}
	}
	if ranked[0].Topic != "b" || ranked[2].Topic != "a" {
		t.Fatalf("unexpected order: %+v", ranked)
	}
}

func TestRank_TruncatesToMaxN(t *testing.T) {
	t.Parallel()

	oracle := scoreFunc(func(_ context.Context, rec record.NewsRecord) (float64, error) {
		return 5, nil
	})
	ranker := New(oracle, Options{MaxN: 2}, zerolog.Nop())

	ranked, err := ranker.Rank(context.Background(), []record.NewsRecord{
		newsOn("a", 1), newsOn("b", 2), newsOn("c", 3),
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(ranked))
	}
}

func TestRank_FloorIsNeverPadded(t *testing.T) {
	t.Parallel()

	oracle := scoreByTopic(map[string]float64{"strong": 8, "weak": 2, "weaker": 1})
	ranker := New(oracle, Options{MinN: 3, MaxN: 10, Floor: 4}, zerolog.Nop())

	ranked, err := ranker.Rank(context.Background(), []record.NewsRecord{
		newsOn("strong", 1), newsOn("weak", 2), newsOn("weaker", 3),
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	// Only one record clears the floor; MinN must not pull the others in.
	if len(ranked) != 1 || ranked[0].Topic != "strong" {
		t.Fatalf("unexpected ranked set: %+v", ranked)
	}
}

func TestRank_TieBrokenByRecencyThenSource(t *testing.T) {
	t.Parallel()

	oracle := scoreFunc(func(context.Context, record.NewsRecord) (float64, error) {
		return 5, nil
	})
	ranker := New(oracle, Options{
		MaxN:           10,
		SourcePriority: map[string]int{"hket": 1, "wenweipo": 2},
	}, zerolog.Nop())

	older := newsOn("older", 20)
	newerLow := newsOn("newer-low", 25)
	newerLow.SourceID = "wenweipo"
	newerHigh := newsOn("newer-high", 25)
	newerHigh.SourceID = "hket"

	ranked, err := ranker.Rank(context.Background(), []record.NewsRecord{older, newerLow, newerHigh})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if ranked[0].Topic != "newer-high" || ranked[1].Topic != "newer-low" || ranked[2].Topic != "older" {
		t.Fatalf("unexpected tie order: %s, %s, %s", ranked[0].Topic, ranked[1].Topic, ranked[2].Topic)
	}
}

func TestRank_Deterministic(t *testing.T) {
	t.Parallel()

	oracle := scoreFunc(func(context.Context, record.NewsRecord) (float64, error) {
		return 5, nil
	})
	ranker := New(oracle, Options{MaxN: 10, MaxConcurrent: 3}, zerolog.Nop())

	batch := []record.NewsRecord{newsOn("a", 20), newsOn("b", 20), newsOn("c", 20)}

	first, err := ranker.Rank(context.Background(), batch)
	if err != nil {
		t.Fatalf("first rank: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := ranker.Rank(context.Background(), batch)
		if err != nil {
			t.Fatalf("repeat rank: %v", err)
		}
		for j := range first {
			if again[j].Topic != first[j].Topic {
				t.Fatalf("ranking changed between runs: %+v vs %+v", first, again)
			}
		}
	}
}

func TestRank_OracleFailureScoresAtFloor(t *testing.T) {
	t.Parallel()

	oracle := scoreFunc(func(_ context.Context, rec record.NewsRecord) (float64, error) {
		if rec.Topic == "broken" {
			return 0, fmt.Errorf("upstream unavailable")
		}
		return 7, nil
	})
	ranker := New(oracle, Options{MaxN: 10}, zerolog.Nop())

	ranked, err := ranker.Rank(context.Background(), []record.NewsRecord{
		newsOn("broken", 1), newsOn("fine", 2),
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("failed scoring must not drop the record, got %d", len(ranked))
	}
	if ranked[0].Topic != "fine" || ranked[1].RelevanceScore != 0 {
		t.Fatalf("unexpected outcome: %+v", ranked)
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()

	if got := clampScore(-3); got != 0 {
		t.Fatalf("expected clamp to 0, got %f", got)
	}
	if got := clampScore(42); got != 10 {
		t.Fatalf("expected clamp to 10, got %f", got)
	}
	if got := clampScore(7.5); got != 7.5 {
		t.Fatalf("expected passthrough, got %f", got)
	}
}
