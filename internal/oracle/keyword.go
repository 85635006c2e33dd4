package oracle

import (
	"context"
	"strings"

	"github.com/yutsang/ai-news/internal/dedup"
	"github.com/yutsang/ai-news/internal/record"
)

// KeywordOracle is a deterministic, network-free oracle for offline runs and
// tests. Similarity falls back to a strict lexical overlap check and
// relevance to keyword-hit scoring, so its judgements are conservative: it
// only calls duplicates when the texts are near-identical.
type KeywordOracle struct {
	// SimilarityCutoff is the token-Jaccard value at or above which two
	// texts are judged duplicates. Zero means the default 0.85.
	SimilarityCutoff float64
}

const defaultSimilarityCutoff = 0.85

var relevanceKeywords = []struct {
	weight float64
	terms  []string
}{
	{3.0, []string{"成交", "transaction", "sold", "售出", "購入", "acquired"}},
	{2.0, []string{"租金", "rent", "lease", "租出", "yield", "回報"}},
	{2.0, []string{"寫字樓", "office", "商舖", "retail", "住宅", "residential", "酒店", "hotel", "地皮", "land", "車位", "carpark"}},
	{1.5, []string{"樓價", "property price", "地產", "real estate", "物業", "市場", "market"}},
	{1.0, []string{"香港", "hong kong", "中環", "尖沙咀", "觀塘", "銅鑼灣"}},
}

func (o KeywordOracle) cutoff() float64 {
	if o.SimilarityCutoff > 0 {
		return o.SimilarityCutoff
	}
	return defaultSimilarityCutoff
}

// JudgeSimilar judges two texts duplicates when their token overlap is at or
// above the cutoff.
func (o KeywordOracle) JudgeSimilar(_ context.Context, a, b string) (dedup.Verdict, error) {
	if dedup.TokenJaccard(a, b) >= o.cutoff() {
		return dedup.VerdictDuplicate, nil
	}
	return dedup.VerdictNotDuplicate, nil
}

// ScoreRelevance scores a news record by summing keyword-group weights, one
// hit per group, capped at 10.
func (o KeywordOracle) ScoreRelevance(_ context.Context, rec record.NewsRecord) (float64, error) {
	text := strings.ToLower(rec.Topic + " " + rec.Summary)
	var score float64
	for _, group := range relevanceKeywords {
		for _, term := range group.terms {
			if strings.Contains(text, term) {
				score += group.weight
				break
			}
		}
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}
