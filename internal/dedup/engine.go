// Package dedup merges duplicate and near-duplicate records within a batch.
//
// Stage A collapses records sharing an exact normalized key (whitespace-
// collapsed, case-folded text plus date) with no external calls. Stage B
// compares the survivors pairwise, across dates, gating an external
// similarity oracle behind a cheap token-overlap pre-filter. Transitive
// closure applies: judged pairs are merged through a union-find.
package dedup

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yutsang/ai-news/internal/record"
)

// Verdict is the similarity oracle's judgment for one pair.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictDuplicate
	VerdictNotDuplicate
)

// SimilarityOracle judges whether two texts describe the same real-world
// event. Calls are slow and costly; the engine minimizes call volume.
type SimilarityOracle interface {
	JudgeSimilar(ctx context.Context, a, b string) (Verdict, error)
}

// Candidate is the engine's neutral view of one record in the batch.
type Candidate struct {
	Index          int
	Text           string
	Date           time.Time
	SourcePriority int
	FieldCount     int
}

// Assignment is the engine's verdict for one input candidate.
type Assignment struct {
	Flag            record.DedupFlag
	SuppressedCount int
	Survivor        bool
	// RepresentativeIndex points at the group survivor (self for survivors).
	RepresentativeIndex int
}

// Options tunes the similarity stage.
type Options struct {
	PrefilterThreshold float64
	OracleTimeout      time.Duration
	MaxConcurrent      int
}

// Outcome maps every input index to its assignment.
type Outcome struct {
	Assignments []Assignment
	OracleCalls int
	Groups      int
}

// Engine is safe for reuse across batches; it keeps no state between runs.
type Engine struct {
	oracle SimilarityOracle
	opts   Options
	logger zerolog.Logger
}

func NewEngine(oracle SimilarityOracle, opts Options, logger zerolog.Logger) *Engine {
	if opts.PrefilterThreshold <= 0 {
		opts.PrefilterThreshold = 0.3
	}
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = 15 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	return &Engine{
		oracle: oracle,
		opts:   opts,
		logger: logger,
	}
}

// Run deduplicates one batch of candidates of a single kind.
func (e *Engine) Run(ctx context.Context, candidates []Candidate) (Outcome, error) {
	outcome := Outcome{
		Assignments: make([]Assignment, len(candidates)),
	}
	if len(candidates) == 0 {
		return outcome, nil
	}

	parent := make([]int, len(candidates))
	for i := range parent {
		parent[i] = i
	}

	// Stage A: exact normalized-key grouping, linear, no oracle.
	byKey := make(map[string][]int, len(candidates))
	for i, c := range candidates {
		key := ExactKey(c.Text, c.Date)
		byKey[key] = append(byKey[key], i)
	}
	for _, members := range byKey {
		for _, m := range members[1:] {
			union(parent, members[0], m)
		}
	}

	// Stage B: pairwise similarity over Stage A survivors. Pairs are walked
	// in a fixed order and verdicts merged after all calls return, so
	// concurrent oracle dispatch never changes the result.
	survivors := stageRoots(parent)
	pairs := e.prefilterPairs(candidates, survivors)
	verdicts := make([]Verdict, len(pairs))

	if e.oracle != nil && len(pairs) > 0 {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(e.opts.MaxConcurrent)
		for idx, p := range pairs {
			group.Go(func() error {
				callCtx, cancel := context.WithTimeout(groupCtx, e.opts.OracleTimeout)
				defer cancel()

				verdict, err := e.oracle.JudgeSimilar(callCtx, candidates[p.a].Text, candidates[p.b].Text)
				if err != nil {
					// Degrade to the pre-filter's conservative verdict:
					// an unavailable oracle never merges records.
					e.logger.Warn().
						Err(err).
						Int("left", candidates[p.a].Index).
						Int("right", candidates[p.b].Index).
						Msg("similarity oracle unavailable, assuming non-duplicate")
					verdict = VerdictNotDuplicate
				}
				verdicts[idx] = verdict
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return outcome, err
		}
		outcome.OracleCalls = len(pairs)
	}

	for idx, p := range pairs {
		if verdicts[idx] == VerdictDuplicate {
			union(parent, p.a, p.b)
		}
	}

	// Resolve groups into a single surviving representative each.
	groups := make(map[int][]int, len(candidates))
	for i := range candidates {
		root := find(parent, i)
		groups[root] = append(groups[root], i)
	}
	outcome.Groups = len(groups)

	for _, members := range groups {
		sort.Ints(members)
		rep, ambiguous := pickRepresentative(candidates, members)
		suppressed := len(members) - 1

		for _, m := range members {
			outcome.Assignments[m] = Assignment{
				Flag:                record.DedupUnique,
				Survivor:            m == rep,
				RepresentativeIndex: rep,
			}
		}

		if suppressed == 0 {
			continue
		}

		flag := record.DedupMerged
		if ambiguous {
			// More than one candidate tied as best: keep the group visible
			// to a human reviewer instead of dropping it silently.
			flag = record.DedupNeedsReview
		}
		a := outcome.Assignments[rep]
		a.Flag = flag
		a.SuppressedCount = suppressed
		outcome.Assignments[rep] = a
	}

	return outcome, nil
}

type pair struct{ a, b int }

// prefilterPairs lists survivor pairs whose token overlap clears the
// threshold. Pairs failing the pre-filter are assumed non-duplicate without
// an oracle call.
func (e *Engine) prefilterPairs(candidates []Candidate, survivors []int) []pair {
	var pairs []pair
	for i := 0; i < len(survivors); i++ {
		for j := i + 1; j < len(survivors); j++ {
			a, b := survivors[i], survivors[j]
			if TokenJaccard(candidates[a].Text, candidates[b].Text) >= e.opts.PrefilterThreshold {
				pairs = append(pairs, pair{a: a, b: b})
			}
		}
	}
	return pairs
}

// pickRepresentative returns the earliest-seen member, preferring the
// highest-information record on ties, and reports whether the choice was
// ambiguous.
func pickRepresentative(candidates []Candidate, members []int) (rep int, ambiguous bool) {
	best := members[0]
	tied := 1
	for _, m := range members[1:] {
		switch compareRepresentative(candidates[m], candidates[best]) {
		case 1:
			best = m
			tied = 1
		case 0:
			tied++
		}
	}
	return best, tied > 1
}

// compareRepresentative orders by earliest seen date, then information
// richness, then source priority. A full tie is reported as ambiguous
// instead of being broken arbitrarily.
func compareRepresentative(a, b Candidate) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.Before(b.Date) {
			return 1
		}
		return -1
	}
	if a.FieldCount != b.FieldCount {
		if a.FieldCount > b.FieldCount {
			return 1
		}
		return -1
	}
	if a.SourcePriority != b.SourcePriority {
		if a.SourcePriority < b.SourcePriority {
			return 1
		}
		return -1
	}
	return 0
}

func stageRoots(parent []int) []int {
	var roots []int
	for i := range parent {
		if find(parent, i) == i {
			roots = append(roots, i)
		}
	}
	return roots
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, a, b int) {
	ra, rb := find(parent, a), find(parent, b)
	if ra == rb {
		return
	}
	if ra < rb {
		parent[rb] = ra
	} else {
		parent[ra] = rb
	}
}

// ExactKey builds the Stage A dedup key: whitespace-collapsed, case-folded
// text plus calendar date.
func ExactKey(text string, date time.Time) string {
	return foldText(text) + "|" + date.UTC().Format("2006-01-02")
}

func foldText(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	return strings.Join(strings.Fields(lowered), " ")
}

// TokenJaccard is the shared-token overlap ratio used by the Stage B
// pre-filter.
func TokenJaccard(left, right string) float64 {
	leftSet := tokenSet(left)
	rightSet := tokenSet(right)
	if len(leftSet) == 0 || len(rightSet) == 0 {
		return 0
	}

	intersection := 0
	for token := range leftSet {
		if _, ok := rightSet[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}

	union := len(leftSet) + len(rightSet) - intersection
	if union <= 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	folded := foldText(text)
	if folded == "" {
		return nil
	}

	parts := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	set := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		// CJK text has no word spacing; split ideographs into single-rune
		// tokens so the overlap ratio stays meaningful for Chinese topics.
		for _, token := range splitCJK(p) {
			set[token] = struct{}{}
		}
	}
	return set
}

func splitCJK(token string) []string {
	var out []string
	var latin []rune
	flush := func() {
		if len(latin) > 0 {
			out = append(out, string(latin))
			latin = latin[:0]
		}
	}
	for _, r := range token {
		if unicode.Is(unicode.Han, r) {
			flush()
			out = append(out, string(r))
			continue
		}
		latin = append(latin, r)
	}
	flush()
	return out
}
