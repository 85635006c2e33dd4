// Package normalize converts raw adapter payloads into canonical records.
// Dates follow the layout registered for each source, money and area figures
// are cleaned of locale formatting, and records missing required fields are
// rejected rather than padded with placeholders.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/config"
	"github.com/yutsang/ai-news/internal/langdetect"
	"github.com/yutsang/ai-news/internal/reader"
	"github.com/yutsang/ai-news/internal/record"
	"github.com/yutsang/ai-news/internal/schema"
)

// ReasonUnparseable tags rejections where a required field could not be
// extracted.
const ReasonUnparseable = "unparseable"

const summaryMaxChars = 600

// UnparseableError reports why a raw record was excluded.
type UnparseableError struct {
	SourceID string
	Field    string
	Cause    string
}

func (e *UnparseableError) Error() string {
	return fmt.Sprintf("unparseable record from %s: %s (%s)", e.SourceID, e.Field, e.Cause)
}

// Service is the field normalizer. One instance serves a whole batch run.
type Service struct {
	sources map[string]config.Source
	logger  zerolog.Logger
}

func NewService(cfg *config.EngineConfig, logger zerolog.Logger) *Service {
	sources := make(map[string]config.Source, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources[src.ID] = src
	}
	return &Service{
		sources: sources,
		logger:  logger,
	}
}

// SourcePriority returns the registered priority for tie-breaking, with
// unknown sources sorting last.
func (s *Service) SourcePriority(sourceID string) int {
	if src, ok := s.sources[sourceID]; ok {
		return src.Priority
	}
	return int(^uint(0) >> 1)
}

// Transaction normalizes one raw transaction record. The returned error is
// always an *UnparseableError; the caller reports it and continues.
func (s *Service) Transaction(raw record.RawRecord) (record.TransactionRecord, error) {
	payload, err := schema.ValidateRawRecordPayload(raw.Payload)
	if err != nil {
		return record.TransactionRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "payload", Cause: err.Error()}
	}

	date, err := s.parseDate(raw.SourceID, deref(payload.Date))
	if err != nil {
		return record.TransactionRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "date", Cause: err.Error()}
	}

	price, err := ParseMoneyHKD(deref(payload.Price))
	if err != nil {
		return record.TransactionRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "price", Cause: err.Error()}
	}

	area, err := ParseArea(deref(payload.Area))
	if err != nil {
		return record.TransactionRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "area", Cause: err.Error()}
	}

	txn := record.TransactionRecord{
		Date:        date,
		District:    strings.TrimSpace(deref(payload.District)),
		Description: CollapseWhitespace(payload.Description),
		Nature:      parseNature(deref(payload.Nature), payload.Description),
		Price:       price,
		Area:        area,
		UnitPrice:   record.DeriveUnitPrice(price, area),
		Seller:      strings.TrimSpace(deref(payload.Seller)),
		Buyer:       strings.TrimSpace(deref(payload.Buyer)),
		SourceID:    raw.SourceID,
		SourceURL:   strings.TrimSpace(deref(payload.URL)),
	}

	if y := strings.TrimSpace(deref(payload.Yield)); y != "" {
		fraction, err := ParseYield(y)
		if err != nil {
			s.logger.Debug().Str("source", raw.SourceID).Str("yield", y).Msg("yield not parseable, dropped")
		} else {
			txn.Yield = &fraction
		}
	}

	if txn.District == "" {
		txn.District = extractDistrict(payload.Description)
	}

	return txn, nil
}

// News normalizes one raw news record.
func (s *Service) News(raw record.RawRecord) (record.NewsRecord, error) {
	payload, err := schema.ValidateRawRecordPayload(raw.Payload)
	if err != nil {
		return record.NewsRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "payload", Cause: err.Error()}
	}

	date, err := s.parseDate(raw.SourceID, deref(payload.Date))
	if err != nil {
		return record.NewsRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "date", Cause: err.Error()}
	}

	topic := CollapseWhitespace(payload.Description)
	if topic == "" {
		return record.NewsRecord{}, &UnparseableError{SourceID: raw.SourceID, Field: "topic", Cause: "empty"}
	}

	summary := reader.CleanText(deref(payload.Summary))
	if summary == "" && payload.BodyHTML != nil {
		text, err := reader.ExtractText(*payload.BodyHTML, deref(payload.URL))
		if err != nil {
			s.logger.Debug().Str("source", raw.SourceID).Err(err).Msg("body text extraction failed")
		} else {
			summary = text
		}
	}
	summary, _ = reader.TruncateText(summary, summaryMaxChars)

	language := strings.ToLower(strings.TrimSpace(deref(payload.Language)))
	if language == "" {
		language = langdetect.DetectISO6391(topic + " " + summary)
	}

	return record.NewsRecord{
		Date:      date,
		SourceID:  raw.SourceID,
		Topic:     topic,
		Summary:   summary,
		SourceURL: strings.TrimSpace(deref(payload.URL)),
		Language:  language,
	}, nil
}

func (s *Service) parseDate(sourceID, raw string) (time.Time, error) {
	src, ok := s.sources[sourceID]
	if !ok {
		return time.Time{}, fmt.Errorf("source %q is not registered", sourceID)
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	ts, err := time.ParseInLocation(src.DateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q does not match layout %q: %w", trimmed, src.DateLayout, err)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseMoneyHKD parses a localized Hong Kong money figure into whole HKD.
// Currency marks and thousand separators are stripped, and the 億 (1e8) and
// 萬 (1e4) multipliers are expanded, so "4.5億" and "450,000,000" agree.
func ParseMoneyHKD(raw string) (int64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, fmt.Errorf("price is empty")
	}

	for _, mark := range []string{"HK$", "HKD", "港元", "$", "元", ",", " "} {
		cleaned = strings.ReplaceAll(cleaned, mark, "")
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("price %q has no numeric part", raw)
	}

	total := 0.0
	rest := cleaned
	if idx := strings.Index(rest, "億"); idx >= 0 {
		head, err := strconv.ParseFloat(rest[:idx], 64)
		if err != nil {
			return 0, fmt.Errorf("price %q: %w", raw, err)
		}
		total += head * 1e8
		rest = rest[idx+len("億"):]
	}
	if idx := strings.Index(rest, "萬"); idx >= 0 {
		head, err := strconv.ParseFloat(rest[:idx], 64)
		if err != nil {
			return 0, fmt.Errorf("price %q: %w", raw, err)
		}
		total += head * 1e4
		rest = rest[idx+len("萬"):]
	}
	if rest != "" {
		tail, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return 0, fmt.Errorf("price %q: %w", raw, err)
		}
		total += tail
	}

	if total <= 0 {
		return 0, fmt.Errorf("price %q is not positive", raw)
	}
	return int64(total + 0.5), nil
}

// ParseArea parses an area figure into a value plus its declared basis unit.
// Units are recorded, not converted. A bare number defaults to square feet,
// the listing convention of every registered source.
func ParseArea(raw string) (record.Area, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return record.Area{}, fmt.Errorf("area is empty")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	unit := record.UnitSqft
	lower := strings.ToLower(cleaned)
	switch {
	case containsAny(lower, "平方米", "米²", "㎡", "sqm", "sq m", "m2"):
		unit = record.UnitSqm
	case containsAny(lower, "平方呎", "呎", "sqft", "sq ft", "ft"):
		unit = record.UnitSqft
	}

	numeric := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' {
			return r
		}
		return -1
	}, cleaned)
	if numeric == "" {
		return record.Area{}, fmt.Errorf("area %q has no numeric part", raw)
	}

	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil || value <= 0 {
		return record.Area{}, fmt.Errorf("area %q is not a positive number", raw)
	}

	return record.Area{Value: value, Unit: unit}, nil
}

// ParseYield parses "7%", "3.5%" or "7厘" into a fraction (0.07, 0.035).
func ParseYield(raw string) (float64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimSuffix(cleaned, "厘")
	cleaned = strings.TrimSpace(cleaned)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("yield %q: %w", raw, err)
	}
	if value <= 0 || value >= 100 {
		return 0, fmt.Errorf("yield %q out of range", raw)
	}
	return value / 100, nil
}

// CollapseWhitespace case-preserving collapses runs of whitespace to single
// spaces and drops control characters.
func CollapseWhitespace(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

func parseNature(declared, description string) record.AssetNature {
	text := strings.ToLower(strings.TrimSpace(declared))
	if text == "" {
		text = strings.ToLower(description)
	}

	switch {
	case containsAny(text, "租", "lease", "rent", "出租", "承租", "tenancy"):
		return record.NatureLease
	case containsAny(text, "成交", "sale", "sold", "purchase", "買賣", "售出", "易手"):
		return record.NatureSale
	default:
		return record.NatureUnknown
	}
}

// hkDistricts lists district names recognized in free-text descriptions,
// most specific first.
var hkDistricts = []string{
	"中環", "尖沙咀", "銅鑼灣", "旺角", "北角", "灣仔", "金鐘", "上環", "西環",
	"跑馬地", "淺水灣", "深水灣", "赤柱", "大潭", "鰂魚涌", "觀塘", "九龍灣",
	"荃灣", "屯門", "元朗", "大埔", "沙田", "將軍澳", "葵涌", "青衣",
}

func extractDistrict(description string) string {
	for _, district := range hkDistricts {
		if strings.Contains(description, district) {
			return district
		}
	}
	return ""
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
