package report

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/yutsang/ai-news/internal/period"
	"github.com/yutsang/ai-news/internal/record"
)

func sampleDigest() Digest {
	week := period.For(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	return Digest{
		Week: week,
		Transactions: []record.TransactionRecord{
			{
				Date:         time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
				District:     "中環",
				PropertyName: "中環中心",
				Floor:        "18",
				Unit:         "A",
				Nature:       record.NatureSale,
				Price:        450_000_000,
				Area:         record.Area{Value: 12000, Unit: record.UnitSqft},
				UnitPrice:    37_500,
				SourceID:     "hket",
				AssetType:    record.AssetOffice,
				IsBigDeal:    true,
			},
			{
				Date:         time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
				District:     "觀塘",
				PropertyName: "觀塘工廈",
				Floor:        "unknown",
				Unit:         "unknown",
				Nature:       record.NatureLease,
				Price:        8_000_000,
				SourceID:     "centanet",
				AssetType:    record.AssetUnknown,
			},
		},
		News: []record.NewsRecord{
			{
				Date:           time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
				Topic:          "甲廈租金連跌三個月",
				Summary:        "市場消息指中環甲級寫字樓租金持續受壓。",
				RelevanceScore: 8.5,
			},
		},
	}
}

func TestRender_Sections(t *testing.T) {
	t.Parallel()

	out := Render(sampleDigest())
	for _, want := range []string{
		"# Hong Kong Property Weekly Digest",
		"Reporting week: 2026-08-24 to 2026-08-30",
		"## Big Deals",
		"## Transactions",
		"## Market News",
		"HK$4億5000萬",
		"中環中心 18/F A",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("digest missing %q:\n%s", want, out)
		}
	}
	// Only the big deal belongs in the big-deals table.
	bigDeals := out[:strings.Index(out, "## Transactions")]
	if strings.Contains(bigDeals, "觀塘工廈") {
		t.Fatalf("non-big-deal leaked into the big-deals table:\n%s", bigDeals)
	}
}

func TestRender_TableColumnsAligned(t *testing.T) {
	t.Parallel()

	out := Render(sampleDigest())
	section := out[strings.Index(out, "## Transactions"):]
	section = section[:strings.Index(section, "## Market News")]

	var tableLines []string
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "|") && !strings.Contains(line, "---") {
			tableLines = append(tableLines, line)
		}
	}
	if len(tableLines) != 3 {
		t.Fatalf("expected header plus two rows, got %d:\n%s", len(tableLines), section)
	}

	// Mixed CJK and Latin cells must produce identical display widths.
	want := runewidth.StringWidth(tableLines[0])
	for _, line := range tableLines[1:] {
		if got := runewidth.StringWidth(line); got != want {
			t.Fatalf("table rows not aligned: %d vs %d\n%s", got, want, section)
		}
	}
}

func TestRender_EmptyDigest(t *testing.T) {
	t.Parallel()

	out := Render(Digest{Week: period.For(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))})
	if !strings.Contains(out, "No transactions recorded this week.") {
		t.Fatalf("missing empty transactions note:\n%s", out)
	}
	if !strings.Contains(out, "No ranked news this week.") {
		t.Fatalf("missing empty news note:\n%s", out)
	}
}

func TestFormatHKD(t *testing.T) {
	t.Parallel()

	if got := FormatHKD(450_000_000); got != "HK$4億5000萬" {
		t.Fatalf("unexpected 億 rendering: %s", got)
	}
	if got := FormatHKD(85_000_000); got != "HK$8500萬" {
		t.Fatalf("unexpected 萬 rendering: %s", got)
	}
	if got := FormatHKD(200_000_000); got != "HK$2億" {
		t.Fatalf("unexpected whole 億 rendering: %s", got)
	}
	if got := FormatHKD(9_999); got != "HK$9999" {
		t.Fatalf("unexpected small rendering: %s", got)
	}
}
