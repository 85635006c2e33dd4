// Package report renders the weekly markdown digest. Table columns are
// aligned on display width so mixed Chinese and Latin cells line up in a
// terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/yutsang/ai-news/internal/period"
	"github.com/yutsang/ai-news/internal/record"
)

// Digest is the input to one weekly rendering.
type Digest struct {
	Week         period.Week
	Transactions []record.TransactionRecord
	News         []record.NewsRecord
}

// Render produces the full markdown document.
func Render(d Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Hong Kong Property Weekly Digest\n\n")
	fmt.Fprintf(&b, "Reporting week: %s\n\n", d.Week.Label())

	renderBigDeals(&b, d.Transactions)
	renderTransactions(&b, d.Transactions)
	renderNews(&b, d.News)

	return b.String()
}

func renderBigDeals(b *strings.Builder, txns []record.TransactionRecord) {
	var bigDeals []record.TransactionRecord
	for _, txn := range txns {
		if txn.IsBigDeal {
			bigDeals = append(bigDeals, txn)
		}
	}

	b.WriteString("## Big Deals\n\n")
	if len(bigDeals) == 0 {
		b.WriteString("No big deals recorded this week.\n\n")
		return
	}

	rows := [][]string{{"Date", "District", "Property", "Type", "Price", "Unit Price"}}
	for _, txn := range bigDeals {
		rows = append(rows, []string{
			txn.Date.Format("2006-01-02"),
			txn.District,
			propertyLabel(txn),
			string(txn.AssetType),
			FormatHKD(txn.Price),
			unitPriceLabel(txn),
		})
	}
	writeTable(b, rows)
	b.WriteString("\n")
}

func renderTransactions(b *strings.Builder, txns []record.TransactionRecord) {
	b.WriteString("## Transactions\n\n")
	if len(txns) == 0 {
		b.WriteString("No transactions recorded this week.\n\n")
		return
	}

	rows := [][]string{{"Date", "District", "Property", "Nature", "Price", "Source"}}
	for _, txn := range txns {
		rows = append(rows, []string{
			txn.Date.Format("2006-01-02"),
			txn.District,
			propertyLabel(txn),
			string(txn.Nature),
			FormatHKD(txn.Price),
			txn.SourceID,
		})
	}
	writeTable(b, rows)
	b.WriteString("\n")
}

func renderNews(b *strings.Builder, news []record.NewsRecord) {
	b.WriteString("## Market News\n\n")
	if len(news) == 0 {
		b.WriteString("No ranked news this week.\n\n")
		return
	}

	for i, item := range news {
		fmt.Fprintf(b, "%d. **%s** (%.1f, %s)\n", i+1, item.Topic, item.RelevanceScore, item.Date.Format("2006-01-02"))
		if item.Summary != "" {
			fmt.Fprintf(b, "   %s\n", item.Summary)
		}
		if item.SourceURL != "" {
			fmt.Fprintf(b, "   %s\n", item.SourceURL)
		}
		b.WriteString("\n")
	}
}

func propertyLabel(txn record.TransactionRecord) string {
	parts := []string{txn.PropertyName}
	if txn.Floor != "unknown" && txn.Floor != "" {
		parts = append(parts, txn.Floor+"/F")
	}
	if txn.Unit != "unknown" && txn.Unit != "" {
		parts = append(parts, txn.Unit)
	}
	return strings.Join(parts, " ")
}

func unitPriceLabel(txn record.TransactionRecord) string {
	if txn.UnitPrice <= 0 {
		return "-"
	}
	return fmt.Sprintf("%s/%s", FormatHKD(txn.UnitPrice), txn.Area.Unit)
}

// FormatHKD renders an HKD amount with the customary 億/萬 units above ten
// thousand dollars.
func FormatHKD(amount int64) string {
	const (
		yi  = 100_000_000
		wan = 10_000
	)
	switch {
	case amount >= yi && amount%wan == 0:
		whole := amount / yi
		rest := (amount % yi) / wan
		if rest == 0 {
			return fmt.Sprintf("HK$%d億", whole)
		}
		return fmt.Sprintf("HK$%d億%d萬", whole, rest)
	case amount >= wan && amount%wan == 0:
		return fmt.Sprintf("HK$%d萬", amount/wan)
	default:
		return fmt.Sprintf("HK$%d", amount)
	}
}

// writeTable renders rows as a markdown table with cells padded to the
// widest display width per column. The first row is the header.
func writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	colCount := len(rows[0])
	widths := make([]int, colCount)
	for _, row := range rows {
		for i := 0; i < len(row) && i < colCount; i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pad := widths[i] - runewidth.StringWidth(cell)
			b.WriteString(" " + cell + strings.Repeat(" ", pad) + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|")
	for i := 0; i < colCount; i++ {
		b.WriteString(strings.Repeat("-", widths[i]+2) + "|")
	}
	b.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
}
