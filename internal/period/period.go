// Package period computes the Monday-to-Sunday reporting week used by the
// weekly digest and the query API.
package period

import (
	"time"

	"github.com/yutsang/ai-news/internal/globaltime"
)

// Week is one inclusive Monday..Sunday reporting window in UTC.
type Week struct {
	Start time.Time
	End   time.Time
}

// Current returns the reporting week containing the current date.
func Current() Week {
	return For(globaltime.UTC())
}

// For returns the reporting week containing t.
func For(t time.Time) Week {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	start := day.AddDate(0, 0, -offset)
	return Week{
		Start: start,
		End:   start.AddDate(0, 0, 6),
	}
}

// Previous returns the reporting week immediately before w.
func (w Week) Previous() Week {
	return Week{
		Start: w.Start.AddDate(0, 0, -7),
		End:   w.End.AddDate(0, 0, -7),
	}
}

// Contains reports whether t falls inside the window, end day inclusive.
func (w Week) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End.AddDate(0, 0, 1))
}

// Label renders the window as "2026-08-24 to 2026-08-30".
func (w Week) Label() string {
	return w.Start.Format("2006-01-02") + " to " + w.End.Format("2006-01-02")
}
