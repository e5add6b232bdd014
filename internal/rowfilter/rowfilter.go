// Package rowfilter shows and hides the data rows of a table according to a
// case-insensitive substring query.
//
// Row 0 of every collection is the header and is never touched. Filtering
// only flips visibility flags; rows are never reordered or removed.
package rowfilter

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Row is one entry of a row collection.
type Row interface {
	// Text returns the row's visible text.
	Text() (string, error)
	SetVisible(visible bool)
	Visible() bool
}

// Stats summarises one filtering pass over the data rows.
type Stats struct {
	Shown   int
	Hidden  int
	Skipped int // rows whose text could not be read; counted as hidden too
}

// Total returns the number of data rows examined.
func (s Stats) Total() int {
	return s.Shown + s.Hidden
}

// Matcher holds a lower-cased query ready for repeated matching.
type Matcher struct {
	query string
}

// NewMatcher lower-cases query using Unicode case mapping.
func NewMatcher(query string) Matcher {
	return Matcher{query: lower(query)}
}

// Query returns the normalized query.
func (m Matcher) Query() string {
	return m.query
}

// Match reports whether the normalized query occurs in text, ignoring case.
// The empty query matches everything.
func (m Matcher) Match(text string) bool {
	if m.query == "" {
		return true
	}
	return strings.Contains(lower(text), m.query)
}

// cases.Caser keeps internal state and must not be shared across goroutines.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Filter sets the visibility of rows[1:] according to query and leaves
// rows[0] alone. A row whose text cannot be read is treated as empty.
func Filter(rows []Row, query string) Stats {
	var stats Stats
	if len(rows) < 2 {
		return stats
	}

	m := NewMatcher(query)
	for _, row := range rows[1:] {
		if row == nil {
			stats.Skipped++
			stats.Hidden++
			continue
		}

		text, err := rowText(row)
		if err != nil {
			stats.Skipped++
			text = ""
		}

		visible := m.Match(text)
		row.SetVisible(visible)
		if visible {
			stats.Shown++
		} else {
			stats.Hidden++
		}
	}

	return stats
}

// rowText calls Text and converts a panic into an error so one broken row
// cannot abort the pass.
func rowText(row Row) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row text panicked: %v", r)
		}
	}()
	return row.Text()
}

// Visibility is the pure form of Filter: it returns one flag per text, with
// index 0 (the header) always true.
func Visibility(texts []string, query string) []bool {
	out := make([]bool, len(texts))
	if len(texts) == 0 {
		return out
	}
	out[0] = true

	m := NewMatcher(query)
	for i := 1; i < len(texts); i++ {
		out[i] = m.Match(texts[i])
	}
	return out
}
