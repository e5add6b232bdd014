//go:build property

package rowfilter

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestFilterProperties validates the visibility contract over generated tables.
func TestFilterProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	texts := gen.SliceOf(gen.AlphaString())
	query := gen.AlphaString().Map(func(s string) string {
		if len(s) > 3 {
			return s[:3]
		}
		return s
	})

	properties.Property("row visible iff lower(query) is a substring of lower(text)", prop.ForAll(
		func(cells []string, q string) bool {
			table := NewTable([]string{"header"}, toRecords(cells))
			table.Filter(q)
			for i, row := range table.Data {
				want := strings.Contains(strings.ToLower(cells[i]), strings.ToLower(q))
				if row.Visible() != want {
					return false
				}
			}
			return true
		},
		texts, query,
	))

	properties.Property("header visibility never changes", prop.ForAll(
		func(cells []string, q string, headerVisible bool) bool {
			table := NewTable([]string{"header"}, toRecords(cells))
			table.Header.SetVisible(headerVisible)
			table.Filter(q)
			return table.Header.Visible() == headerVisible
		},
		texts, query, gen.Bool(),
	))

	properties.Property("empty query shows every data row", prop.ForAll(
		func(cells []string, q string) bool {
			table := NewTable([]string{"header"}, toRecords(cells))
			table.Filter(q)
			table.Filter("")
			return len(table.VisibleRows()) == len(cells)
		},
		texts, query,
	))

	properties.Property("pure and in-place renditions agree", prop.ForAll(
		func(cells []string, q string) bool {
			table := NewTable([]string{"header"}, toRecords(cells))
			table.Filter(q)
			mask := Visibility(append([]string{"header"}, cells...), q)
			got := table.VisibilityMask()
			for i := range mask {
				if mask[i] != got[i] {
					return false
				}
			}
			return true
		},
		texts, query,
	))

	properties.Property("filtering keeps row count and order", prop.ForAll(
		func(cells []string, q string) bool {
			table := NewTable([]string{"header"}, toRecords(cells))
			table.Filter(q)
			if len(table.Data) != len(cells) {
				return false
			}
			for i, row := range table.Data {
				if row.Cells[0] != cells[i] {
					return false
				}
			}
			return true
		},
		texts, query,
	))

	properties.TestingRun(t)
}

func toRecords(cells []string) [][]string {
	records := make([][]string, len(cells))
	for i, c := range cells {
		records[i] = []string{c}
	}
	return records
}
