package livesearch

import (
	"sync"

	"github.com/conneroisu/shelfsearch/internal/rowfilter"
)

// Catalog holds the table every session filters. The table can be swapped
// while sessions are running; a search always sees one complete table.
type Catalog struct {
	mu      sync.RWMutex
	table   *rowfilter.Table
	version uint64
}

// NewCatalog wraps table. A nil table behaves as an empty one.
func NewCatalog(table *rowfilter.Table) *Catalog {
	if table == nil {
		table = rowfilter.NewTable(nil, nil)
	}
	return &Catalog{table: table, version: 1}
}

// Replace swaps in a freshly loaded table.
func (c *Catalog) Replace(table *rowfilter.Table) {
	if table == nil {
		table = rowfilter.NewTable(nil, nil)
	}
	c.mu.Lock()
	c.table = table
	c.version++
	c.mu.Unlock()
}

// Version increases by one on every Replace.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Snapshot returns a private copy of the current table.
func (c *Catalog) Snapshot() *rowfilter.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.Clone()
}

// Columns returns the header cells of the current table.
func (c *Catalog) Columns() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.table.Columns()...)
}

// Search filters a copy of the current table, so concurrent sessions never
// see each other's visibility flags.
func (c *Catalog) Search(query string) Result {
	table := c.Snapshot()
	stats := table.Filter(query)

	visible := table.VisibleRows()
	rows := make([][]string, len(visible))
	for i, r := range visible {
		rows[i] = r.Cells
	}

	return Result{
		Query:   query,
		Source:  table.Name,
		Columns: table.Columns(),
		Visible: table.VisibilityMask(),
		Rows:    rows,
		Matched: stats.Shown,
		Total:   table.Len(),
		Skipped: stats.Skipped,
	}
}

// Result is the outcome of one filtering pass.
type Result struct {
	Query  string `json:"query" yaml:"query"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Columns is the header row.
	Columns []string `json:"columns" yaml:"columns"`
	// Visible has one flag per row, header first; index 0 is always true.
	Visible []bool `json:"visible" yaml:"visible"`
	// Rows holds the cells of the visible data rows, in table order.
	Rows    [][]string `json:"rows" yaml:"rows"`
	Matched int        `json:"matched" yaml:"matched"`
	Total   int        `json:"total" yaml:"total"`
	Skipped int        `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}
