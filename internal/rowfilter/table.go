package rowfilter

import (
	"strings"
)

// TableRow is a row made of cells. Its visible text is the cells joined by a
// single space. New rows are visible.
type TableRow struct {
	Cells  []string
	hidden bool
}

// NewTableRow creates a visible row from cells.
func NewTableRow(cells ...string) *TableRow {
	return &TableRow{Cells: cells}
}

// Text implements Row.
func (r *TableRow) Text() (string, error) {
	if r == nil {
		return "", nil
	}
	return strings.Join(r.Cells, " "), nil
}

// SetVisible implements Row.
func (r *TableRow) SetVisible(visible bool) {
	if r == nil {
		return
	}
	r.hidden = !visible
}

// Visible implements Row.
func (r *TableRow) Visible() bool {
	return r != nil && !r.hidden
}

// Table is a header plus data rows.
type Table struct {
	Header *TableRow
	Data   []*TableRow
	// Name identifies where the table came from, e.g. a file path or a
	// database table name.
	Name string
}

// NewTable builds a table from a header and data records.
func NewTable(header []string, records [][]string) *Table {
	t := &Table{
		Header: NewTableRow(header...),
		Data:   make([]*TableRow, 0, len(records)),
	}
	for _, rec := range records {
		t.Data = append(t.Data, NewTableRow(rec...))
	}
	return t
}

// Rows returns the row collection with the header at index 0. Nil data rows
// stay nil and are counted as skipped by Filter.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.Data)+1)
	header := t.Header
	if header == nil {
		header = NewTableRow()
	}
	rows = append(rows, header)
	for _, r := range t.Data {
		if r == nil {
			// untyped nil, so Filter counts it as skipped
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// Filter applies query to the table's data rows.
func (t *Table) Filter(query string) Stats {
	return Filter(t.Rows(), query)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Data)
}

// Columns returns the header cells.
func (t *Table) Columns() []string {
	if t.Header == nil {
		return nil
	}
	return t.Header.Cells
}

// VisibleRows returns the data rows currently visible, in table order.
func (t *Table) VisibleRows() []*TableRow {
	out := make([]*TableRow, 0, len(t.Data))
	for _, r := range t.Data {
		if r.Visible() {
			out = append(out, r)
		}
	}
	return out
}

// VisibilityMask returns one flag per row of Rows(), header first.
func (t *Table) VisibilityMask() []bool {
	mask := make([]bool, len(t.Data)+1)
	mask[0] = true
	for i, r := range t.Data {
		mask[i+1] = r.Visible()
	}
	return mask
}

// Clone returns a deep copy, so a caller can filter without touching the
// shared table.
func (t *Table) Clone() *Table {
	c := &Table{Name: t.Name, Data: make([]*TableRow, len(t.Data))}
	if t.Header != nil {
		c.Header = &TableRow{Cells: append([]string(nil), t.Header.Cells...), hidden: t.Header.hidden}
	}
	for i, r := range t.Data {
		if r == nil {
			continue
		}
		c.Data[i] = &TableRow{Cells: append([]string(nil), r.Cells...), hidden: r.hidden}
	}
	return c
}
