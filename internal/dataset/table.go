// Package dataset holds generated row sets and assembles each period's
// deliverable table.
package dataset

import (
	"fmt"

	serr "github.com/Rana718/seriesgen/internal/errors"
)

// Row maps a column name to its rendered value.
type Row map[string]string

// Table is an ordered set of columns and the rows under them.
type Table struct {
	Columns []string
	Rows    []Row
}

func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Column returns every value of one column in row order.
func (t *Table) Column(name string) []string {
	values := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		values[i] = r[name]
	}
	return values
}

// Values returns the row's values in the table's column order.
func (t *Table) Values(r Row) []string {
	values := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		values[i] = r[c]
	}
	return values
}

// Reindex projects t onto order. Every column of order must exist in t;
// columns of t outside order are dropped.
func Reindex(t *Table, order []string) (*Table, error) {
	have := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = true
	}
	for _, c := range order {
		if !have[c] {
			return nil, serr.Newf(serr.CategoryConsistency, serr.CodeColumnOrderMismatch,
				"column %q of the reference order is missing from the generated rows", c)
		}
	}

	out := &Table{Columns: append([]string(nil), order...), Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		row := make(Row, len(order))
		for _, c := range order {
			row[c] = r[c]
		}
		out.Rows[i] = row
	}
	return out, nil
}

func (t *Table) String() string {
	return fmt.Sprintf("table(%d columns, %d rows)", len(t.Columns), len(t.Rows))
}
