// Package grid defines the feeder-reading table the scoring pipeline consumes
// and augments.
package grid

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
)

// ColumnKind is the storage type of a table column.
type ColumnKind int

const (
	KindNone ColumnKind = iota
	KindFloat
	KindText
	KindBool
)

// maxCellErrors bounds how many bad cells a SchemaError lists.
const maxCellErrors = 10

// Table is an in-memory, column-oriented batch of readings. All columns have
// the same length. A Table is not safe for concurrent mutation.
type Table struct {
	rows    int
	order   []string
	numeric map[string][]float64
	text    map[string][]string
	flags   map[string][]bool
}

// NewTable creates an empty table with the given row count.
func NewTable(rows int) *Table {
	return &Table{
		rows:    rows,
		numeric: make(map[string][]float64),
		text:    make(map[string][]string),
		flags:   make(map[string][]bool),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.rows
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Kind returns the storage type of a column, or KindNone if it is absent.
func (t *Table) Kind(name string) ColumnKind {
	if _, ok := t.numeric[name]; ok {
		return KindFloat
	}
	if _, ok := t.text[name]; ok {
		return KindText
	}
	if _, ok := t.flags[name]; ok {
		return KindBool
	}
	return KindNone
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	return t.Kind(name) != KindNone
}

// SetFloat adds or replaces a numeric column.
func (t *Table) SetFloat(name string, values []float64) error {
	if err := t.prepare(name, len(values)); err != nil {
		return err
	}
	t.numeric[name] = values
	return nil
}

// SetText adds or replaces a text column.
func (t *Table) SetText(name string, values []string) error {
	if err := t.prepare(name, len(values)); err != nil {
		return err
	}
	t.text[name] = values
	return nil
}

// SetBool adds or replaces a boolean column.
func (t *Table) SetBool(name string, values []bool) error {
	if err := t.prepare(name, len(values)); err != nil {
		return err
	}
	t.flags[name] = values
	return nil
}

func (t *Table) prepare(name string, n int) error {
	if n != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, n, t.rows)
	}
	if !t.Has(name) {
		t.order = append(t.order, name)
		return nil
	}
	delete(t.numeric, name)
	delete(t.text, name)
	delete(t.flags, name)
	return nil
}

// Float returns a numeric column. The slice is shared with the table.
func (t *Table) Float(name string) ([]float64, bool) {
	v, ok := t.numeric[name]
	return v, ok
}

// Text returns a text column. The slice is shared with the table.
func (t *Table) Text(name string) ([]string, bool) {
	v, ok := t.text[name]
	return v, ok
}

// Bool returns a boolean column. The slice is shared with the table.
func (t *Table) Bool(name string) ([]bool, bool) {
	v, ok := t.flags[name]
	return v, ok
}

// Value returns the cell at row i of the named column, or nil if absent.
func (t *Table) Value(i int, name string) any {
	switch t.Kind(name) {
	case KindFloat:
		return t.numeric[name][i]
	case KindText:
		return t.text[name][i]
	case KindBool:
		return t.flags[name][i]
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := NewTable(t.rows)
	c.order = append([]string(nil), t.order...)
	for k, v := range t.numeric {
		c.numeric[k] = append([]float64(nil), v...)
	}
	for k, v := range t.text {
		c.text[k] = append([]string(nil), v...)
	}
	for k, v := range t.flags {
		c.flags[k] = append([]bool(nil), v...)
	}
	return c
}

// Drop returns a deep copy of t without the named columns.
func (t *Table) Drop(names ...string) *Table {
	c := t.Clone()
	for _, name := range names {
		if !c.Has(name) {
			continue
		}
		delete(c.numeric, name)
		delete(c.text, name)
		delete(c.flags, name)
		for i, o := range c.order {
			if o == name {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return c
}

// Select returns a new table holding only the given rows, in order.
func (t *Table) Select(rows []int) *Table {
	s := NewTable(len(rows))
	s.order = append([]string(nil), t.order...)
	for k, v := range t.numeric {
		col := make([]float64, len(rows))
		for i, r := range rows {
			col[i] = v[r]
		}
		s.numeric[k] = col
	}
	for k, v := range t.text {
		col := make([]string, len(rows))
		for i, r := range rows {
			col[i] = v[r]
		}
		s.text[k] = col
	}
	for k, v := range t.flags {
		col := make([]bool, len(rows))
		for i, r := range rows {
			col[i] = v[r]
		}
		s.flags[k] = col
	}
	return s
}

// Matrix validates the named numeric columns and returns them as a
// row-major feature matrix. Missing columns, non-numeric columns and
// non-finite cells yield a *SchemaError.
func (t *Table) Matrix(cols []string) ([][]float64, error) {
	var (
		missing []string
		errs    *multierror.Error
		bad     int
	)
	for _, c := range cols {
		switch t.Kind(c) {
		case KindNone:
			missing = append(missing, c)
		case KindFloat:
			for i, v := range t.numeric[c] {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					bad++
					if bad <= maxCellErrors {
						errs = multierror.Append(errs, fmt.Errorf("column %s row %d: non-finite value %v", c, i, v))
					}
				}
			}
		default:
			errs = multierror.Append(errs, fmt.Errorf("column %s is not numeric", c))
		}
	}
	if bad > maxCellErrors {
		errs = multierror.Append(errs, fmt.Errorf("%d more non-finite values", bad-maxCellErrors))
	}
	if len(missing) > 0 || errs.ErrorOrNil() != nil {
		return nil, &SchemaError{Missing: missing, Cause: errs.ErrorOrNil()}
	}

	m := make([][]float64, t.rows)
	for i := range m {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = t.numeric[c][i]
		}
		m[i] = row
	}
	return m, nil
}

// Records returns one map per row keyed by column name.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, t.rows)
	for i := range out {
		rec := make(map[string]any, len(t.order))
		for _, c := range t.order {
			rec[c] = t.Value(i, c)
		}
		out[i] = rec
	}
	return out
}

type tableJSON struct {
	Rows    int                  `json:"rows"`
	Order   []string             `json:"order"`
	Numeric map[string][]float64 `json:"numeric,omitempty"`
	Text    map[string][]string  `json:"text,omitempty"`
	Flags   map[string][]bool    `json:"flags,omitempty"`
}

// MarshalJSON encodes the table column-wise. Map keys are emitted sorted, so
// equal tables encode to equal bytes.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{
		Rows:    t.rows,
		Order:   t.order,
		Numeric: t.numeric,
		Text:    t.text,
		Flags:   t.flags,
	})
}

func (t *Table) UnmarshalJSON(data []byte) error {
	var w tableJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n := NewTable(w.Rows)
	for _, c := range w.Order {
		var err error
		switch {
		case w.Numeric[c] != nil:
			err = n.SetFloat(c, w.Numeric[c])
		case w.Text[c] != nil:
			err = n.SetText(c, w.Text[c])
		case w.Flags[c] != nil:
			err = n.SetBool(c, w.Flags[c])
		default:
			err = fmt.Errorf("column %q has no values", c)
		}
		if err != nil {
			return err
		}
	}
	*t = *n
	return nil
}
