// Package csv reads and writes feeder-reading tables as CSV.
package csv

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	gsio "github.com/samyak-umathe/L-THackthon/pkg/io"
)

var _ gsio.Reader = (*Reader)(nil)

// Reader reads a headed CSV into a grid.Table.
type Reader struct {
	closer  io.Closer
	reader  *csv.Reader
	numeric map[string]bool
	flags   map[string]bool
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithNumeric marks extra columns to parse as floats.
func WithNumeric(cols ...string) Option {
	return func(r *Reader) {
		for _, c := range cols {
			r.numeric[c] = true
		}
	}
}

// WithBool marks extra columns to parse as booleans.
func WithBool(cols ...string) Option {
	return func(r *Reader) {
		for _, c := range cols {
			r.flags[c] = true
		}
	}
}

// NewReader creates a reader over src. If src is an io.Closer, Close closes it.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		reader:  csv.NewReader(src),
		numeric: make(map[string]bool),
		flags:   make(map[string]bool),
	}
	r.reader.TrimLeadingSpace = true
	if c, ok := src.(io.Closer); ok {
		r.closer = c
	}

	for _, c := range grid.NumericColumns {
		r.numeric[c] = true
	}
	r.numeric[grid.ColAnomalyScore] = true
	r.numeric[grid.ColFailureRiskScore] = true
	for _, c := range grid.BoolColumns {
		r.flags[c] = true
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates a reader for the named file.
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", filename)
	}
	return NewReader(file, opts...), nil
}

// Read parses the whole input. Known numeric and boolean columns that fail to
// parse yield a *grid.SchemaError naming the cell; other columns are kept as
// text.
func (r *Reader) Read() (*grid.Table, error) {
	header, err := r.reader.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv: missing header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records, err := r.reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv records")
	}

	t := grid.NewTable(len(records))
	for j, name := range header {
		if err := r.setColumn(t, name, j, records); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (r *Reader) setColumn(t *grid.Table, name string, j int, records [][]string) error {
	switch {
	case r.numeric[name]:
		col := make([]float64, len(records))
		for i, rec := range records {
			v, err := cast.ToFloat64E(strings.TrimSpace(rec[j]))
			if err != nil {
				return cellError(name, i, rec[j], err)
			}
			col[i] = v
		}
		return t.SetFloat(name, col)
	case r.flags[name]:
		col := make([]bool, len(records))
		for i, rec := range records {
			v, err := cast.ToBoolE(strings.ToLower(strings.TrimSpace(rec[j])))
			if err != nil {
				return cellError(name, i, rec[j], err)
			}
			col[i] = v
		}
		return t.SetBool(name, col)
	default:
		col := make([]string, len(records))
		for i, rec := range records {
			col[i] = rec[j]
		}
		return t.SetText(name, col)
	}
}

func cellError(col string, row int, raw string, err error) error {
	return &grid.SchemaError{
		Cause: errors.Wrapf(err, "column %s row %d: cannot parse %q", col, row+1, raw),
	}
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// ReadFile loads a whole CSV file.
func ReadFile(filename string, opts ...Option) (*grid.Table, error) {
	r, err := Open(filename, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Read()
}
