package csv

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	gsio "github.com/samyak-umathe/L-THackthon/pkg/io"
)

var _ gsio.Sink = (*FileSink)(nil)

// Write encodes t to w with a header row in column order.
func Write(w io.Writer, t *grid.Table) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()

	if err := cw.Write(cols); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}

	rec := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for j, c := range cols {
			rec[j] = cast.ToString(t.Value(i, c))
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "failed to write csv row %d", i+1)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

// WriteFile writes t to filename, replacing any existing file.
func WriteFile(filename string, t *grid.Table) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close %s", filename)
}

// FileSink writes each scored batch to a CSV file.
type FileSink struct {
	path string
}

// NewFileSink creates a sink writing to path. Parent directories are created
// on first write.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string {
	return "csv:" + s.path
}

func (s *FileSink) Write(ctx context.Context, t *grid.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", s.path)
	}
	return WriteFile(s.path, t)
}

func (s *FileSink) Close() error {
	return nil
}
