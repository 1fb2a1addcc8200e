package io

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

// Sink is the interface for delivering a scored batch.
type Sink interface {
	// Name identifies the sink in logs and errors.
	Name() string

	// Write delivers the augmented table.
	Write(ctx context.Context, t *grid.Table) error

	// Close releases resources.
	Close() error
}

// MultiSink writes to several sinks concurrently.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink fans writes out to sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Name() string {
	return "multi"
}

// Len returns the number of wrapped sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Write delivers t to every sink and returns the first failure. Remaining
// writes are cancelled through ctx once one fails.
func (m *MultiSink) Write(ctx context.Context, t *grid.Table) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range m.sinks {
		s := s
		g.Go(func() error {
			if err := s.Write(ctx, t); err != nil {
				return &SinkError{Sink: s.Name(), Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// Close closes every sink and aggregates their errors.
func (m *MultiSink) Close() error {
	var errs *multierror.Error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = multierror.Append(errs, &SinkError{Sink: s.Name(), Err: err})
		}
	}
	return errs.ErrorOrNil()
}

// SinkError attributes a failure to a sink.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return "sink " + e.Sink + ": " + e.Err.Error()
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
