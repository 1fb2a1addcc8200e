// Package io provides input/output utilities for feeder-reading tables.
package io

import (
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
)

// Reader is the interface for loading a batch from a data source.
type Reader interface {
	// Read returns the complete batch.
	Read() (*grid.Table, error)

	// Close releases resources.
	Close() error
}
