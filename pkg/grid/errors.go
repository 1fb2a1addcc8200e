package grid

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema matches every *SchemaError.
	ErrSchema = errors.New("schema error")

	// ErrInsufficientData matches every *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient data")
)

// SchemaError reports a table that does not satisfy a scorer's column
// contract: absent feature columns, non-numeric columns, or non-finite cells.
// It is fatal; no partial output accompanies it.
type SchemaError struct {
	// Missing lists required columns absent from the table.
	Missing []string
	// Cause aggregates per-column or per-cell violations.
	Cause error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(ErrSchema.Error())
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing columns [%s]", strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(e.Cause.Error()))
	}
	return b.String()
}

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// InsufficientDataError reports a batch too small or too degenerate to fit a
// model. It is recoverable: scorers degrade and attach it to their report.
type InsufficientDataError struct {
	Component string
	Rows      int
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %s: %s (rows=%d)", ErrInsufficientData, e.Component, e.Reason, e.Rows)
}

// Is reports whether target is ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
