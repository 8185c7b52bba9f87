package ingest

import (
	"errors"
	"fmt"
)

// ParseError is a row-level failure: one malformed cell or row in an input
// file. Parse errors never abort a run; the reader skips the row, counts
// it, and keeps the first few as samples for the audit report.
type ParseError struct {
	File   string
	Row    int // 1-based data row index, header excluded
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s row %d column %s: %v", e.File, e.Row, e.Column, e.Err)
	}
	return fmt.Sprintf("%s row %d: %v", e.File, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InputUnavailableError is a source-level failure: the input file itself
// cannot be read. It is fatal and aborts the run.
type InputUnavailableError struct {
	Path string
	Err  error
}

func (e *InputUnavailableError) Error() string {
	return fmt.Sprintf("input unavailable: %s: %v", e.Path, e.Err)
}

func (e *InputUnavailableError) Unwrap() error { return e.Err }

// IsInputUnavailable reports whether err wraps an InputUnavailableError.
func IsInputUnavailable(err error) bool {
	var iu *InputUnavailableError
	return errors.As(err, &iu)
}
