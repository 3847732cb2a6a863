// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why an NFO could not be parsed.
var (
	ErrUnreadable = errors.New("nfo unreadable")
	ErrMalformed  = errors.New("nfo malformed")
	ErrTooLarge   = errors.New("nfo too large")
	ErrExtract    = errors.New("nfo field extraction failed")
)

// ParseError is returned for every parse failure. Kind is one of the sentinel
// errors above and Cause carries the underlying error.
type ParseError struct {
	Path  string
	Kind  error
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("parse %s: %v: %v", e.Path, e.Kind, e.Cause)
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *ParseError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func newParseError(path string, kind, cause error) *ParseError {
	return &ParseError{Path: path, Kind: kind, Cause: cause}
}
