// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import "errors"

var (
	// ErrScanRunning is returned when a scan is already in progress.
	ErrScanRunning = errors.New("scan already running")
	// ErrListing marks a failed ListItems call.
	ErrListing = errors.New("library listing failed")
	// ErrEmptyListing marks a listing that returned no items.
	ErrEmptyListing = errors.New("library listing returned no items")
)

// ListingError is the single error raised for a run whose listing failed or
// came back empty. Kind is ErrListing or ErrEmptyListing.
type ListingError struct {
	Kind  error
	Cause error
}

func (e *ListingError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Cause.Error()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ListingError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
