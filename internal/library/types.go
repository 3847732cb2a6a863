// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package library walks the items a media server reports, locates their NFO
// sidecars and turns each one into a scan outcome.
// This layer only depends on the Lister and Parser interfaces; the media server
// client and the NFO reader are supplied by the caller.
package library

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/nfoscan/internal/nfo"
)

// Item is a library entry as decoded from the media server. Only Path is
// interpreted; every other key passes through untouched.
type Item map[string]any

// Path returns the media file path. A missing, null, non-string or empty
// value reports ok=false.
func (i Item) Path() (string, bool) {
	return i.str("Path")
}

// ID returns the server item id, or "".
func (i Item) ID() string {
	s, _ := i.str("Id")
	return s
}

// Name returns the display name, or "".
func (i Item) Name() string {
	s, _ := i.str("Name")
	return s
}

func (i Item) str(key string) (string, bool) {
	v, ok := i[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Lister is the media-server collaborator: one call returns every item.
type Lister interface {
	ListItems(ctx context.Context) ([]Item, error)
}

// Parser reads one NFO file.
type Parser interface {
	Parse(path string) (nfo.MediaInfo, error)
}

// State is the terminal state of one item in a scan.
type State string

const (
	StateReported      State = "reported"        // NFO parsed and reported
	StateSkippedNoPath State = "skipped_no_path" // Item has no usable Path
	StateSkippedNoNfo  State = "skipped_no_nfo"  // Sidecar missing or not a regular file
	StateFailed        State = "failed"          // Sidecar exists but could not be parsed
)

// String returns the string representation of State.
func (s State) String() string {
	return string(s)
}

// Skip reasons carried on skipped outcomes.
const (
	ReasonNoPath     = "no_path"
	ReasonNfoMissing = "nfo_missing"
	ReasonStatFailed = "stat_failed"
)

// Outcome is the result for the item at Index in the scanned slice.
type Outcome struct {
	Index     int
	Item      Item
	MediaPath string // local path after path mapping
	NfoPath   string
	State     State
	Reason    string
	Info      nfo.MediaInfo
	Err       error
}

// Result is a reported item in a Report.
type Result struct {
	Index     int           `json:"index"`
	ItemID    string        `json:"item_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	MediaPath string        `json:"media_path"`
	NfoPath   string        `json:"nfo_path"`
	Info      nfo.MediaInfo `json:"info"`
}

// Failure is a failed item in a Report.
type Failure struct {
	Index   int    `json:"index"`
	ItemID  string `json:"item_id,omitempty"`
	Name    string `json:"name,omitempty"`
	NfoPath string `json:"nfo_path"`
	Error   string `json:"error"`
}

// Report aggregates one scan run.
type Report struct {
	ScanID        string    `json:"scan_id"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	Listed        int       `json:"listed"`
	Reported      int       `json:"reported"`
	SkippedNoPath int       `json:"skipped_no_path"`
	SkippedNoNfo  int       `json:"skipped_no_nfo"`
	Failed        int       `json:"failed"`
	Results       []Result  `json:"results"`
	Failures      []Failure `json:"failures"`
	ListingError  string    `json:"listing_error,omitempty"`
	Cancelled     bool      `json:"cancelled,omitempty"`
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// OK reports whether the listing succeeded and no item failed.
func (r *Report) OK() bool {
	return r.ListingError == "" && r.Failed == 0 && !r.Cancelled
}

// Summary returns a one-line human-readable summary.
func (r *Report) Summary() string {
	if r.ListingError != "" {
		return fmt.Sprintf("scan %s: listing failed: %s", r.ScanID, r.ListingError)
	}
	return fmt.Sprintf("scan %s: listed=%d reported=%d skipped_no_path=%d skipped_no_nfo=%d failed=%d in %s",
		r.ScanID, r.Listed, r.Reported, r.SkippedNoPath, r.SkippedNoNfo, r.Failed,
		r.Duration().Round(time.Millisecond))
}

func (r *Report) add(o Outcome) {
	switch o.State {
	case StateReported:
		r.Reported++
		r.Results = append(r.Results, Result{
			Index:     o.Index,
			ItemID:    o.Item.ID(),
			Name:      o.Item.Name(),
			MediaPath: o.MediaPath,
			NfoPath:   o.NfoPath,
			Info:      o.Info,
		})
	case StateSkippedNoPath:
		r.SkippedNoPath++
	case StateSkippedNoNfo:
		r.SkippedNoNfo++
	case StateFailed:
		r.Failed++
		msg := ""
		if o.Err != nil {
			msg = o.Err.Error()
		}
		r.Failures = append(r.Failures, Failure{
			Index:   o.Index,
			ItemID:  o.Item.ID(),
			Name:    o.Item.Name(),
			NfoPath: o.NfoPath,
			Error:   msg,
		})
	}
}
