// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package nfo

import "maps"

// Names of the technical fields filled by extractors.
const (
	FieldResolution   = "resolution"
	FieldVideoCodec   = "video_codec"
	FieldSource       = "source"
	FieldReleaseGroup = "release_group"
)

// ExtractFunc derives one field from the document root.
type ExtractFunc func(root *Element) string

// Extractors maps a field name to the function that fills it.
// A field without an entry is left empty.
type Extractors map[string]ExtractFunc

// ExtractorFields lists the fields served by Extractors, in MediaInfo order.
var ExtractorFields = []string{FieldResolution, FieldVideoCodec, FieldSource, FieldReleaseGroup}

func emptyField(*Element) string { return "" }

// DefaultExtractors returns the stock set: every technical field is empty.
func DefaultExtractors() Extractors {
	return Extractors{
		FieldResolution:   emptyField,
		FieldVideoCodec:   emptyField,
		FieldSource:       emptyField,
		FieldReleaseGroup: emptyField,
	}
}

// With returns a copy of x where field is served by fn.
func (x Extractors) With(field string, fn ExtractFunc) Extractors {
	out := maps.Clone(x)
	if out == nil {
		out = make(Extractors, 1)
	}
	out[field] = fn
	return out
}

func (x Extractors) run(field string, root *Element) string {
	fn, ok := x[field]
	if !ok || fn == nil {
		return ""
	}
	return fn(root)
}

// ExtractorSet resolves a configured extractor set name.
func ExtractorSet(name string) (Extractors, bool) {
	switch name {
	case "", "default":
		return DefaultExtractors(), true
	case "streamdetails":
		return StreamDetailsExtractors(), true
	default:
		return nil, false
	}
}
