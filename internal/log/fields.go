// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldScanID    = "scan_id"
	FieldRequestID = "request_id"
	FieldItemID    = "item_id"
	FieldItemName  = "item_name"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldReason    = "reason"
	FieldState     = "state"
	FieldOperation = "operation"

	// Path / URL fields
	FieldMediaPath = "media_path"
	FieldNfoPath   = "nfo_path"
	FieldBaseURL   = "base_url"

	// Media fields
	FieldTitle         = "title"
	FieldOriginalTitle = "original_title"
	FieldYear          = "year"
	FieldCountry       = "country"
	FieldResolution    = "resolution"
	FieldVideoCodec    = "video_codec"
	FieldSource        = "source"
	FieldReleaseGroup  = "release_group"
)
