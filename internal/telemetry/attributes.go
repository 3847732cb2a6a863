// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Scan attributes
	ScanIDKey            = "scan.id"
	ScanListedKey        = "scan.items.listed"
	ScanReportedKey      = "scan.items.reported"
	ScanSkippedNoPathKey = "scan.items.skipped_no_path"
	ScanSkippedNoNfoKey  = "scan.items.skipped_no_nfo"
	ScanFailedKey        = "scan.items.failed"
	ScanWorkersKey       = "scan.workers"

	// Emby attributes
	EmbyOperationKey = "emby.operation"
	EmbyPageStartKey = "emby.page.start_index"
	EmbyPageLimitKey = "emby.page.limit"
	EmbyTotalKey     = "emby.total_record_count"

	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPRouteKey      = "http.route"
	HTTPStatusCodeKey = "http.status_code"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ScanResultAttributes creates span attributes summarising a finished scan.
func ScanResultAttributes(listed, reported, skippedNoPath, skippedNoNfo, failed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(ScanListedKey, listed),
		attribute.Int(ScanReportedKey, reported),
		attribute.Int(ScanSkippedNoPathKey, skippedNoPath),
		attribute.Int(ScanSkippedNoNfoKey, skippedNoNfo),
		attribute.Int(ScanFailedKey, failed),
	}
}

// EmbyPageAttributes creates span attributes for one paged listing request.
func EmbyPageAttributes(startIndex, limit int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EmbyOperationKey, "list_items"),
		attribute.Int(EmbyPageStartKey, startIndex),
		attribute.Int(EmbyPageLimitKey, limit),
	}
}

// HTTPAttributes creates common HTTP server span attributes. Query strings are
// never recorded.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError marks span as failed with err and an error type label.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(ErrorAttributes(errorType)...)
}
