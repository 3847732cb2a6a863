// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestContextWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{name: "nil context", ctx: nil, requestID: "test-id-123", want: "test-id-123"},
		{name: "background context", ctx: context.Background(), requestID: "req-456", want: "req-456"},
		{name: "empty request ID", ctx: context.Background(), requestID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRequestID(tt.ctx, tt.requestID) //nolint:staticcheck // nil ctx is part of the contract
			if got := RequestIDFromContext(ctx); got != tt.want {
				t.Errorf("RequestIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContextWithScanID(t *testing.T) {
	ctx := ContextWithScanID(context.Background(), "scan-1")
	if got := ScanIDFromContext(ctx); got != "scan-1" {
		t.Errorf("ScanIDFromContext() = %q, want %q", got, "scan-1")
	}
	if got := ScanIDFromContext(context.Background()); got != "" {
		t.Errorf("ScanIDFromContext() on empty context = %q, want empty", got)
	}
	if got := ScanIDFromContext(nil); got != "" { //nolint:staticcheck // nil ctx is part of the contract
		t.Errorf("ScanIDFromContext(nil) = %q, want empty", got)
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithScanID(ctx, "scan-9")

	l := WithContext(ctx, base)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry[FieldRequestID])
	}
	if entry[FieldScanID] != "scan-9" {
		t.Errorf("scan_id = %v, want scan-9", entry[FieldScanID])
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	l := WithContext(context.Background(), base)
	l.Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if _, ok := entry[FieldScanID]; ok {
		t.Errorf("unexpected scan_id field in %v", entry)
	}
}

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, Service: "test"})
	t.Cleanup(func() { Configure(Config{}) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l := WithTraceContext(ctx)
	l.Info().Msg("traced")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if entry[FieldTraceID] != traceID.String() {
		t.Errorf("trace_id = %v, want %s", entry[FieldTraceID], traceID)
	}
	if entry[FieldSpanID] != spanID.String() {
		t.Errorf("span_id = %v, want %s", entry[FieldSpanID], spanID)
	}
}

func TestFromContextPrefersStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	stored := zerolog.New(&buf).With().Str("marker", "stored").Logger()
	ctx := stored.WithContext(context.Background())

	FromContext(ctx).Info().Msg("x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	if entry["marker"] != "stored" {
		t.Errorf("expected stored logger to be used, got %v", entry)
	}
}
