// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestGenerateCorrelationID(t *testing.T) {
	t.Parallel()

	id1 := GenerateCorrelationID()
	id2 := GenerateCorrelationID()

	if len(id1) != 8 {
		t.Errorf("expected 8-character correlation ID, got %d: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Error("expected unique correlation IDs")
	}
}

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	if len(id1) != 36 {
		t.Errorf("expected UUID-length request ID, got %d: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Error("expected unique request IDs")
	}
}

func TestCorrelationIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty correlation ID, got %s", got)
	}

	ctx = ContextWithCorrelationID(ctx, "tick1234")
	if got := CorrelationIDFromContext(ctx); got != "tick1234" {
		t.Errorf("expected 'tick1234', got %s", got)
	}
}

func TestContextWithNewCorrelationID(t *testing.T) {
	t.Parallel()

	ctx := ContextWithNewCorrelationID(context.Background())

	if got := CorrelationIDFromContext(ctx); got == "" {
		t.Error("expected generated correlation ID, got empty string")
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID, got %s", got)
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("expected 'req-1', got %s", got)
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithLogger(context.Background(), logger)

	retrieved := LoggerFromContext(ctx)
	retrieved.Info().Msg("from context")

	if !strings.Contains(buf.String(), "from context") {
		t.Errorf("expected logger from context to write to buffer: %s", buf.String())
	}
}

func TestLoggerFromContext_NoLogger(t *testing.T) {
	t.Parallel()

	// Should fall back to the global logger without panicking.
	logger := LoggerFromContext(context.Background())
	logger.Debug().Msg("fallback")
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithCorrelationID(ctx, "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-uuid")

	Ctx(ctx).Info().Msg("with context fields")

	output := buf.String()
	if !strings.Contains(output, "abcd1234") {
		t.Errorf("expected correlation_id in output: %s", output)
	}
	if !strings.Contains(output, "req-uuid") {
		t.Errorf("expected request_id in output: %s", output)
	}
}

func TestCtxWith(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithCorrelationID(ctx, "tick5678")

	logger := CtxWith(ctx).Str("schedule_id", "42").Logger()
	logger.Info().Msg("schedule active")

	output := buf.String()
	if !strings.Contains(output, "tick5678") {
		t.Errorf("expected correlation_id in output: %s", output)
	}
	if !strings.Contains(output, "schedule_id") {
		t.Errorf("expected extra field in output: %s", output)
	}
}

func TestCtxShortcuts(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))
	ctx = ContextWithCorrelationID(ctx, "shortcut1")

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"CtxDebug", func() { CtxDebug(ctx).Msg("d") }, "debug"},
		{"CtxInfo", func() { CtxInfo(ctx).Msg("i") }, "info"},
		{"CtxWarn", func() { CtxWarn(ctx).Msg("w") }, "warn"},
		{"CtxError", func() { CtxError(ctx).Msg("e") }, "error"},
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		output := buf.String()
		if !strings.Contains(output, tt.level) {
			t.Errorf("%s: expected level %s in output: %s", tt.name, tt.level, output)
		}
		if !strings.Contains(output, "shortcut1") {
			t.Errorf("%s: expected correlation_id in output: %s", tt.name, output)
		}
	}
}

func TestCtxErr(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithLogger(context.Background(), zerolog.New(&buf))

	CtxErr(ctx, errTest).Msg("operation failed")

	output := buf.String()
	if !strings.Contains(output, "test error") {
		t.Errorf("expected error in output: %s", output)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf))

	logger := WithComponent("pathmap")
	logger.Info().Msg("translated")

	output := buf.String()
	if !strings.Contains(output, `"component":"pathmap"`) {
		t.Errorf("expected component field in output: %s", output)
	}
}
