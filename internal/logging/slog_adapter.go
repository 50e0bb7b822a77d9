// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// slogBridge routes slog records into zerolog so libraries that want an
// *slog.Logger (sutureslog, notably) share the process log stream. The
// supervision tree emits strings, errors, durations and restart counters;
// the bridge handles those natively and falls back to Interface for the
// rest.
type slogBridge struct {
	zl     zerolog.Logger
	attrs  []slog.Attr
	prefix string
}

// NewSlogLogger returns an *slog.Logger backed by the global zerolog
// logger, for handing to the supervisor tree.
func NewSlogLogger() *slog.Logger {
	return slog.New(newSlogBridge(Logger()))
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newSlogBridge(zl zerolog.Logger) *slogBridge {
	return &slogBridge{zl: zl}
}

func (b *slogBridge) Enabled(_ context.Context, level slog.Level) bool {
	return b.zl.GetLevel() <= bridgeLevel(level)
}

//nolint:gocritic // slog.Record is passed by value per slog.Handler
func (b *slogBridge) Handle(_ context.Context, record slog.Record) error {
	event := b.zl.WithLevel(bridgeLevel(record.Level))
	for _, attr := range b.attrs {
		event = bridgeAttr(event, b.prefix, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		event = bridgeAttr(event, b.prefix, attr)
		return true
	})
	event.Msg(record.Message)
	return nil
}

func (b *slogBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(b.attrs)+len(attrs))
	merged = append(merged, b.attrs...)
	merged = append(merged, attrs...)
	return &slogBridge{zl: b.zl, attrs: merged, prefix: b.prefix}
}

func (b *slogBridge) WithGroup(name string) slog.Handler {
	if name == "" {
		return b
	}
	return &slogBridge{zl: b.zl, attrs: b.attrs, prefix: b.prefix + name + "."}
}

// bridgeAttr writes one attribute onto the event, group path prefixed with
// dots the way zerolog users expect flat keys.
func bridgeAttr(event *zerolog.Event, prefix string, attr slog.Attr) *zerolog.Event {
	value := attr.Value.Resolve()
	if attr.Key == "" && value.Kind() != slog.KindGroup {
		return event
	}
	key := prefix + attr.Key

	switch value.Kind() {
	case slog.KindString:
		return event.Str(key, value.String())
	case slog.KindInt64:
		return event.Int64(key, value.Int64())
	case slog.KindUint64:
		return event.Uint64(key, value.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, value.Float64())
	case slog.KindBool:
		return event.Bool(key, value.Bool())
	case slog.KindDuration:
		return event.Dur(key, value.Duration())
	case slog.KindTime:
		return event.Time(key, value.Time())
	case slog.KindGroup:
		// An empty group key means the members inline at this level.
		childPrefix := prefix
		if attr.Key != "" {
			childPrefix = key + "."
		}
		for _, nested := range value.Group() {
			event = bridgeAttr(event, childPrefix, nested)
		}
		return event
	default:
		return event.Interface(key, value.Any())
	}
}

// bridgeLevel maps slog levels onto zerolog's. Levels below debug collapse
// to debug; zerolog's trace has no slog counterpart worth preserving here.
func bridgeLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
