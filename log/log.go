// Package log wraps zerolog with helpers for logging the engine's
// registered component and system inventory. It is the diagnostic channel
// for caller-misuse and codec-configuration reports.
package log

import (
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rhughes91/Arrow/registry"
)

type Logger struct {
	*zerolog.Logger
}

// New returns a Logger writing to w at the given level.
func New(w io.Writer, level zerolog.Level) Logger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return Logger{&zl}
}

// Wrap adopts an existing zerolog logger.
func Wrap(zl *zerolog.Logger) Logger {
	return Logger{zl}
}

func (_ Logger) loadComponentIntoArrayLogger(info registry.ComponentInfo, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict().
		Int("component_id", int(info.ID)).
		Str("component_name", info.Name).
		Bool("trivial", info.Trivial)
	return arrayLogger.Dict(dictLogger)
}

func (l Logger) loadComponentsToEvent(event *zerolog.Event, reg *registry.Registry) *zerolog.Event {
	components := reg.Components()
	event.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, info := range components {
		arrayLogger = l.loadComponentIntoArrayLogger(info, arrayLogger)
	}
	return event.Array("components", arrayLogger)
}

func (l Logger) loadSystemsToEvent(event *zerolog.Event, reg *registry.Registry) *zerolog.Event {
	names := reg.SystemNames()
	event.Int("total_systems", len(names))
	arrayLogger := zerolog.Arr()
	for _, name := range names {
		arrayLogger = arrayLogger.Str(name)
	}
	return event.Array("systems", arrayLogger)
}

// LogComponents logs the registered component inventory.
func (l Logger) LogComponents(reg *registry.Registry, level zerolog.Level) {
	event := l.WithLevel(level)
	event = l.loadComponentsToEvent(event, reg)
	event.Send()
}

// LogSystems logs the referenced system inventory.
func (l Logger) LogSystems(reg *registry.Registry, level zerolog.Level) {
	event := l.WithLevel(level)
	event = l.loadSystemsToEvent(event, reg)
	event.Send()
}

// LogRegistry logs everything registered so far (components and systems)
// under one generated correlation id.
func (l Logger) LogRegistry(reg *registry.Registry, level zerolog.Level) {
	event := l.WithLevel(level).Str("log_id", uuid.New().String())
	event = l.loadComponentsToEvent(event, reg)
	event = l.loadSystemsToEvent(event, reg)
	event.Send()
}

// SystemLogger creates a sub logger with the entry {"system": name}.
func (l Logger) SystemLogger(name string) Logger {
	zl := l.Logger.With().Str("system", name).Logger()
	return Logger{&zl}
}

// TraceLogger creates a sub logger carrying a trace id, useful for
// following one data path through several systems.
func (l Logger) TraceLogger(traceID string) zerolog.Logger {
	return l.Logger.With().Str("trace_id", traceID).Logger()
}
