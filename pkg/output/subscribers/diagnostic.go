// Copyright 2026 Docugen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package subscribers

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docugen/docugen/pkg/output"
)

// DiagnosticSubscriber renders diagnostic events (verbose/debug/trace)
// to a writer, honoring a minimum verbosity level. Events above the
// configured level are dropped.
type DiagnosticSubscriber struct {
	minLevel output.OutputLevel
	writer   io.Writer
}

// NewDiagnosticSubscriber creates a diagnostic subscriber that handles
// EventDiag events at or below minLevel.
func NewDiagnosticSubscriber(minLevel output.OutputLevel, writer io.Writer) *DiagnosticSubscriber {
	return &DiagnosticSubscriber{
		minLevel: minLevel,
		writer:   writer,
	}
}

// Name returns the subscriber identifier.
func (s *DiagnosticSubscriber) Name() string {
	return "diagnostic-subscriber"
}

// ShouldHandle accepts only diagnostic events within the configured level.
func (s *DiagnosticSubscriber) ShouldHandle(event output.OutputEvent) bool {
	return event.Type == output.EventDiag && event.Level <= s.minLevel
}

// Handle renders the diagnostic line: [LEVEL] HH:MM:SS message key:value ...
func (s *DiagnosticSubscriber) Handle(event output.OutputEvent) {
	var sb strings.Builder

	sb.WriteString("[" + levelLabel(event.Level) + "] ")
	sb.WriteString(event.Timestamp.Format("15:04:05"))
	sb.WriteString(" " + event.Message)

	if len(event.Metadata) > 0 {
		// Sorted for stable output
		keys := make([]string, 0, len(event.Metadata))
		for k := range event.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf(" %s:%v", k, event.Metadata[k]))
		}
	}

	_, _ = fmt.Fprintln(s.writer, sb.String())
}

func levelLabel(level output.OutputLevel) string {
	switch level {
	case output.LevelVerbose:
		return "VERBOSE"
	case output.LevelDebug:
		return "DEBUG"
	case output.LevelTrace:
		return "TRACE"
	default:
		return "INFO"
	}
}
