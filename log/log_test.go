// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTerminalHandlerFormatsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(&logger{inner: slog.New(NewTerminalHandler(&buf, false))})

	New().Info("hello world", "key", "value", "n", 42)

	out := buf.String()
	for _, want := range []string{"hello world", "key=value", "n=42", "INFO"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestWithAttachesContext(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(&logger{inner: slog.New(NewTerminalHandler(&buf, false))})

	New().With("component", "core").Warn("reorg detected")

	out := buf.String()
	if !strings.Contains(out, "component=core") {
		t.Fatalf("missing attached context: %q", out)
	}
	if !strings.Contains(out, "WARN") {
		t.Fatalf("missing level: %q", out)
	}
}

func TestJSONHandlerProducesValidRecord(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(&logger{inner: slog.New(NewJSONHandler(&buf))})

	New().Error("boom", "code", 7)

	if !strings.Contains(buf.String(), `"msg":"boom"`) {
		t.Fatalf("unexpected JSON output: %q", buf.String())
	}
}
