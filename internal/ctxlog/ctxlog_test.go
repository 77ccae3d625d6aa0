package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without one attached")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Error("expected attached logger")
	}
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "file", "vf_flip.c")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out, `"file":"vf_flip.c"`) {
		t.Errorf("expected json attribute, got %q", out)
	}

	buf.Reset()
	logger, _ = New(&buf, "text", true)
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("verbose logger dropped a debug record")
	}

	if _, err := New(&buf, "xml", false); err == nil {
		t.Error("expected error for unknown format")
	}
}
