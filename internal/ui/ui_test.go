package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zprp/ffscan/internal/batch"
	"github.com/zprp/ffscan/internal/extract"
)

func TestProgress_DisabledOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "scanning")
	if p.Enabled() {
		t.Fatal("progress should be disabled for a non-terminal writer")
	}
	p.Update(1, 2)
	p.Finish()
	if buf.Len() != 0 {
		t.Errorf("disabled progress wrote %q", buf.String())
	}
}

func TestProgressModel_View(t *testing.T) {
	m := newProgressModel("scanning libavfilter")
	m.Update(tickMsg{done: 3, total: 4})
	view := m.View()
	if !strings.Contains(view, "3/4 files") {
		t.Errorf("view missing counts: %q", view)
	}
	m.Update(finishMsg{})
	if !strings.Contains(m.View(), "done: scanning libavfilter") {
		t.Errorf("final view = %q", m.View())
	}
}

func TestProgressModel_OutOfOrderTicks(t *testing.T) {
	m := newProgressModel("scanning")
	m.Update(tickMsg{done: 3, total: 4})
	m.Update(tickMsg{done: 2, total: 4})
	if view := m.View(); !strings.Contains(view, "3/4 files") {
		t.Errorf("late tick moved the bar backwards: %q", view)
	}
	m.Update(tickMsg{done: 4, total: 4})
	if view := m.View(); !strings.Contains(view, "4/4 files") {
		t.Errorf("view = %q", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"libavfilter/vf_scale.c", 0, "libavfilter/vf_scale.c"},
		{"short", 10, "short"},
		{"libavfilter/vf_scale.c", 10, "libavfi..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestSummary_Write(t *testing.T) {
	res := &batch.Result{
		Filters: []extract.Filter{
			{Name: "hflip", Options: []extract.FilterOption{}},
			{Name: "flip", Options: []extract.FilterOption{{Name: "mode"}, {Name: "fast"}}},
		},
		Failures: []extract.ParseFailure{
			{File: "libavfilter/vf_broken.c", Kind: extract.FailureToolchain, Message: "cpp failed\nmore detail"},
		},
		Warnings: []extract.Warning{{File: "libavfilter/vf_x.c", Reason: "empty filter file"}},
		Files:    5,
		Skipped:  1,
		Coverage: batch.Coverage{Registered: 4, Extracted: 2, Missing: []string{"ff_vf_scale", "ff_af_volume"}},
	}

	var buf bytes.Buffer
	NewSummary(&buf, false).Write(res, 1500*time.Millisecond)
	out := buf.String()

	for _, want := range []string{
		"scan summary (1.5s)",
		"filters:   2",
		"options:   2",
		"files:     5 (1 skipped)",
		"warnings:  1",
		"failures:  1",
		"libavfilter/vf_broken.c [toolchain] cpp failed",
		"coverage:  2/4 registered (50.0%)",
		"missing: ff_vf_scale, ff_af_volume",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "more detail") {
		t.Error("failure message should be cut to the first line")
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("uncolored summary contains escape codes")
	}
}
