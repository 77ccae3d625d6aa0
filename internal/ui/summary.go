package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/zprp/ffscan/internal/batch"
)

// maxListed bounds how many failures and missing filters are listed.
const maxListed = 10

// Summary writes a human-readable digest of a scan to w.
type Summary struct {
	w     io.Writer
	color bool

	ok    *color.Color
	warn  *color.Color
	fail  *color.Color
	title lipgloss.Style
}

// NewSummary creates a summary writer. Color is used only when colorize is
// set.
func NewSummary(w io.Writer, colorize bool) *Summary {
	s := &Summary{
		w:     w,
		color: colorize,
		ok:    color.New(color.FgGreen, color.Bold),
		warn:  color.New(color.FgYellow),
		fail:  color.New(color.FgRed, color.Bold),
		title: lipgloss.NewStyle().Bold(true),
	}
	for _, c := range []*color.Color{s.ok, s.warn, s.fail} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	if !colorize {
		s.title = lipgloss.NewStyle()
	}
	return s
}

// Write prints res. elapsed is omitted when zero.
func (s *Summary) Write(res *batch.Result, elapsed time.Duration) {
	header := "scan summary"
	if elapsed > 0 {
		header = fmt.Sprintf("scan summary (%s)", elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(s.w, s.title.Render(header))

	fmt.Fprintf(s.w, "  filters:   %s\n", s.ok.Sprint(len(res.Filters)))
	fmt.Fprintf(s.w, "  options:   %d\n", res.OptionCount())
	fmt.Fprintf(s.w, "  files:     %d (%d skipped)\n", res.Files, res.Skipped)

	warnings := fmt.Sprint(len(res.Warnings))
	if len(res.Warnings) > 0 {
		warnings = s.warn.Sprint(warnings)
	}
	fmt.Fprintf(s.w, "  warnings:  %s\n", warnings)

	failures := fmt.Sprint(len(res.Failures))
	if len(res.Failures) > 0 {
		failures = s.fail.Sprint(failures)
	}
	fmt.Fprintf(s.w, "  failures:  %s\n", failures)
	for i, f := range res.Failures {
		if i == maxListed {
			fmt.Fprintf(s.w, "    ... %d more\n", len(res.Failures)-maxListed)
			break
		}
		fmt.Fprintf(s.w, "    %s [%s] %s\n", f.File, f.Kind, firstLine(f.Message))
	}

	cov := res.Coverage
	if cov.Registered > 0 {
		fmt.Fprintf(s.w, "  coverage:  %d/%d registered (%.1f%%)\n", cov.Extracted, cov.Registered, cov.Ratio()*100)
		if len(cov.Missing) > 0 {
			listed := cov.Missing
			if len(listed) > maxListed {
				listed = listed[:maxListed]
			}
			line := strings.Join(listed, ", ")
			if len(cov.Missing) > maxListed {
				line += fmt.Sprintf(", ... %d more", len(cov.Missing)-maxListed)
			}
			fmt.Fprintf(s.w, "    missing: %s\n", s.warn.Sprint(line))
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
