// Package ui renders scan progress and the end-of-run summary.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Progress reports file progress of a scan. On a terminal it runs a Bubble
// Tea program on stderr; elsewhere every method is a no-op, so the result
// document on stdout stays clean.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewProgress starts a progress display titled title on w. It returns a
// disabled Progress when w is not a terminal.
func NewProgress(w io.Writer, title string) *Progress {
	p := &Progress{}
	if !IsTerminal(w) {
		return p
	}
	p.program = tea.NewProgram(newProgressModel(title), tea.WithOutput(w), tea.WithInput(nil))
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
	return p
}

// Enabled reports whether anything is drawn.
func (p *Progress) Enabled() bool {
	return p.program != nil
}

// Update records that done of total files are finished. Safe for
// concurrent use.
func (p *Progress) Update(done, total int) {
	if p.program == nil {
		return
	}
	p.program.Send(tickMsg{done: done, total: total})
}

// Finish stops the display and waits for the last frame.
func (p *Progress) Finish() {
	if p.program == nil {
		return
	}
	p.once.Do(func() {
		p.program.Send(finishMsg{})
		<-p.done
	})
}

type tickMsg struct{ done, total int }
type finishMsg struct{}

type progressModel struct {
	title   string
	spinner spinner.Model
	prog    progress.Model
	done    int
	total   int
	width   int
	final   bool
}

func newProgressModel(title string) *progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 40

	return &progressModel{title: title, spinner: sp, prog: prog, width: 80}
}

func (m *progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// workers send concurrently, so ticks may arrive out of order
		m.done, m.total = max(m.done, msg.done), max(m.total, msg.total)
		return m, nil
	case finishMsg:
		m.final = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.final {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = min(40, max(10, msg.Width/3))
		}
		return m, nil
	}
	return m, nil
}

func (m *progressModel) View() string {
	header := m.spinner.View() + " " + m.title
	if m.final {
		header = "done: " + m.title
	}
	counts := fmt.Sprintf("%d/%d files", m.done, m.total)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(truncate(header, m.width-m.prog.Width-len(counts)-4)))
	b.WriteString(" ")
	b.WriteString(m.prog.ViewAs(ratio(m.done, m.total)))
	b.WriteString(" ")
	b.WriteString(counts)
	b.WriteString("\n")
	return b.String()
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
