// Package ui renders styled console output, the overwritten progress
// status line and the prompts of the interactive shell.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"igosint/internal/fanout"
)

// Logo is printed when the shell starts
const Logo = `
  ██╗ ██████╗  ██████╗ ███████╗██╗███╗   ██╗████████╗
  ██║██╔════╝ ██╔═══██╗██╔════╝██║████╗  ██║╚══██╔══╝
  ██║██║  ███╗██║   ██║███████╗██║██╔██╗ ██║   ██║
  ██║██║   ██║██║   ██║╚════██║██║██║╚██╗██║   ██║
  ██║╚██████╔╝╚██████╔╝███████║██║██║ ╚████║   ██║
  ╚═╝ ╚═════╝  ╚═════╝ ╚══════╝╚═╝╚═╝  ╚═══╝   ╚═╝
`

// Console writes user-facing output. Styles adapt to the color profile of
// the writer, so redirected output carries no escape codes.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	inStatus bool

	logo    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	warn    lipgloss.Style
	accent  lipgloss.Style
}

// NewConsole creates a console writing to out; nil means stdout
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:     out,
		logo:    r.NewStyle().Foreground(lipgloss.Color("#FF10F0")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("#39FF14")),
		failure: r.NewStyle().Foreground(lipgloss.Color("#FF3131")).Bold(true),
		label:   r.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
		value:   r.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#FF6700")),
		accent:  r.NewStyle().Foreground(lipgloss.Color("#FF00FF")).Bold(true),
	}
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

func (c *Console) line(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inStatus {
		fmt.Fprintln(c.out)
		c.inStatus = false
	}
	fmt.Fprintln(c.out, s)
}

// Logo prints the banner
func (c *Console) Logo() {
	c.line(c.logo.Render(Logo))
}

// Println prints an unstyled line
func (c *Console) Println(s string) {
	c.line(s)
}

// Printf prints an unstyled formatted line
func (c *Console) Printf(format string, args ...interface{}) {
	c.line(fmt.Sprintf(format, args...))
}

// Success prints a success message
func (c *Console) Success(format string, args ...interface{}) {
	c.line(c.success.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func (c *Console) Error(format string, args ...interface{}) {
	c.line(c.failure.Render(fmt.Sprintf(format, args...)))
}

// Warn prints a warning
func (c *Console) Warn(format string, args ...interface{}) {
	c.line(c.warn.Render(fmt.Sprintf(format, args...)))
}

// Accent prints a highlighted message
func (c *Console) Accent(format string, args ...interface{}) {
	c.line(c.accent.Render(fmt.Sprintf(format, args...)))
}

// Info prints a label and value pair
func (c *Console) Info(label, value string) {
	c.line(c.label.Render(label+":") + " " + c.value.Render(value))
}

// Status overwrites the current terminal line
func (c *Console) Status(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, "\r"+s+"\033[K")
	c.inStatus = true
}

// EndStatus terminates an open status line
func (c *Console) EndStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inStatus {
		fmt.Fprintln(c.out)
		c.inStatus = false
	}
}

// ClearStatus erases an open status line so the next line replaces it
func (c *Console) ClearStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inStatus {
		fmt.Fprint(c.out, "\r\033[K")
		c.inStatus = false
	}
}

// Progress returns a fan-out progress handler that renders
// "{what} i of N{unit}. Remaining time: T" on the status line, e.g.
// Progress("Checking post", "") or Progress("Downloaded", " files").
func (c *Console) Progress(what, unit string) func(fanout.Event) {
	return func(ev fanout.Event) {
		c.Status(fmt.Sprintf("%s %d of %d%s. Remaining time: %s",
			what, ev.Completed, ev.Total, unit, ev.Remaining))
		if ev.Completed == ev.Total {
			c.EndStatus()
		}
	}
}

// Rule returns a horizontal separator as wide as s
func Rule(s string) string {
	return strings.Repeat("-", lipgloss.Width(s))
}
