// Package console renders the operator-facing narration of a recording
// run: which tool is being called, what was downloaded, how long the run
// is waiting. Styling is disabled when stdout is not a terminal.
package console

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type Console struct {
	out    io.Writer
	styled bool
	tool   lipgloss.Style
	saved  lipgloss.Style
	dim    lipgloss.Style
	banner lipgloss.Style
}

// New creates a console writing to out. Styles apply only when styled is
// true; pass the result of StdoutIsTerminal for the usual behavior.
func New(out io.Writer, styled bool) *Console {
	return &Console{
		out:    out,
		styled: styled,
		tool:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		saved:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		dim:    lipgloss.NewStyle().Faint(true),
		banner: lipgloss.NewStyle().Bold(true),
	}
}

func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func (c *Console) render(style lipgloss.Style, text string) string {
	if !c.styled {
		return text
	}
	return style.Render(text)
}

// Call logs a tool invocation. The session identifier argument is omitted
// from the printed form: it is an implementation identifier, and keeping
// it out of the narration keeps it out of pasted logs too. The argument
// is still transmitted on the wire by the invoker.
func (c *Console) Call(tool string, args map[string]any) {
	keys := make([]string, 0, len(args))
	for k := range args {
		if k == "session_id" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%#v", k, args[k]))
	}
	fmt.Fprintf(c.out, "  %s(%s)\n", c.render(c.tool, tool), strings.Join(parts, ", "))
}

// Saved logs a downloaded artifact path.
func (c *Console) Saved(path string) {
	fmt.Fprintf(c.out, "  %s %s\n", c.render(c.saved, "saved:"), path)
}

// Wait logs an upcoming settle delay.
func (c *Console) Wait(seconds float64) {
	fmt.Fprintf(c.out, "  %s\n", c.render(c.dim, fmt.Sprintf("waiting %gs...", seconds)))
}

// Info logs a key/value line in the run preamble.
func (c *Console) Info(key, value string) {
	fmt.Fprintf(c.out, "%s %s\n", c.render(c.dim, key+":"), value)
}

// Success logs a green status line.
func (c *Console) Success(msg string) {
	fmt.Fprintf(c.out, "%s\n", c.render(c.saved, msg))
}

// Banner frames a scenario section.
func (c *Console) Banner(title string) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(c.out, "\n%s\n%s\n%s\n\n", rule, c.render(c.banner, title), rule)
}
