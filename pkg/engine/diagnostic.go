package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer renders terminal failures for a human reader.
type Printer struct {
	out     io.Writer
	colour  bool
	heading lipgloss.Style
	stage   lipgloss.Style
	hint    lipgloss.Style
}

// NewPrinter creates a printer writing to out. Styling is applied only when
// colour is true and out is a terminal that supports it.
func NewPrinter(out io.Writer, colour bool) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		colour:  colour,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		stage:   r.NewStyle().Foreground(lipgloss.Color("8")),
		hint:    r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Print writes a single formatted diagnostic for err.
func (p *Printer) Print(err error) {
	if err == nil {
		return
	}
	_, _ = io.WriteString(p.out, p.Format(err))
}

// Format renders err as a diagnostic block.
func (p *Printer) Format(err error) string {
	var b strings.Builder

	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(&b, "%s %s\n", p.style(p.heading, "error:"), err.Error())
		return b.String()
	}

	title := e.Message
	if title == "" && e.Err != nil {
		title = e.Err.Error()
	}
	fmt.Fprintf(&b, "%s %s\n", p.style(p.heading, "error:"), title)

	if e.Stage != "" {
		fmt.Fprintf(&b, "%s\n", p.style(p.stage, "  while running the "+e.Stage+" stage"))
	}

	if e.Message != "" && e.Err != nil {
		b.WriteString("\n")
		for _, line := range strings.Split(strings.TrimRight(e.Err.Error(), "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}

	if e.Hint != "" {
		fmt.Fprintf(&b, "\n%s %s\n", p.style(p.hint, "hint:"), e.Hint)
	}

	return b.String()
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.colour {
		return text
	}
	return s.Render(text)
}
