// Package output renders human-readable status lines for the CLI.
// Styled output is reserved for terminals; piped output stays plain.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Renderer writes status output for a command.
type Renderer struct {
	out    io.Writer
	styled bool
}

// NewRenderer builds a renderer for out. Styling turns on only when out
// is a terminal.
func NewRenderer(out io.Writer) *Renderer {
	styled := false
	if f, ok := out.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Renderer{out: out, styled: styled}
}

// Println writes a plain line.
func (r *Renderer) Println(msg string) {
	fmt.Fprintln(r.out, msg)
}

// Printf writes a formatted line.
func (r *Renderer) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Header writes a section header.
func (r *Renderer) Header(msg string) {
	r.styledLine(headerStyle, msg)
}

// Success writes a completed-step line.
func (r *Renderer) Success(msg string) {
	if r.styled {
		fmt.Fprintln(r.out, successStyle.Render("✓")+" "+msg)
		return
	}
	fmt.Fprintln(r.out, "OK "+msg)
}

// Error writes a failure line.
func (r *Renderer) Error(msg string) {
	if r.styled {
		fmt.Fprintln(r.out, errorStyle.Render("✗")+" "+msg)
		return
	}
	fmt.Fprintln(r.out, "ERROR "+msg)
}

// Muted writes a low-emphasis line.
func (r *Renderer) Muted(msg string) {
	r.styledLine(mutedStyle, msg)
}

// Writer exposes the underlying writer for table rendering.
func (r *Renderer) Writer() io.Writer {
	return r.out
}

func (r *Renderer) styledLine(style lipgloss.Style, msg string) {
	if r.styled {
		fmt.Fprintln(r.out, style.Render(msg))
		return
	}
	fmt.Fprintln(r.out, msg)
}
