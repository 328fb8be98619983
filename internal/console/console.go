// Package console prints a session as it runs.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/loopwork-ai/docagent/agent"
)

var (
	clrBrand  = lipgloss.Color("214")
	clrCyan   = lipgloss.Color("81")
	clrGreen  = lipgloss.Color("114")
	clrRed    = lipgloss.Color("203")
	clrDim    = lipgloss.Color("245")
	clrYellow = lipgloss.Color("220")
)

type styles struct {
	Stage  lipgloss.Style
	Tool   lipgloss.Style
	Output lipgloss.Style
	Answer lipgloss.Style
	Error  lipgloss.Style
	Dim    lipgloss.Style
}

// newStyles enables colors only when w is a terminal.
func newStyles(w io.Writer) styles {
	if f, ok := w.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		noop := lipgloss.NewStyle()
		return styles{Stage: noop, Tool: noop, Output: noop, Answer: noop, Error: noop, Dim: noop}
	}
	return styles{
		Stage:  lipgloss.NewStyle().Foreground(clrBrand).Bold(true),
		Tool:   lipgloss.NewStyle().Foreground(clrCyan),
		Output: lipgloss.NewStyle().Foreground(clrDim),
		Answer: lipgloss.NewStyle().Foreground(clrGreen).Bold(true),
		Error:  lipgloss.NewStyle().Foreground(clrRed).Bold(true),
		Dim:    lipgloss.NewStyle().Foreground(clrYellow),
	}
}

// Reporter writes session events to an output stream.
type Reporter struct {
	w io.Writer
	s styles
}

var _ agent.Reporter = (*Reporter)(nil)

func New(w io.Writer) *Reporter {
	return &Reporter{w: w, s: newStyles(w)}
}

func (r *Reporter) println(line string) {
	fmt.Fprintln(r.w, line)
}

func (r *Reporter) Stage(title string) {
	r.println(r.s.Stage.Render("--- " + title + " ---"))
}

func (r *Reporter) Note(text string) {
	r.println(r.s.Dim.Render(text))
}

func (r *Reporter) ToolCall(call agent.ToolCall) {
	r.println(r.s.Tool.Render(fmt.Sprintf("Calling tool: %s with %s", call.Name, call.Arguments)))
}

func (r *Reporter) ToolOutput(_ agent.ToolCall, output string) {
	r.println("Tool Output:")
	for _, line := range strings.Split(output, "\n") {
		r.println(r.s.Output.Render("  " + line))
	}
}

func (r *Reporter) Answer(text string) {
	r.println("")
	r.println(r.s.Answer.Render("--- Answer ---"))
	r.println(text)
}

func (r *Reporter) Failure(err error) {
	r.println(r.s.Error.Render("Error: ") + err.Error())
}
