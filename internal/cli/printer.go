package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// printer writes user-facing messages. It doubles as the form's notifier.
type printer struct {
	out     io.Writer
	err     io.Writer
	noColor bool

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	cyan   *color.Color
}

var _ types.Notifier = (*printer)(nil)

func newPrinter(out, errOut io.Writer, noColor bool) *printer {
	p := &printer{
		out:     out,
		err:     errOut,
		noColor: noColor || os.Getenv("NO_COLOR") != "",
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		red:     color.New(color.FgRed, color.Bold),
		cyan:    color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.green, p.yellow, p.red, p.cyan} {
		if p.noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

// Success prints a green check line. The title is implied by the mark.
func (p *printer) Success(_, message string) {
	p.green.Fprintf(p.out, "✓ %s\n", message)
}

// Failure prints err as a red line on stderr.
func (p *printer) Failure(err error) {
	p.red.Fprintf(p.err, "Error: ")
	fmt.Fprintln(p.err, err)
}

// Warning prints a yellow line.
func (p *printer) Warning(format string, a ...any) {
	p.yellow.Fprintf(p.out, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Step prints a cyan progress line.
func (p *printer) Step(format string, a ...any) {
	p.cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints a titled error with an explanation and suggestions to stderr
// and returns an error carrying the title.
func (p *printer) Error(title, explanation string, suggestions []string) error {
	p.red.Fprintf(p.err, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(p.err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", strings.TrimSpace(title))
}
