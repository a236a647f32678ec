// Interactive shell over one long-lived session. The list re-renders on
// every cache state change.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/internal/app"
	"github.com/mesh-intelligence/roster/internal/form"
	"github.com/mesh-intelligence/roster/pkg/types"
)

const shellHelp = `Commands:
  list             show the list (filtered by the current search)
  search <query>   filter by name or email
  clear            clear the search
  add              add a person
  edit <id>        edit a person
  delete <id>      delete a person
  refresh          refetch the list
  help             show this help
  quit             leave the shell

Inside a form, cancel at any prompt drops the draft.`

// cancelWord abandons a form at any prompt.
const cancelWord = "cancel"

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive roster session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &lockedWriter{w: cmd.OutOrStdout()}
			p := newPrinter(out, cmd.ErrOrStderr(), flags.noColor)
			s := newSession(p, true, out)
			defer s.Stop()

			sh := &shell{
				session: s,
				printer: p,
				in:      bufio.NewScanner(cmd.InOrStdin()),
				out:     out,
			}
			return sh.run(cmd.Context())
		},
	}
}

// lockedWriter serializes writes from the prompt loop and the live view.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

type shell struct {
	session *app.Session
	printer *printer
	in      *bufio.Scanner
	out     io.Writer
}

func (sh *shell) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sh.session.Start()
	sh.settle(ctx)

	for {
		line, ok := sh.prompt("roster> ")
		if !ok {
			fmt.Fprintln(sh.out)
			return nil
		}
		name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		switch name {
		case "":
		case "list", "ls":
			sh.render()
		case "search":
			sh.session.SetQuery(arg)
			sh.render()
		case "clear":
			sh.session.SetQuery("")
			sh.render()
		case "add":
			sh.edit(ctx, nil)
		case "edit":
			if p, ok := sh.find(arg); ok {
				sh.edit(ctx, &p)
			}
		case "delete", "rm":
			if p, ok := sh.find(arg); ok {
				sh.delete(ctx, p)
			}
		case "refresh":
			sh.session.Refresh()
			sh.settle(ctx)
		case "help", "?":
			fmt.Fprintln(sh.out, shellHelp)
		case "quit", "exit", "q":
			return nil
		default:
			sh.printer.Warning("unknown command %q (try help)", name)
		}
	}
}

// settle waits for the refetch to finish so its render lands before the
// next prompt.
func (sh *shell) settle(ctx context.Context) {
	if _, err := sh.session.Cache.Await(ctx); err != nil {
		sh.printer.Failure(err)
	}
}

func (sh *shell) render() {
	if err := sh.session.Render(sh.out); err != nil {
		sh.printer.Failure(err)
	}
}

func (sh *shell) prompt(label string) (string, bool) {
	fmt.Fprint(sh.out, label)
	if !sh.in.Scan() {
		return "", false
	}
	return sh.in.Text(), true
}

func (sh *shell) find(id string) (types.Person, bool) {
	if id == "" {
		sh.printer.Warning("an id is required")
		return types.Person{}, false
	}
	p, ok := sh.session.Find(types.PersonID(id))
	if !ok {
		sh.printer.Warning("person %s not found", id)
	}
	return p, ok
}

// edit walks the form fields and submits. A failed submit leaves the form
// open with its draft, so the fields are asked again with the draft as the
// default until the submit succeeds or the user types cancel.
func (sh *shell) edit(ctx context.Context, target *types.Person) {
	f := sh.session.Form
	f.Open(target)
	fmt.Fprintln(sh.out, f.Mode().Title())

	prefilled := target != nil
	for {
		if !sh.fill(f, prefilled) {
			f.Cancel()
			fmt.Fprintln(sh.out, "Cancelled")
			return
		}
		if err := f.Submit(ctx); err == nil {
			break
		}
		fmt.Fprintf(sh.out, "%s (type %s to give up)\n", f.Mode().Title(), cancelWord)
		prefilled = true
	}
	sh.settle(ctx)

	if target != nil {
		if p, ok := sh.session.Find(target.ID); ok {
			fmt.Fprintln(sh.out, sh.session.View.Row(p))
		}
	}
}

// fill prompts for each field. With prefilled set an empty answer keeps the
// current value and "-" clears it. It returns false on cancel or end of
// input.
func (sh *shell) fill(f *form.Form, prefilled bool) bool {
	d := f.Draft()
	fields := []struct {
		label string
		value string
		set   func(string)
	}{
		{"Name", d.Name, f.SetName},
		{"Email", d.Email, f.SetEmail},
		{"Age", d.Age, f.SetAge},
	}
	for _, fld := range fields {
		label := fld.label + ": "
		if prefilled {
			label = fmt.Sprintf("%s [%s]: ", fld.label, fld.value)
		}
		answer, ok := sh.prompt(label)
		if !ok {
			return false
		}
		answer = strings.TrimSpace(answer)
		switch {
		case answer == cancelWord:
			return false
		case answer == "" && prefilled:
			continue
		case answer == "-":
			answer = ""
		}
		fld.set(answer)
	}
	return true
}

func (sh *shell) delete(ctx context.Context, p types.Person) {
	c := sh.session.Deleter.Request(p)
	fmt.Fprintf(sh.out, "%s\n%s [y/N] ", c.Title, c.Message)
	answer, ok := sh.prompt("")
	if !ok || !isYes(answer) {
		sh.session.Deleter.Cancel()
		sh.printer.Warning("%s", errDeclined)
		return
	}
	if err := sh.session.Deleter.Confirm(ctx); err != nil {
		return
	}
	sh.settle(ctx)
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
