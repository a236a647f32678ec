// Person commands: list, add, edit, delete. Each runs one short session
// against the proxy.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/internal/app"
	"github.com/mesh-intelligence/roster/internal/cache"
	"github.com/mesh-intelligence/roster/internal/client"
	"github.com/mesh-intelligence/roster/pkg/types"
)

var errDeclined = errors.New("delete cancelled")

// newSession wires a session to the configured proxy, with p as notifier.
func newSession(p *printer, live bool, out io.Writer) *app.Session {
	return app.New(app.Options{
		API:      client.New(cfg.ProxyURL, client.WithTimeout(cfg.Timeout)),
		Notifier: p,
		Theme:    cfg.Theme,
		NoColor:  p.noColor,
		Live:     live,
		Out:      out,
	})
}

// loadList starts s and waits for the first fetch. A failed fetch is
// reported through p.
func loadList(ctx context.Context, s *app.Session, p *printer) (cache.Snapshot, error) {
	s.Start()
	snap, err := s.Cache.Await(ctx)
	if err != nil {
		return snap, sysError(err)
	}
	if snap.State == cache.StateError {
		return snap, reported(p.Error(types.MsgFetchFailed, snap.Err.Error(), []string{
			"Check that the proxy is running: roster serve",
			fmt.Sprintf("Check proxy_url in config.yaml (currently %s)", cfg.ProxyURL),
		}))
	}
	return snap, nil
}

func findPerson(s *app.Session, p *printer, id string) (types.Person, error) {
	person, ok := s.Find(types.PersonID(id))
	if !ok {
		p.Error(
			fmt.Sprintf("Person %s not found", id),
			"No person with that ID is in the list.",
			[]string{"Run roster list to see current IDs"},
		)
		return types.Person{}, reported(fmt.Errorf("person %s: %w", id, types.ErrNotFound))
	}
	return person, nil
}

func newListCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persons, optionally filtered by a search query",
		Long: `List fetches every person through the proxy and shows those whose name or
email contains the search query, ignoring case.

Example:
  roster list
  roster list --search ada
  roster list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.noColor)
			s := newSession(p, false, nil)
			defer s.Stop()
			s.SetQuery(query)

			if _, err := loadList(cmd.Context(), s, p); err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), s.Visible())
			}
			return s.Render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "filter by name or email")
	return cmd
}

func newAddCmd() *cobra.Command {
	var name, email, age string
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a person",
		Example: `  roster add --name "Ada Lovelace" --email ada@example.com --age 36`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.noColor)
			s := newSession(p, false, nil)
			defer s.Stop()

			s.Form.Open(nil)
			s.Form.SetName(name)
			s.Form.SetEmail(email)
			s.Form.SetAge(age)
			if err := s.Form.Submit(cmd.Context()); err != nil {
				return reported(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name (required)")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&age, "age", "", "age in years")
	return cmd
}

func newEditCmd() *cobra.Command {
	var name, email, age string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a person",
		Long: `Edit opens the person with the given ID, applies the flags that were set,
and submits the result. Unset flags keep their current values.`,
		Example: `  roster edit 7 --email ada@analytical.org`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.noColor)
			s := newSession(p, false, nil)
			defer s.Stop()

			if _, err := loadList(cmd.Context(), s, p); err != nil {
				return err
			}
			person, err := findPerson(s, p, args[0])
			if err != nil {
				return err
			}

			s.Form.Open(&person)
			if cmd.Flags().Changed("name") {
				s.Form.SetName(name)
			}
			if cmd.Flags().Changed("email") {
				s.Form.SetEmail(email)
			}
			if cmd.Flags().Changed("age") {
				s.Form.SetAge(age)
			}
			if err := s.Form.Submit(cmd.Context()); err != nil {
				return reported(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new full name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&age, "age", "", "new age; empty clears it")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a person after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.noColor)
			s := newSession(p, false, nil)
			defer s.Stop()

			if _, err := loadList(cmd.Context(), s, p); err != nil {
				return err
			}
			person, err := findPerson(s, p, args[0])
			if err != nil {
				return err
			}

			c := s.Deleter.Request(person)
			if !yes && !confirm(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), c.Title, c.Message) {
				s.Deleter.Cancel()
				p.Warning("%s", errDeclined)
				return reported(errDeclined)
			}
			if err := s.Deleter.Confirm(cmd.Context()); err != nil {
				return reported(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm shows the prompt and reads a y/N answer. Anything but y or yes
// declines, including end of input.
func confirm(in *bufio.Reader, out io.Writer, title, message string) bool {
	fmt.Fprintf(out, "%s\n%s [y/N] ", title, message)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	return isYes(line)
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal output: %w", err))
	}
	fmt.Fprintln(w, string(output))
	return nil
}
