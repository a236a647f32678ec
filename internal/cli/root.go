// Package cli implements the roster command-line interface.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/internal/paths"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	noColor   bool
	theme     string
}

var flags rootFlags

// cfg is loaded once per invocation by the root PersistentPreRunE.
var cfg types.Config

// NewRootCmd creates the top-level "roster" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}
	root := &cobra.Command{
		Use:   "roster",
		Short: "Manage a list of persons through a proxied REST service",
		Long: "Roster lists, adds, edits, and deletes person records through a transport\n" +
			"proxy that forwards to an upstream person REST service.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return sysError(fmt.Errorf("resolve config dir: %w", err))
			}
			loaded, err := loadConfig(configDir, flags.dataDir)
			if err != nil {
				return userError(err)
			}
			if flags.theme != "" {
				loaded.Theme = flags.theme
				if err := loaded.Validate(); err != nil {
					return userError(err)
				}
			}
			cfg = loaded
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/roster)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory for the reference upstream (default: $(CWD)/.roster-db)")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVar(&flags.noColor, "no-color", false, "disable coloured output")
	pf.StringVar(&flags.theme, "theme", "", "colour theme: light, dark, or system")
	// glog levels (-v, -logtostderr, ...) for the servers.
	pf.AddGoFlagSet(flag.CommandLine)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newUpstreamCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newShellCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	_ = flag.Set("logtostderr", "true")
	defer glog.Flush()

	root := NewRootCmd()
	err := root.Execute()
	code := exitCode(err)
	if err != nil && !isReported(err) {
		reportError(root.ErrOrStderr(), err)
	}
	glog.Flush()
	os.Exit(code)
}

// cliError carries an exit code. reported means the user already saw it.
type cliError struct {
	code     int
	err      error
	reported bool
}

func (e *cliError) Error() string { return e.err.Error() }

func (e *cliError) Unwrap() error { return e.err }

func userError(err error) error { return &cliError{code: exitUserError, err: err} }

func sysError(err error) error { return &cliError{code: exitSysError, err: err} }

// reported wraps an error the printer or notifier has already shown.
func reported(err error) error {
	code := exitSysError
	if errors.Is(err, types.ErrValidation) || errors.Is(err, types.ErrNotFound) || errors.Is(err, errDeclined) {
		code = exitUserError
	}
	return &cliError{code: code, err: err, reported: true}
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	// Unwrapped errors come from cobra itself: bad flags or arguments.
	return exitUserError
}

func isReported(err error) bool {
	var ce *cliError
	return errors.As(err, &ce) && ce.reported
}

func reportError(w io.Writer, err error) {
	newPrinter(io.Discard, w, flags.noColor).Failure(err)
}
