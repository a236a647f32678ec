package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/roster/internal/paths"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize roster configuration and storage",
		Long: "Create the configuration directory with a default config.yaml, then\n" +
			"initialize the reference upstream's storage backend.",
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	p := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags.noColor)

	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	configPath := paths.ConfigFile(configDir)
	created, err := writeConfigIfMissing(configPath, flags.dataDir)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	if created {
		p.Step("wrote %s", configPath)
	}

	// Initialize the data directory via Attach then Detach.
	store, err := openStore(cfg)
	if err != nil {
		return sysError(fmt.Errorf("initialize storage: %w", err))
	}
	if err := store.Detach(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	p.Success("", "Roster initialized successfully")
	return nil
}
