package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-go/trackstore/internal/config"
	"github.com/vango-go/trackstore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "trackstore",
		Short: "Explore fine-grained reactive state from the terminal",
		Long: `trackstore is a state container that tracks which paths each
subscriber reads and notifies only the subscribers whose paths
changed when an action ends.

The CLI hosts one store and lets you read, change and watch it:

  • get, set, del, push, inc and dec paths of the state tree
  • watch a path and see every notification it receives
  • serve the state over HTTP and WebSocket with --inspect`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: trackstore.{json,yaml,yml,toml} in the nearest parent)")

	rootCmd.AddCommand(
		replCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the config at path, or the nearest one to the working
// directory. Without any config file the defaults are used.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		if errors.Code(err) == "T101" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.SetDefault(cfg.Logger(os.Stderr))
	return cfg, nil
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
