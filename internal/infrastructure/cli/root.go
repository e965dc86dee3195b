package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "routekit",
	Version: Version,
	Short:   "A governed client for task routes and step graphs",
	Long: `Routekit decomposes tasks into executable dependency graphs of steps
("routes"), derives what is happening now, and mutates the underlying
record store only through a governed propose/dry-run/commit protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps errors to exit codes.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		exitCode := 1
		var cliErr *CLIError
		if errors.As(err, &cliErr) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Message)
			if cliErr.Hint != "" {
				fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
			}
			exitCode = cliErr.ExitCode
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the config file (default $HOME/.routekit.yaml)")
}
