// Command lightbench lights a synthetic scene with the forward lighting feature and reports
// frame statistics.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-lighting/config"
)

// app holds what the persistent pre-run loaded for the subcommands.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lightbench",
		Short:         "Forward lighting benchmark",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.Log.Level = level
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			a.cfg = cfg
			a.logger = cfg.Logger()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ./config.yaml or ~/.config/oxy-lighting/config.yaml)")
	root.PersistentFlags().String("log-level", "", "override the configured log level")

	root.AddCommand(newRunCommand(a), newConfigCommand(a), newCompileLogCommand(a))
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lightbench:", err)
		os.Exit(1)
	}
}
