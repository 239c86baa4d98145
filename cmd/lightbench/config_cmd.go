package main

import (
	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if save != "" {
				if err := a.cfg.Save(save); err != nil {
					return err
				}
				a.logger.Info().Str("path", save).Msg("config saved")
				return nil
			}
			out, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the configuration to this file instead of printing it")
	return cmd
}
