package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-lighting/engine/effect"
)

func newCompileLogCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile-log [path]",
		Short: "List the effect permutations recorded by a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Effects.RecordPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no compile log: pass a path or set effects.record_path")
			}
			rec, err := effect.OpenSQLiteCompileRecorder(path)
			if err != nil {
				return err
			}
			defer rec.Close()

			reqs, err := rec.Requests(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EFFECT\tHASH\tRECORDED\tPARAMETERS")
			for _, r := range reqs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.EffectName, r.ParametersHash, r.RecordedAt.Format("2006-01-02 15:04:05"), r.Parameters)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			a.logger.Debug().Int("requests", len(reqs)).Str("path", path).Msg("compile log listed")
			return nil
		},
	}
}
