package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tsinling0525/journeyflow/infra/archive"
	"github.com/Tsinling0525/journeyflow/model"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Browse archived runs",
		Long: `Without arguments, history lists archived runs newest first. With a run id
it prints the node stats of the last archived tick, or with --node the
per-tick series of one node.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.ArchivePath()
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("no archive at %s (enable archive.enabled to record runs)", path)
			}
			a, err := archive.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				limit, _ := cmd.Flags().GetInt("limit")
				runs, err := a.Runs(ctx, limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, runs)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tINSTANCE\tJOURNEY\tTICKS\tSTARTED\tENDED")
				for _, r := range runs {
					ended := "running"
					if !r.EndedAt.IsZero() {
						ended = r.EndedAt.Local().Format(time.DateTime)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
						r.ID, r.InstanceID, r.JourneyID, r.Ticks, r.StartedAt.Local().Format(time.DateTime), ended)
				}
				return tw.Flush()
			}

			var samples []archive.NodeSample
			if node, _ := cmd.Flags().GetString("node"); node != "" {
				samples, err = a.NodeHistory(ctx, args[0], model.ID(node))
			} else {
				samples, err = a.FinalNodes(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, samples)
			}
			if len(samples) == 0 {
				return fmt.Errorf("no archived ticks for run %s", args[0])
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TICK\tTIME\tNODE\tKIND\tPROCESSED\tDROPPED\tWAITING\tCOMPLETION")
			for _, s := range samples {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d%%\n",
					s.Tick, s.Time.Format("Jan 2 15:04"), s.NodeID, s.Kind, s.Processed, s.Dropped, s.Waiting, s.CompletionRate)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().String("node", "", "Print the per-tick series of this node")
	return cmd
}
