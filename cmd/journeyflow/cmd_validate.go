package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/format/journey"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <journey.json>",
		Short: "Check a journey document for structural errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journey.ReadFile(args[0])
			if err != nil {
				return err
			}
			res := engine.Validate(j)
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else if res.IsValid {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d nodes, %d edges)\n", args[0], len(j.Nodes), len(j.Edges))
			} else {
				for _, e := range res.Errors {
					fmt.Fprintln(cmd.OutOrStdout(), "  -", e)
				}
			}
			if !res.IsValid {
				return fmt.Errorf("%s: %d validation errors", args[0], len(res.Errors))
			}
			return nil
		},
	}
}
