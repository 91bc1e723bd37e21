package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tsinling0525/journeyflow/config"
	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/format/journey"
	"github.com/Tsinling0525/journeyflow/infra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <journey.json>",
		Short: "Simulate a journey offline for a fixed number of ticks",
		Long: `Run steps a journey as fast as possible and prints the resulting node and
edge stats. The span is --ticks, or --hours/--days of virtual time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			ticks, err := runTicks(cmd, cfg.Simulation.TickDuration)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := infra.NewRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			inst, err := rt.Instances.CreateFromPath(args[0])
			if err != nil {
				return err
			}
			if _, err := inst.Scheduler.Step(ctx, ticks); err != nil {
				var verr *engine.ValidationError
				if errors.As(err, &verr) {
					for _, e := range verr.Errors {
						fmt.Fprintln(cmd.ErrOrStderr(), "  -", e)
					}
				}
				return err
			}
			st, err := inst.Scheduler.Status(ctx)
			if err != nil {
				return err
			}

			if out, _ := cmd.Flags().GetString("out"); out != "" {
				if err := journey.WriteFile(out, st.Journey); err != nil {
					return err
				}
				logger.Info("exported journey", "path", out)
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				doc, err := journey.FromJourney(st.Journey)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]any{"status": st, "journey": doc})
			}
			printReport(cmd.OutOrStdout(), st, useColor())
			return inst.Scheduler.Stop(ctx)
		},
	}
	cmd.Flags().Int("ticks", 24, "Number of ticks to run")
	cmd.Flags().Int("hours", 0, "Virtual hours to run (overrides --ticks)")
	cmd.Flags().Int("days", 0, "Virtual days to run (added to --hours)")
	cmd.Flags().String("start", "", "Virtual start time, RFC 3339 (default now)")
	cmd.Flags().Int64("seed", 0, "Random seed (0 draws one)")
	cmd.Flags().Uint64("users", 0, "Users created by a schedule-triggered entry (default from config)")
	cmd.Flags().String("out", "", "Write the journey with its final stats to this file")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("start") {
		cfg.Simulation.StartTime, _ = cmd.Flags().GetString("start")
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("users") {
		cfg.Simulation.ScheduleBatch, _ = cmd.Flags().GetUint64("users")
	}
	return cfg.Validate()
}

// runTicks converts the span flags into a tick count.
func runTicks(cmd *cobra.Command, tick time.Duration) (int, error) {
	ticks, _ := cmd.Flags().GetInt("ticks")
	hours, _ := cmd.Flags().GetInt("hours")
	days, _ := cmd.Flags().GetInt("days")
	if hours < 0 || days < 0 {
		return 0, fmt.Errorf("--hours and --days must not be negative")
	}
	if span := time.Duration(hours)*time.Hour + time.Duration(days)*24*time.Hour; span > 0 {
		ticks = int(span / tick)
	}
	if ticks < 1 {
		return 0, fmt.Errorf("run needs at least one tick, got %d", ticks)
	}
	return ticks, nil
}
