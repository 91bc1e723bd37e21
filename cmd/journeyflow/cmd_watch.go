package main

import (
	"context"
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tsinling0525/journeyflow/infra/events"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow simulation events published on NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if u, _ := cmd.Flags().GetString("nats"); u != "" {
				cfg.Events.NATSURL = u
			}
			if cfg.Events.NATSURL == "" {
				return fmt.Errorf("no NATS server configured (set events.nats_url or --nats)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			bus, err := events.NewNATSBus(ctx, events.NATSOptions{
				URL:    cfg.Events.NATSURL,
				Prefix: cfg.Events.SubjectPrefix,
				Logger: logger,
			})
			if err != nil {
				return err
			}
			defer bus.Close()

			event, _ := cmd.Flags().GetString("event")
			if event == "" {
				event = ">"
			}
			msgs, cancel, err := bus.Subscribe(bus.Subject(event))
			if err != nil {
				return err
			}
			defer cancel()
			logger.Info("watching", "subject", bus.Subject(event))

			jsonOut, _ := cmd.Flags().GetBool("json")
			for {
				select {
				case <-ctx.Done():
					return nil
				case m, ok := <-msgs:
					if !ok {
						return nil
					}
					if jsonOut {
						if err := writeJSON(cmd, m); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %s\n", m.Time.Local().Format(time.TimeOnly), m.Event, formatFields(m.Fields))
				}
			}
		},
	}
	cmd.Flags().String("nats", "", "NATS server URL (default from config)")
	cmd.Flags().String("event", "", "Only follow this event, e.g. tick.completed")
	return cmd
}

// formatFields renders event fields as sorted key=value pairs.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}
