package infra

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Tsinling0525/journeyflow/config"
	"github.com/Tsinling0525/journeyflow/engine"
	"github.com/Tsinling0525/journeyflow/infra/archive"
	"github.com/Tsinling0525/journeyflow/infra/events"
	"github.com/Tsinling0525/journeyflow/logging"
	"github.com/Tsinling0525/journeyflow/nodes"
	"github.com/Tsinling0525/journeyflow/plugin"
)

// OptionsFromConfig translates the simulation settings of cfg.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) (InstanceOptions, error) {
	s := cfg.Simulation
	start, err := s.StartAt()
	if err != nil {
		return InstanceOptions{}, err
	}
	return InstanceOptions{
		Simulation: engine.Options{
			TickDuration: s.TickDuration,
			StartTime:    start,
			Seed:         s.Seed,
			Settings: nodes.Settings{
				ScheduleBatch:  s.ScheduleBatch,
				APIProbability: s.APIProbability,
				APIBatchMax:    s.APIBatchMax,
			},
			MaxLogEntries: s.MaxLogEntries,
			Logger:        logger,
		},
		Scheduler: engine.SchedulerOptions{
			BaseInterval: s.BaseInterval,
			MinInterval:  s.MinInterval,
			Speed:        s.Speed,
			Logger:       logger,
		},
	}, nil
}

// Runtime wires the configured outlets around an InstanceManager.
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Paths     Paths
	Journeys  *LocalJourneys
	NATS      *events.NATSBus
	Archive   *archive.SQLiteArchive
	Memory    *archive.Mem
	Instances *InstanceManager
}

// NewRuntime connects the event bus and opens the archive described by
// cfg. Without a NATS URL events are dropped; with the archive disabled
// runs are kept in memory only.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	opts, err := OptionsFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg, Logger: logger, Paths: NewPaths(cfg.DataDir)}
	rt.Journeys = NewLocalJourneys(rt.Paths)

	deps := plugin.Deps{Bus: events.NullBus{}}
	if cfg.Events.NATSURL != "" {
		bus, err := events.NewNATSBus(ctx, events.NATSOptions{
			URL:    cfg.Events.NATSURL,
			Prefix: cfg.Events.SubjectPrefix,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		rt.NATS = bus
		deps.Bus = bus
		logger.Info("publishing events", "url", cfg.Events.NATSURL, "prefix", cfg.Events.SubjectPrefix)
	}

	if cfg.Archive.Enabled {
		a, err := archive.OpenSQLite(cfg.ArchivePath())
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Archive = a
		deps.Archive = a
		logger.Info("archiving runs", "path", cfg.ArchivePath())
	} else {
		rt.Memory = archive.NewMem()
		deps.Archive = rt.Memory
	}

	rt.Instances = NewInstanceManager(deps, opts)
	return rt, nil
}

// Runs lists archived runs from whichever archive is active.
func (rt *Runtime) Runs(ctx context.Context, limit int) ([]plugin.RunInfo, error) {
	if rt.Archive != nil {
		return rt.Archive.Runs(ctx, limit)
	}
	return rt.Memory.Runs(ctx, limit)
}

// Close stops every instance, then closes the archive and the bus.
func (rt *Runtime) Close() error {
	if rt.Instances != nil {
		rt.Instances.Close()
	}
	var errs []error
	if rt.Archive != nil {
		errs = append(errs, rt.Archive.Close())
	}
	if rt.NATS != nil {
		errs = append(errs, rt.NATS.Close())
	}
	return errors.Join(errs...)
}
