package api

import (
	"context"
	"log/slog"

	"github.com/Tsinling0525/journeyflow/infra"
	"github.com/Tsinling0525/journeyflow/plugin"
)

// RunLister is the read side of a run archive.
type RunLister interface {
	Runs(ctx context.Context, limit int) ([]plugin.RunInfo, error)
}

// Deps are the collaborators the HTTP server is built from.
type Deps struct {
	Instances *infra.InstanceManager
	Journeys  *JourneyStore
	Runs      RunLister
	Logger    *slog.Logger
}

var _ Persister = (*infra.LocalJourneys)(nil)
