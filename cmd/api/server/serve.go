package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Tsinling0525/journeyflow/config"
	"github.com/Tsinling0525/journeyflow/infra"
	apiinfra "github.com/Tsinling0525/journeyflow/infra/api"
)

// Serve runs the HTTP API for cfg until ctx is cancelled, then shuts the
// server down and stops every hosted simulation.
func Serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	rt, err := infra.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	journeys := apiinfra.NewJourneyStore(rt.Journeys)
	if err := journeys.Load(ctx); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	r := NewRouter(apiinfra.Deps{Instances: rt.Instances, Journeys: journeys, Runs: rt, Logger: logger})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}

	errc := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", cfg.Server.Addr, "journeys", len(journeys.List()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
