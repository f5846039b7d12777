package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/ShayCichocki/genesis/internal/config"
	"github.com/ShayCichocki/genesis/internal/engine"
	"github.com/ShayCichocki/genesis/internal/engine/temporal"
	"github.com/ShayCichocki/genesis/internal/orchestrator"
	"github.com/ShayCichocki/genesis/internal/state"
)

// runtime owns everything a generate run needs and closes it in reverse.
type runtime struct {
	cfg      *config.Config
	logger   *orchestrator.FileLogger
	bus      *engine.Bus
	registry engine.Registry
	archive  *state.DB
	metrics  *orchestrator.Metrics
	engine   *temporal.Engine
	orch     *orchestrator.Orchestrator

	metricsServer *http.Server
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	rt := &runtime{cfg: cfg}
	if err := rt.init(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) init() (err error) {
	cfg := rt.cfg
	if cfg.Log.Path != "" {
		rt.logger, err = orchestrator.NewFileLogger(cfg.Log.Path, cfg.LogLevel())
		if err != nil {
			return err
		}
	} else {
		cwd, _ := os.Getwd()
		rt.logger = orchestrator.NewFileLoggerForProject(cwd, cfg.LogLevel())
	}
	logger := rt.logger.Logger

	rt.bus = engine.NewBus(logger.With().Str("component", "bus").Logger())

	rt.registry, err = newRegistry(cfg, rt.bus, logger)
	if err != nil {
		return err
	}

	archivePath := cfg.State.ArchivePath
	if archivePath == "" {
		archivePath = state.DefaultArchivePath()
	}
	rt.archive, err = state.OpenArchive(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	rt.metrics = orchestrator.NewMetrics()
	rt.engine = temporal.New(temporal.Config{
		HostPort:  cfg.Engine.Temporal.HostPort,
		Namespace: cfg.Engine.Temporal.Namespace,
		TaskQueue: cfg.Engine.Temporal.TaskQueue,
	}, rt.bus, logger.With().Str("component", "temporal").Logger())

	rt.orch = orchestrator.New(rt.engine, rt.registry,
		orchestrator.WithLogger(logger),
		orchestrator.WithStore(state.NewStore(cfg.State.Capacity, cfg.State.RetainFor)),
		orchestrator.WithArchive(rt.archive),
		orchestrator.WithMetrics(rt.metrics),
		orchestrator.WithPolicy(cfg.Policy()),
	)
	return nil
}

// newRegistry prefers the agents file, watching it for changes, and falls
// back to the static list.
func newRegistry(cfg *config.Config, bus *engine.Bus, logger zerolog.Logger) (engine.Registry, error) {
	if cfg.Agents.File == "" {
		return engine.NewStaticRegistry(cfg.Agents.Static...), nil
	}

	reg, err := engine.NewFileRegistry(cfg.Agents.File, bus, logger.With().Str("component", "registry").Logger())
	if err != nil {
		return nil, fmt.Errorf("load agents file: %w", err)
	}
	if err := reg.Watch(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Agents.File).Msg("agents file will not be reloaded")
	}
	return reg, nil
}

// serveMetrics exposes the Prometheus registry on addr until Close.
func (rt *runtime) serveMetrics(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rt.metrics.Handler())
	rt.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := rt.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Warn().Err(err).Msg("metrics server")
		}
	}()
	return ln.Addr().String(), nil
}

// Close shuts down the metrics server, registry watcher, archive and log.
// The orchestrator is stopped separately so its error can be reported.
func (rt *runtime) Close() error {
	var errs error
	if rt.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = multierr.Append(errs, rt.metricsServer.Shutdown(ctx))
		cancel()
	}
	if closer, ok := rt.registry.(interface{ Close() error }); ok {
		errs = multierr.Append(errs, closer.Close())
	}
	if rt.bus != nil {
		rt.bus.Close()
	}
	if rt.archive != nil {
		errs = multierr.Append(errs, rt.archive.Close())
	}
	if rt.logger != nil {
		errs = multierr.Append(errs, rt.logger.Close())
	}
	return errs
}
