package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"skyfleet.ai/internal/config"
	"skyfleet.ai/internal/observability"
	"skyfleet.ai/internal/persistence/flightlog"
	"skyfleet.ai/internal/persistence/indexdb"
	"skyfleet.ai/internal/routeopt"
	"skyfleet.ai/internal/sim/catalog"
	"skyfleet.ai/internal/sim/world"
	"skyfleet.ai/internal/transport/ws"
)

func main() {
	configDir := flag.String("config", "./configs", "directory holding config.yaml and catalog files")
	listen := flag.String("listen", "", "listen address, overrides config")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	log := newLogger(cfg.LogLevel)

	cat, err := catalog.Load(cfg.ConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}

	tickLog, err := flightlog.NewTickLogger(filepath.Join(cfg.DataDir, "flightlog"))
	if err != nil {
		log.Fatal().Err(err).Msg("open flight log")
	}
	defer tickLog.Close()

	var idx *indexdb.SQLiteIndex
	if cfg.Index.Enabled {
		idx, err = indexdb.OpenSQLite(cfg.Index.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Index.Path).Msg("open index db")
		}
		defer idx.Close()
	}

	var metrics *observability.FleetCollector
	if cfg.Metrics.Enabled {
		metrics, err = observability.NewFleetCollector(nil)
		if err != nil {
			log.Fatal().Err(err).Msg("register metrics")
		}
	}

	opt := routeopt.New(cfg.Sim.Seed, log.With().Str("component", "routeopt").Logger())

	opts := []world.Option{
		world.WithLogger(log.With().Str("component", "world").Logger()),
		world.WithRouter(opt),
		world.WithTickLogger(tickLog),
	}
	if idx != nil {
		opts = append(opts, world.WithIndex(idx))
	}
	if metrics != nil {
		opts = append(opts, world.WithMetrics(metrics))
	}

	w, err := world.New(world.WorldConfig{
		Seed:            cfg.Sim.Seed,
		TickRateHz:      cfg.Sim.TickRateHz,
		Scenario:        cfg.Sim.Scenario,
		SpeedMultiplier: cfg.Sim.SpeedMultiplier,
	}, cat, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("build world")
	}

	ctx, cancel := signalContext()
	defer cancel()

	go w.Run(ctx)

	if cfg.Sim.AutoStart {
		if err := w.Start(); err != nil {
			log.Error().Err(err).Msg("auto start")
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	wsSrv := ws.NewServer(w, log.With().Str("component", "ws").Logger())
	mux.Handle("/v1/ws", wsSrv.Handler())

	a := &api{world: w, opt: opt, idx: idx, cat: cat, log: log}
	a.routes(mux)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}
	if envBool("SKYFLEET_PPROF") {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		log.Warn().Msg("pprof endpoints enabled")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("scenario", cfg.Sim.Scenario).
		Int64("seed", cfg.Sim.Seed).
		Int("tick_rate_hz", cfg.Sim.TickRateHz).
		Msg("server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("serve")
	}

	w.Stop()
	if err := tickLog.Flush(); err != nil {
		log.Error().Err(err).Msg("flush flight log")
	}
	log.Info().Msg("bye")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
