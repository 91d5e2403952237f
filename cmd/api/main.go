package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/GoSim-25-26J-441/go-sim-projects/config"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/bootstrap"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/logging"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/metrics"
	projectshttp "github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/http"
)

const serviceName = "go-sim-projects"

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(log)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app *firebase.App
	if bootstrap.NeedsFirebase(cfg) {
		app, err = auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return err
		}
	}

	store, err := bootstrap.OpenStore(ctx, cfg, app, log)
	if err != nil {
		return err
	}
	defer store.Close()

	authn, err := bootstrap.Authenticator(ctx, cfg, app)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	limiter := projectshttp.NewOwnerLimiter(cfg.Server.MutationsPerMinute)
	sched := bootstrap.NewScheduler(log)
	if err := sched.AddLimiterSweep(cfg.Server.LimiterSweepSpec, limiter); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:     serviceName,
		Version:         cfg.App.Version,
		CORSOrigins:     cfg.Server.CORSOrigins,
		Store:           store,
		Log:             log,
		Metrics:         m,
		Gatherer:        reg,
		Auth:            authn,
		Limiter:         limiter,
		SnapshotTimeout: cfg.Server.SnapshotTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from ctx so open streams end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "backend", store.Backend, "auth", cfg.Auth.Mode)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
