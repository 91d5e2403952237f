package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/go-sim-projects/config"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/repository"
)

// Store is the configured record store plus the hooks the process needs
// around it.
type Store struct {
	repository.RecordStore
	Backend string

	ping    func(ctx context.Context) error
	closers []func()
}

// Ping checks the backend connection. Backends without a connection report nil.
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases backend connections in reverse order of acquisition.
func (s *Store) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStore connects the backend selected by cfg.Store.Backend. app is only
// needed for the firestore backend.
func OpenStore(ctx context.Context, cfg *config.Config, app *firebase.App, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return &Store{RecordStore: repository.NewMemoryStore(), Backend: cfg.Store.Backend}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return &Store{
			RecordStore: repository.NewRedisStore(client, log),
			Backend:     cfg.Store.Backend,
			ping:        func(ctx context.Context) error { return client.Ping(ctx).Err() },
			closers:     []func(){func() { _ = client.Close() }},
		}, nil

	case config.BackendPostgres:
		pool, err := OpenDB(ctx, DBOptions{DSN: cfg.Database.DSN, MaxConns: cfg.Database.MaxConns})
		if err != nil {
			return nil, err
		}
		pg := repository.NewPostgresStore(pool, cfg.Database.DSN, log)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{
			RecordStore: pg,
			Backend:     cfg.Store.Backend,
			ping:        pool.Ping,
			closers:     []func(){pool.Close},
		}, nil

	case config.BackendFirestore:
		if app == nil {
			return nil, fmt.Errorf("firestore backend requires a firebase app")
		}
		client, err := auth.NewFirestoreClient(ctx, app)
		if err != nil {
			return nil, err
		}
		return &Store{
			RecordStore: repository.NewFirestoreStore(client, log),
			Backend:     cfg.Store.Backend,
			closers:     []func(){func() { _ = client.Close() }},
		}, nil

	case config.BackendNATS:
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name("go-sim-projects"),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					log.Warn("nats disconnected", "error", err)
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info("nats reconnected", "url", nc.ConnectedUrl())
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("jetstream: %w", err)
		}
		kv, err := repository.NewNATSStore(ctx, js, cfg.NATS.Bucket, log)
		if err != nil {
			nc.Close()
			return nil, err
		}
		return &Store{
			RecordStore: kv,
			Backend:     cfg.Store.Backend,
			ping: func(context.Context) error {
				if !nc.IsConnected() {
					return fmt.Errorf("nats status %s", nc.Status())
				}
				return nil
			},
			closers: []func(){func() { _ = nc.Drain() }},
		}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
