package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"governomics/internal/backend"
	"governomics/internal/cache"
	"governomics/internal/chat"
	"governomics/internal/config"
	"governomics/internal/logger"
	"governomics/internal/queue"
	"governomics/internal/store"
)

// Deps bundles common runtime dependencies for the gateway and the worker.
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Store   store.Store
	Cache   cache.Cache
	Queue   queue.Queue // nil when QUEUE_PROVIDER=none
	Backend *backend.Client
	Chat    *chat.Service

	closers []func() error
}

// Close releases connections opened by Build.
func (d Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	return BuildWith(cfg, log)
}

// BuildWith wires components from an already loaded config.
func BuildWith(cfg config.Config, log *slog.Logger) (Deps, error) {
	deps := Deps{Config: cfg, Log: log}

	st, err := buildStore(cfg, log, &deps)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	deps.Store = st

	deps.Cache = buildCache(cfg, log)
	deps.closers = append(deps.closers, deps.Cache.Close)

	// The queue reports exhausted tasks back to the chat service, which is
	// built after it.
	var svc *chat.Service
	q, err := buildQueue(cfg, log, &deps, func(ctx context.Context, task queue.Task, cause error) {
		svc.Abandon(ctx, task, cause)
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q

	deps.Backend = backend.NewClient(cfg.BackendURL, backend.WithLogger(log.With("component", "backend")))
	log.Info("using analysis backend", "url", deps.Backend.BaseURL())

	svc = chat.NewService(chat.Options{
		Store:    deps.Store,
		Asker:    deps.Backend,
		Cache:    deps.Cache,
		Queue:    deps.Queue,
		Log:      log.With("component", "chat"),
		CacheTTL: time.Duration(cfg.CacheTTL) * time.Second,
	})
	deps.Chat = svc
	return deps, nil
}

func buildStore(cfg config.Config, log *slog.Logger, deps *Deps) (store.Store, error) {
	switch cfg.StoreProvider {
	case "memory", "":
		log.Info("using in-memory session store")
		return store.NewMemory(), nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		deps.closers = append(deps.closers, db.Close)
		log.Info("using Postgres session store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: memory, postgres)", cfg.StoreProvider)
	}
}

// buildCache never fails: an unreachable Redis degrades to no caching.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache()
		}
		log.Info("using Redis answer cache", "addr", cfg.RedisAddr, "ttl_s", cfg.CacheTTL)
		return c
	case "none", "":
		return cache.NewNoOpCache()
	default:
		log.Warn("unknown CACHE_PROVIDER, caching disabled", "provider", cfg.CacheProvider)
		return cache.NewNoOpCache()
	}
}

func buildQueue(cfg config.Config, log *slog.Logger, deps *Deps, onFailure queue.FailureHandler) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "none", "":
		log.Info("no queue configured, async questions disabled")
		return nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		deps.closers = append(deps.closers, func() error { nc.Close(); return nil })
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc, onFailure), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}
