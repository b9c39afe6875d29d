package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/advice"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/service"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/medmind/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
)

const analyticsBufferSize = 10000

// app holds everything a command needs. Optional backends are nil when
// disabled or unreachable.
type app struct {
	svc      *service.Service
	catalog  *catalog.Catalog
	metrics  *metrics.Metrics
	redis    *pkgredis.Client
	postgres *postgres.Client
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp loads the catalog and wires the service. Redis and Kafka only
// start when the command serves traffic; one-shot CLI runs skip them.
func buildApp(ctx context.Context, cfg *config.Config, withBackends bool) (*app, error) {
	a := &app{}

	c, err := loadCatalog(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.catalog = c

	opts := service.Options{
		DefaultTopN: cfg.Match.DefaultTopN,
		MaxTopN:     cfg.Match.MaxTopN,
		Advisor: advice.New(advice.Config{
			URL:    cfg.Advice.URL,
			APIKey: cfg.Advice.APIKey(),
		}, nil),
	}

	if withBackends {
		a.metrics = metrics.New(prometheus.DefaultRegisterer)
		opts.Metrics = a.metrics

		if cfg.Redis.Enabled {
			rc, err := pkgredis.NewClient(cfg.Redis)
			if err != nil {
				slog.Warn("redis unavailable, match caching disabled", "error", err)
			} else {
				a.redis = rc
				a.closers = append(a.closers, func() { rc.Close() })
				opts.CacheStore = rc
				opts.CacheTTL = cfg.Redis.CacheTTL
				slog.Info("match cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL, "catalog_version", c.Version())
			}
		}

		if cfg.Kafka.Enabled {
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
			collector := analytics.NewCollector(producer, analyticsBufferSize)
			collector.Start(ctx)
			a.closers = append(a.closers, func() { producer.Close() }, collector.Close)
			opts.Tracker = collector
			slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.MatchEvents)
		}
	}

	a.svc = service.New(c, opts)
	return a, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, a *app) (*catalog.Catalog, error) {
	switch cfg.Catalog.Source {
	case config.CatalogSourcePostgres:
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, &catalog.LoadError{Source: "postgres:diseases", Reason: "connecting", Err: err}
		}
		a.postgres = db
		a.closers = append(a.closers, func() { db.Close() })
		return catalog.LoadPostgres(ctx, db)
	case config.CatalogSourceFile:
		return catalog.Load(cfg.Catalog.Path)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
}
