package bootstrap

import (
	"context"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/events"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
	"github.com/jonesrussell/north-cloud/huginn/internal/search"
	"github.com/jonesrussell/north-cloud/huginn/internal/server"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// SetupEventPublisher creates the Redis stream publisher when Redis is
// enabled. It falls back to a no-op publisher when Redis is disabled or
// unreachable. The returned pinger is nil unless Redis is in use.
func SetupEventPublisher(
	ctx context.Context,
	cfg *config.Config,
	log logger.Logger,
) (events.Publisher, server.Pinger, func() error) {
	if !cfg.Redis.Enabled {
		return events.NopPublisher{}, nil, func() error { return nil }
	}

	client, err := events.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis not available, events disabled", logger.Error(err))
		return events.NopPublisher{}, nil, func() error { return nil }
	}

	log.Info("Event publisher initialized", logger.String("redis_address", cfg.Redis.Address))
	ping := pingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	return events.NewRedisPublisher(client, cfg.Redis.MaxStreamLen, log), ping, client.Close
}

// SetupSearchIndex creates the Elasticsearch page index when enabled. It
// falls back to a no-op index when Elasticsearch is disabled or
// unreachable.
func SetupSearchIndex(ctx context.Context, cfg *config.Config, log logger.Logger) search.Index {
	if !cfg.Elasticsearch.Enabled {
		return search.NopIndex{}
	}

	client, err := search.NewClient(ctx, cfg.Elasticsearch)
	if err != nil {
		log.Warn("Elasticsearch not available, page search disabled", logger.Error(err))
		return search.NopIndex{}
	}

	index := search.NewElasticIndex(client, cfg.Elasticsearch.Index, log)
	if err = index.EnsureIndex(ctx); err != nil {
		log.Warn("Failed to ensure search index, page search disabled", logger.Error(err))
		return search.NopIndex{}
	}

	log.Info("Page search initialized", logger.String("index", cfg.Elasticsearch.Index))
	return index
}
