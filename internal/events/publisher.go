package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/huginn/internal/config"
	"github.com/jonesrussell/north-cloud/huginn/internal/logger"
)

const pingTimeout = 5 * time.Second

// Publisher delivers scan events.
type Publisher interface {
	PublishViolations(ctx context.Context, event *ViolationEvent) error
	PublishScanResult(ctx context.Context, event *ScanResultEvent) error
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Address, err)
	}
	return client, nil
}

// RedisPublisher writes events to Redis streams as a single JSON "event"
// field.
type RedisPublisher struct {
	client redis.Cmdable
	maxLen int64
	log    logger.Logger
}

// NewRedisPublisher creates a publisher. A positive maxLen trims each
// stream approximately to that many entries.
func NewRedisPublisher(client redis.Cmdable, maxLen int64, log logger.Logger) *RedisPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisPublisher{client: client, maxLen: maxLen, log: logger.Component(log, "events")}
}

// PublishViolations adds event to the violation_notifications stream.
func (p *RedisPublisher) PublishViolations(ctx context.Context, event *ViolationEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, StreamViolations, event)
}

// PublishScanResult adds event to the scan_results stream.
func (p *RedisPublisher) PublishScanResult(ctx context.Context, event *ScanResultEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return p.publish(ctx, StreamScanResults, event)
}

func (p *RedisPublisher) publish(ctx context.Context, stream string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(payload)},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	p.log.Debug("Published event",
		logger.String("stream", stream),
		logger.String("stream_id", id),
	)
	return nil
}

// NopPublisher drops every event. It is used when Redis is disabled.
type NopPublisher struct{}

// PublishViolations implements Publisher.
func (NopPublisher) PublishViolations(context.Context, *ViolationEvent) error { return nil }

// PublishScanResult implements Publisher.
func (NopPublisher) PublishScanResult(context.Context, *ScanResultEvent) error { return nil }
