// Package redis publishes planner events to Redis Streams.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/warehouse-planner/internal/events"
)

// StreamPublisher implements events.Publisher with XADD.
type StreamPublisher struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	maxLen int64
}

var _ events.Publisher = (*StreamPublisher)(nil)

// NewStreamPublisher creates a publisher writing to <prefix>:<topic>. A
// positive maxLen trims each stream approximately to that length.
func NewStreamPublisher(client *redis.Client, prefix string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	if prefix == "" {
		prefix = "warehouse:events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamPublisher{
		client: client,
		logger: logger,
		prefix: prefix,
		maxLen: maxLen,
	}
}

// Publish appends an event to the topic's stream.
func (p *StreamPublisher) Publish(ctx context.Context, topic string, e events.Event) error {
	streamKey := p.StreamKey(topic)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.XAdd(ctx, p.addArgs(streamKey, e, data)).Result(); err != nil {
		return fmt.Errorf("failed to add to stream %s: %w", streamKey, err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("stream", streamKey))
	return nil
}

func (p *StreamPublisher) addArgs(streamKey string, e events.Event, data []byte) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"type":  string(e.Type),
			"robot": string(e.Robot),
			"data":  string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return args
}

// Ping checks the connection.
func (p *StreamPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close leaves the client open; the caller owns it.
func (p *StreamPublisher) Close() error {
	return nil
}

// StreamKey returns the stream a topic is written to.
func (p *StreamPublisher) StreamKey(topic string) string {
	return fmt.Sprintf("%s:%s", p.prefix, topic)
}

// Decode parses an event from a stream message written by Publish.
func Decode(msg redis.XMessage) (events.Event, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return events.Event{}, fmt.Errorf("message %s: missing data field", msg.ID)
	}
	var e events.Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return events.Event{}, fmt.Errorf("message %s: %w", msg.ID, err)
	}
	return e, nil
}
