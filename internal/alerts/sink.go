// Package alerts delivers orchestrator events to operators. Delivery is
// best effort everywhere: a sink that fails logs and moves on.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/sniper"
)

// LogSink writes events to the structured log.
type LogSink struct {
	Logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogSink{Logger: logger}
}

func (s *LogSink) Emit(ev sniper.Event) {
	entry := s.Logger.WithFields(logrus.Fields{
		"event": ev.Type,
		"title": ev.Title,
	})
	if ev.Link != "" {
		entry = entry.WithField("link", ev.Link)
	}
	switch ev.Level {
	case "error":
		entry.Error(ev.Body)
	case "warn":
		entry.Warn(ev.Body)
	default:
		entry.Info(ev.Body)
	}
}

// RedisSink publishes events over redis pub/sub, on a firehose channel and
// a per-type channel so subscribers can filter.
type RedisSink struct {
	client  redis.Cmdable
	logger  *logrus.Logger
	timeout time.Duration
}

func NewRedisSink(client redis.Cmdable, logger *logrus.Logger) *RedisSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisSink{client: client, logger: logger, timeout: 3 * time.Second}
}

func (s *RedisSink) Emit(ev sniper.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	channels := []string{
		"alerts:all",
		fmt.Sprintf("alerts:%s", ev.Type),
	}

	pipe := s.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithError(err).Warn("failed to publish event")
	}
}

// MultiSink fans an event out to several sinks.
type MultiSink []sniper.EventSink

func (m MultiSink) Emit(ev sniper.Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}
