package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

// DefaultConfig returns consumer settings for the given brokers.
func DefaultConfig(brokers string) Config {
	return Config{
		Brokers:          SplitCSV(brokers),
		Topic:            "table-changes",
		GroupID:          "overlay-invalidator",
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
	}
}

// Refresher repopulates the selectors reading from a table.
type Refresher interface {
	RefreshTable(ctx context.Context, table string) int
}

type Consumer struct {
	cfg       Config
	cache     sqlapi.Invalidator
	refresher Refresher
	log       *zerolog.Logger
}

// New creates a consumer. refresher may be nil.
func New(cfg Config, cache sqlapi.Invalidator, refresher Refresher, log *zerolog.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	l := log.With().Str("component", "invalidation").Logger()
	return &Consumer{cfg: cfg, cache: cache, refresher: refresher, log: &l}
}

// Start consumes change events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil {
		return errors.New("invalidation: missing cache")
	}
	if len(c.cfg.Brokers) == 0 {
		return errors.New("invalidation: no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.log.Info().
		Strs("brokers", c.cfg.Brokers).
		Str("topic", c.cfg.Topic).
		Str("group", c.cfg.GroupID).
		Msg("invalidation consumer starting")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.log.Error().Err(err).
					Strs("brokers", c.cfg.Brokers).
					Str("topic", c.cfg.Topic).
					Msg("kafka consumer error")
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles a single change event message. Malformed events are
// logged and skipped; cache failures are returned so the message is retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		metrics.ObserveInvalidation("decode_error")
		c.log.Error().Err(err).
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("decoding change event")
		return nil
	}
	if err := ev.Validate(); err != nil {
		metrics.ObserveInvalidation("invalid")
		c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping invalid change event")
		return nil
	}

	n, err := c.cache.InvalidateTable(ctx, ev.Table)
	if err != nil {
		metrics.ObserveInvalidation("cache_error")
		return fmt.Errorf("invalidate %s: %w", ev.Table, err)
	}

	refreshed := 0
	if c.refresher != nil {
		refreshed = c.refresher.RefreshTable(ctx, ev.Table)
	}
	metrics.ObserveInvalidation("ok")
	c.log.Info().
		Str("op", ev.Op).
		Str("table", ev.Table).
		Int("keys", n).
		Int("selectors", refreshed).
		Msg("invalidated table")
	return nil
}

// SplitCSV splits a comma separated broker list.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
