package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "OracleDash/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// HandlerFunc handles one message payload.
type HandlerFunc func(ctx context.Context, data []byte) error

// Consumer reads a single topic and hands each payload to a handler.
type Consumer struct {
	cfg      *ConsumerConfig
	reader   *kafka.Reader
	log      *applogger.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(l *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		StartLast:  true,
		BackoffMin: 100 * time.Millisecond,
		BackoffMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Hook == nil {
		cfg.Hook = NoopHook{}
	}

	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1e6,
		MaxWait:  500 * time.Millisecond,
	}
	if cfg.StartLast {
		rc.StartOffset = kafka.LastOffset
	}
	return &Consumer{cfg: cfg, reader: kafka.NewReader(rc), log: l}, nil
}

// Start launches the read loop. Handler errors are logged and the message is skipped.
func (c *Consumer) Start(ctx context.Context, handle HandlerFunc) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		attempt := 0
		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				attempt++
				c.log.Warn("kafka consumer: read failed",
					applogger.String("topic", c.cfg.Topic),
					applogger.Int("attempt", attempt),
					applogger.Error(err),
				)
				select {
				case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
				case <-ctx.Done():
					return
				}
				continue
			}
			attempt = 0
			_ = c.process(ctx, msg, handle)
		}
	}()
}

// process runs one message through the hook and the handler. Handler errors
// and panics are logged and the message is skipped.
func (c *Consumer) process(ctx context.Context, msg kafka.Message, handle HandlerFunc) (err error) {
	hctx, err := c.cfg.Hook.BeforeHandle(ctx, msg)
	defer func() { c.cfg.Hook.AfterHandle(hctx, msg, err) }()
	if err != nil {
		if !errors.Is(err, ErrSkip) {
			c.log.Warn("kafka consumer: hook rejected message",
				applogger.String("topic", c.cfg.Topic),
				applogger.Int64("offset", msg.Offset),
				applogger.Error(err),
			)
		}
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("kafka consumer: handler panic",
				applogger.String("topic", c.cfg.Topic),
				applogger.Any("panic", r),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	if err = handle(hctx, msg.Value); err != nil {
		c.log.Warn("kafka consumer: handler failed",
			applogger.String("topic", c.cfg.Topic),
			applogger.Int64("offset", msg.Offset),
			applogger.Error(err),
		)
	}
	return err
}

// Stop stops the read loop and closes the reader.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}
		if err := c.reader.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
	})
	return stopErr
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 31 {
		if e := min * time.Duration(1<<uint(attempt-1)); e > 0 && e < max {
			exp = e
		}
	}
	// jitter up to 50%
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}
