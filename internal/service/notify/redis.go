package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"OracleDash/internal/domain/models"
	applogger "OracleDash/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis broadcasts over a pub/sub channel. Messages published while a
// replica is disconnected are not replayed.
type Redis struct {
	cli        *redis.Client
	channel    string
	instanceID string
	log        *applogger.Logger
}

func NewRedis(opts RedisOptions, instanceID string, l *applogger.Logger) *Redis {
	rdb := redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
	return &Redis{cli: rdb, channel: opts.Channel, instanceID: instanceID, log: l}
}

func (r *Redis) Publish(ctx context.Context, ev models.CycleEvent) error {
	ev.Origin = r.instanceID
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode cycle event: %w", err)
	}
	if err := r.cli.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", r.channel, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, handle func(models.CycleEvent)) error {
	ps := r.cli.Subscribe(ctx, r.channel)
	defer ps.Close()

	// Receive blocks until the subscription is confirmed so connection errors
	// surface here instead of being retried silently by the channel reader.
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.log.Info("notify: subscribed", applogger.String("backend", BackendRedis), applogger.String("channel", r.channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := dispatch(r.instanceID, []byte(msg.Payload), handle); err != nil {
				r.log.Warn("notify: dropped message", applogger.String("backend", BackendRedis), applogger.Error(err))
			}
		}
	}
}

func (r *Redis) Backend() string { return BackendRedis }

func (r *Redis) Close() error { return r.cli.Close() }
