// Package notify fans completed-cycle events out to peer dashboard replicas.
package notify

import (
	"encoding/json"
	"fmt"

	"OracleDash/internal/domain/models"
	drepo "OracleDash/internal/domain/repository"
	"OracleDash/pkg/config"
	applogger "OracleDash/pkg/logger"

	"github.com/google/uuid"
)

// Backend names accepted by config.
const (
	BackendNone  = "none"
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

// NewInstanceID returns the origin tag this process stamps on its events.
func NewInstanceID() string { return uuid.NewString() }

// New selects a broadcaster from cfg.Notify.Backend.
func New(cfg *config.Config, instanceID string, l *applogger.Logger) (drepo.Broadcaster, error) {
	if l == nil {
		l = applogger.Nop()
	}
	switch cfg.Notify.Backend {
	case "", BackendNone:
		return NewNone(), nil
	case BackendRedis:
		rc := cfg.Notify.Redis
		return NewRedis(RedisOptions{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Channel:  rc.Channel,
		}, instanceID, l), nil
	case BackendKafka:
		kc := cfg.Notify.Kafka
		return NewKafka(KafkaOptions{
			Brokers: kc.Brokers,
			Topic:   kc.Topic,
			GroupID: kc.GroupID,
		}, instanceID, l)
	default:
		return nil, fmt.Errorf("notify: unknown backend %q", cfg.Notify.Backend)
	}
}

// dispatch decodes one payload and forwards it unless it is our own.
func dispatch(instanceID string, payload []byte, handle func(models.CycleEvent)) error {
	var ev models.CycleEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode cycle event: %w", err)
	}
	if ev.Origin == instanceID {
		return nil
	}
	handle(ev)
	return nil
}
