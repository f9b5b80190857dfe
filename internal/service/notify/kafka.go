package notify

import (
	"context"
	"fmt"
	"time"

	"OracleDash/internal/domain/models"
	pkgkafka "OracleDash/pkg/kafka"
	applogger "OracleDash/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type KafkaOptions struct {
	Brokers []string
	Topic   string
	// GroupID defaults to one group per instance so every replica sees every event.
	GroupID string
}

type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

type consumer interface {
	Start(ctx context.Context, handle pkgkafka.HandlerFunc)
	Stop(ctx context.Context) error
}

// Kafka broadcasts over a topic keyed by origin instance.
type Kafka struct {
	producer   publisher
	consumer   consumer
	topic      string
	instanceID string
	log        *applogger.Logger
}

func NewKafka(opts KafkaOptions, instanceID string, l *applogger.Logger) (*Kafka, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(opts.Brokers),
		pkgkafka.WithBatchTimeout(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	group := opts.GroupID
	if group == "" {
		group = "oracledash-" + instanceID
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(opts.Brokers),
		pkgkafka.WithConsumerTopic(opts.Topic),
		pkgkafka.WithConsumerGroupID(group),
		pkgkafka.WithConsumerHook(consumerHook(instanceID, l)),
	)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return newKafka(producer, consumer, opts.Topic, instanceID, l), nil
}

// consumerHook drops this instance's own events by message key before they
// are decoded and logs every delivered peer event.
func consumerHook(instanceID string, l *applogger.Logger) pkgkafka.ConsumerHook {
	return pkgkafka.NewHookChain(
		pkgkafka.SkipKey([]byte(instanceID)),
		pkgkafka.HookFuncs{After: func(_ context.Context, msg kafka.Message, err error) {
			if err == nil {
				l.Debug("notify: peer event received",
					applogger.String("peer", string(msg.Key)),
					applogger.Int64("offset", msg.Offset),
				)
			}
		}},
	)
}

func newKafka(p publisher, c consumer, topic, instanceID string, l *applogger.Logger) *Kafka {
	return &Kafka{producer: p, consumer: c, topic: topic, instanceID: instanceID, log: l}
}

func (k *Kafka) Publish(ctx context.Context, ev models.CycleEvent) error {
	ev.Origin = k.instanceID
	return k.producer.Publish(ctx, k.topic, []byte(k.instanceID), ev)
}

func (k *Kafka) Subscribe(ctx context.Context, handle func(models.CycleEvent)) error {
	k.consumer.Start(ctx, func(_ context.Context, data []byte) error {
		return dispatch(k.instanceID, data, handle)
	})
	k.log.Info("notify: subscribed", applogger.String("backend", BackendKafka), applogger.String("topic", k.topic))
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return k.consumer.Stop(stopCtx)
}

func (k *Kafka) Backend() string { return BackendKafka }

func (k *Kafka) Close() error { return k.producer.Close() }
