package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue("raw")
	assert.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"seq": 3})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"seq":3}`, string(b))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestNewConsumerRequiresTopic(t *testing.T) {
	_, err := NewConsumer(nil, WithConsumerBrokers([]string{"localhost:9092"}))
	assert.ErrorContains(t, err, "topic")
}
