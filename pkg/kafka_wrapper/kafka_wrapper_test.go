package kafkawrapper

import (
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDuration(t *testing.T) {
	for attempt := 0; attempt < 12; attempt++ {
		d := backoffDuration(10*time.Millisecond, time.Second, attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
	assert.Equal(t, time.Duration(0), backoffDuration(0, time.Second, 3))
}

func TestWrapMessage(t *testing.T) {
	m := kafka.Message{
		Topic:     "oms.order_events",
		Partition: 2,
		Offset:    41,
		Key:       []byte("ORD-1"),
		Value:     []byte(`{}`),
		Headers:   mapToHeaders(map[string]string{"event_id": "ORD-1-1"}),
	}
	w := wrapMessage(m)
	assert.Equal(t, "oms.order_events", w.Topic)
	assert.Equal(t, int64(41), w.Offset)
	assert.Equal(t, "ORD-1", string(w.Key))
	assert.Equal(t, map[string]string{"event_id": "ORD-1-1"}, w.Headers)
}

func TestConsumerConfigDefaults(t *testing.T) {
	cfg := ConsumerConfig{MaxRetries: -1}
	cfg.setDefaults()
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 200*time.Millisecond, cfg.BatchTimeout)
}

func TestNewConsumerGroupNeedsTopic(t *testing.T) {
	_, err := NewConsumerGroup(ConsumerConfig{GroupID: "g"}, nil)
	require.Error(t, err)
}

func TestUninitialized(t *testing.T) {
	var p *Producer
	require.Error(t, p.Publish(t.Context(), "t", nil, nil, nil))
	require.NoError(t, p.Close())
}
