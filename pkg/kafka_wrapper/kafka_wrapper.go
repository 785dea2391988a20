// Package kafkawrapper publishes messages to Kafka and runs a pool of workers
// consuming a topic in batches.
package kafkawrapper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
	Headers   map[string]string
	Raw       kafka.Message
}

type ProducerConfig struct {
	Brokers      []string      `yaml:"brokers"`
	BatchSize    int           `yaml:"batch_size"`
	BatchBytes   int64         `yaml:"batch_bytes"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// RequiredAcks: 0 none, 1 leader, -1 all.
	RequiredAcks int  `yaml:"required_acks"`
	Async        bool `yaml:"async"`

	Balancer kafka.Balancer `yaml:"-"`
}

type Producer struct {
	w *kafka.Writer
}

func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.Balancer == nil {
		// same key, same partition: per-order ordering survives the topic
		cfg.Balancer = &kafka.Hash{}
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               cfg.Balancer,
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Async:                  cfg.Async,
	}
	return &Producer{w: wr}
}

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	if p == nil || p.w == nil {
		return errors.New("producer not initialized")
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: mapToHeaders(headers),
		Time:    time.Now(),
	})
}

func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte(key), b, headers)
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

type ConsumerConfig struct {
	Brokers     []string      `yaml:"brokers"`
	GroupID     string        `yaml:"group_id"`
	Topic       string        `yaml:"topic"`
	WorkerCount int           `yaml:"worker_count"`
	MaxRetries  int           `yaml:"max_retries"`
	BackoffMin  time.Duration `yaml:"backoff_min"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
	DLQTopic    string        `yaml:"dlq_topic"`
	// Batch options
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

func (cfg *ConsumerConfig) setDefaults() {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}
}

type ConsumerGroup struct {
	r          *kafka.Reader
	cfg        ConsumerConfig
	prodForDLQ *Producer
	logger     *zap.Logger
}

func NewConsumerGroup(cfg ConsumerConfig, logger *zap.Logger) (*ConsumerGroup, error) {
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("consumer needs topic and group id")
	}
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	rd := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	var prod *Producer
	if cfg.DLQTopic != "" {
		prod = NewProducer(ProducerConfig{Brokers: cfg.Brokers, RequiredAcks: int(kafka.RequireAll)})
	}

	return &ConsumerGroup{r: rd, cfg: cfg, prodForDLQ: prod, logger: logger}, nil
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil {
		return nil
	}
	if cg.prodForDLQ != nil {
		_ = cg.prodForDLQ.Close()
	}
	if cg.r != nil {
		return cg.r.Close()
	}
	return nil
}

// Run (batch mode): handler receives []Message at a time. A batch that still
// fails after MaxRetries goes to the DLQ, when one is configured, and is
// committed either way.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, []Message) error) error {
	if cg == nil || cg.r == nil {
		return errors.New("consumer not initialized")
	}

	batches := make(chan []kafka.Message, cg.cfg.WorkerCount)

	// Reader loop to build batches
	go func() {
		defer close(batches)
		var buf []kafka.Message
		flush := func() bool {
			if len(buf) == 0 {
				return true
			}
			select {
			case batches <- buf:
				buf = nil
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			fetchCtx, cancel := context.WithTimeout(ctx, cg.cfg.BatchTimeout)
			m, err := cg.r.FetchMessage(fetchCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, context.DeadlineExceeded) {
					// batch window elapsed
					if !flush() {
						return
					}
					continue
				}
				cg.logger.Warn("kafka fetch error", zap.String("topic", cg.cfg.Topic), zap.Error(err))
				time.Sleep(200 * time.Millisecond)
				continue
			}
			buf = append(buf, m)
			if len(buf) >= cg.cfg.BatchSize && !flush() {
				return
			}
		}
	}()

	// Worker pool
	done := make(chan struct{}, cg.cfg.WorkerCount)
	for i := 0; i < cg.cfg.WorkerCount; i++ {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			for ms := range batches {
				if !cg.process(ctx, workerID, ms, handler) {
					return
				}
			}
		}(i)
	}

	for i := 0; i < cg.cfg.WorkerCount; i++ {
		<-done
	}
	return nil
}

func (cg *ConsumerGroup) process(ctx context.Context, workerID int, ms []kafka.Message, handler func(context.Context, []Message) error) bool {
	wrapped := make([]Message, len(ms))
	for i, m := range ms {
		wrapped[i] = wrapMessage(m)
	}

	var attempt int
	for {
		err := handler(ctx, wrapped)
		if err == nil {
			break
		}
		attempt++
		if attempt > cg.cfg.MaxRetries {
			cg.logger.Error("batch failed, giving up",
				zap.Int("worker", workerID),
				zap.Int("size", len(ms)),
				zap.Error(err))
			if cg.prodForDLQ != nil {
				for _, m := range ms {
					if err := cg.prodForDLQ.Publish(ctx, cg.cfg.DLQTopic, m.Key, m.Value, headersToMap(m.Headers)); err != nil {
						cg.logger.Error("dlq publish failed", zap.Error(err))
					}
				}
			}
			break
		}
		select {
		case <-time.After(backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return false
		}
	}

	if err := cg.r.CommitMessages(ctx, ms...); err != nil {
		cg.logger.Warn("kafka commit failed", zap.Error(err))
	}
	return true
}

func wrapMessage(m kafka.Message) Message {
	return Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Time:      m.Time,
		Headers:   headersToMap(m.Headers),
		Raw:       m,
	}
}

func headersToMap(hs []kafka.Header) map[string]string {
	out := map[string]string{}
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}

func mapToHeaders(m map[string]string) []kafka.Header {
	var kh []kafka.Header
	for k, v := range m {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kh
}

// backoffDuration is full-jitter exponential: uniform in [0, min*2^(attempt-1)],
// capped at max.
func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	pow := math.Pow(2, float64(attempt-1))
	d := time.Duration(float64(min) * pow)
	if d > max {
		d = max
	}
	if d > 0 {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}
