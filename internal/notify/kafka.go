package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var ErrSinkClosed = errors.New("kafka: sink closed")

// Envelope wraps every event published to Kafka.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// KafkaSink publishes booking events keyed by booking id. Writes go through
// an inbox drained by a single goroutine; Close flushes what is queued.
type KafkaSink struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewKafkaSink(brokers []string, topic string, buf int) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf)
}

func newKafkaSink(w messageWriter, buf int) *KafkaSink {
	if buf <= 0 {
		buf = 64
	}
	k := &KafkaSink{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     zap.L().Named("kafka"),
	}
	go k.loop()
	return k
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) loop() {
	defer close(k.closeCh)
	for m := range k.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := k.w.WriteMessages(ctx, m); err != nil {
			k.log.Error("kafka write failed", zap.String("key", string(m.Key)), zap.Error(err))
		}
		cancel()
	}
	if err := k.w.Close(); err != nil {
		k.log.Warn("kafka writer close", zap.Error(err))
	}
}

// Send queues the event. It fails when the sink is closed or the inbox stays
// full until ctx ends.
func (k *KafkaSink) Send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: encode payload: %w", err)
	}
	value, err := json.Marshal(Envelope{
		EventID:       ev.EventID,
		EventType:     ev.Type,
		EventVersion:  1,
		OccurredAt:    ev.Timestamp,
		Producer:      "pcbooking-api",
		CorrelationID: ev.BookingID,
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("kafka: encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.BookingID),
		Value: value,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrSinkClosed
	}
	select {
	case k.inbox <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kafka: enqueue: %w", ctx.Err())
	}
}

// Close flushes queued messages and closes the writer. Later sends get
// ErrSinkClosed. Calling it twice is safe.
func (k *KafkaSink) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	k.closed = true
	close(k.inbox)
}

// WaitClosed blocks until the flush started by Close has finished.
func (k *KafkaSink) WaitClosed() { <-k.closeCh }
