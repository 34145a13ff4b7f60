package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaSinkPublishesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, 4)

	ev := NewEvent(sampleBooking(), time.Now())
	require.NoError(t, sink.Send(context.Background(), ev))

	sink.Close()
	sink.WaitClosed()

	require.Len(t, w.msgs, 1)
	assert.True(t, w.closed)
	assert.Equal(t, ev.BookingID, string(w.msgs[0].Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.Equal(t, EventBookingConfirmed, env.EventType)
	assert.Equal(t, ev.BookingID, env.CorrelationID)

	var payload Event
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, int64(3000), payload.TotalCents)
}

func TestKafkaSinkSendHonoursContext(t *testing.T) {
	block := make(chan struct{})
	w := &blockingWriter{release: block}
	sink := newKafkaSink(w, 1)
	defer func() {
		close(block)
		sink.Close()
		sink.WaitClosed()
	}()

	ev := NewEvent(sampleBooking(), time.Now())
	// first message is taken by the loop and blocks, second fills the inbox
	require.NoError(t, sink.Send(context.Background(), ev))
	require.Eventually(t, func() bool { return w.started() }, time.Second, 5*time.Millisecond)
	require.NoError(t, sink.Send(context.Background(), ev))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sink.Send(ctx, ev), context.DeadlineExceeded)
}

type blockingWriter struct {
	release chan struct{}
	mu      sync.Mutex
	begun   bool
}

func (b *blockingWriter) WriteMessages(_ context.Context, _ ...kafka.Message) error {
	b.mu.Lock()
	b.begun = true
	b.mu.Unlock()
	<-b.release
	return nil
}

func (b *blockingWriter) Close() error { return nil }

func (b *blockingWriter) started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.begun
}

func TestKafkaSinkRejectsSendAfterClose(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, 4)
	sink.Close()
	sink.Close()
	sink.WaitClosed()

	err := sink.Send(context.Background(), NewEvent(sampleBooking(), time.Now()))
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.Empty(t, w.msgs)
	assert.True(t, w.closed)
}

type slowSink struct{ delay time.Duration }

func (s slowSink) Name() string { return "slow" }

func (s slowSink) Send(_ context.Context, _ Event) error {
	time.Sleep(s.delay)
	return nil
}

func TestKafkaSinkClosedWhileDispatcherStillDraining(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, 4)
	d := NewDispatcher(Options{QueueSize: 4, Timeout: time.Second}, slowSink{delay: 300 * time.Millisecond}, sink)
	d.Start()
	d.Notify(sampleBooking())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	sink.Close()
	sink.WaitClosed()

	// The worker reaches the closed sink after the slow one returns.
	select {
	case <-d.done:
	case <-time.After(3 * time.Second):
		t.Fatal("dispatcher worker did not finish")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.msgs)
}
