package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu   sync.Mutex
	keys []string
	msgs [][]byte
}

func (h *recordingHandler) HandleMessage(ctx context.Context, key string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, key)
	h.msgs = append(h.msgs, payload)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// fakeReader devuelve los mensajes en orden y luego bloquea hasta que se cancela ctx.
type fakeReader struct {
	msgs chan kafka.Message
	errs int
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.errs > 0 {
		r.errs--
		return kafka.Message{}, errors.New("broker hiccup")
	}
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Config() kafka.ReaderConfig {
	return kafka.ReaderConfig{Topic: "user-events", Brokers: []string{"fake:9092"}}
}

func TestConsumerAdapter_DeliversAndStops(t *testing.T) {
	reader := &fakeReader{msgs: make(chan kafka.Message, 2), errs: 1}
	reader.msgs <- kafka.Message{Key: []byte("k1"), Value: []byte(`{"a":1}`)}
	reader.msgs <- kafka.Message{Key: []byte("k2"), Value: []byte(`{"a":2}`)}

	handler := &recordingHandler{}
	ctx, cancel := context.WithCancel(context.Background())
	done := NewConsumerAdapter(reader, handler, zap.NewNop()).Start(ctx)

	assert.Eventually(t, func() bool { return handler.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []string{"k1", "k2"}, handler.keys)
}

type mockWriter struct{ mock.Mock }

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

type keyed struct {
	ID string `json:"id"`
}

func (k keyed) PartitionKey() string { return k.ID }

func TestKafkaPublisher_UsesPartitionKey(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Key) == "u-1" && string(msgs[0].Value) == `{"id":"u-1"}`
	})).Return(nil).Once()

	require.NoError(t, NewKafkaPublisher(w, zap.NewNop()).Publish(context.Background(), keyed{ID: "u-1"}))
	w.AssertExpectations(t)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("no leader"))

	err := NewKafkaPublisher(w, zap.NewNop()).Publish(context.Background(), keyed{ID: "x"})
	assert.Error(t, err)
}

func TestInMemoryEventBus(t *testing.T) {
	bus := NewInMemoryEventBus("user-events")
	handler := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Consume(ctx, bus.Subscribe(4), handler)

	require.NoError(t, bus.Publish(ctx, keyed{ID: "u-9"}))
	assert.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"id":"u-9"}`, string(handler.msgs[0]))
}
