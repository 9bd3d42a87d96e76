package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk-parser/platform/pkg/common/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEventWrapsEnvelope(t *testing.T) {
	writer := &fakeWriter{}
	producer := newProducer(writer, "parser-requests", "api-service")
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	producer.now = func() time.Time { return stamp }

	err := producer.PublishEvent(context.Background(), "parser_request.created", "42", map[string]interface{}{
		"parser_request_id": 42,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event-type", Value: []byte("parser_request.created")},
		{Key: "source", Value: []byte("api-service")},
	}, msg.Headers)

	var event models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "parser_request.created", event.Type)
	assert.Equal(t, "api-service", event.Source)
	assert.Equal(t, stamp, event.Timestamp)
	assert.Equal(t, float64(42), event.Data["parser_request_id"])
}

func TestPublishEventDefaultsKeyToEventID(t *testing.T) {
	writer := &fakeWriter{}
	producer := newProducer(writer, "t", "s")

	require.NoError(t, producer.PublishEvent(context.Background(), "x", "", nil))
	require.Len(t, writer.messages, 1)

	var event models.Event
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &event))
	assert.Equal(t, event.ID, string(writer.messages[0].Key))
}

func TestPublishEventWriteFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("leader not available")}
	producer := newProducer(writer, "parser-requests", "api-service")

	err := producer.PublishEvent(context.Background(), "parser_request.created", "1", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPublishEventMarshalFailure(t *testing.T) {
	producer := newProducer(&fakeWriter{}, "t", "s")

	err := producer.PublishEvent(context.Background(), "x", "k", map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal event")
}

func TestCloseClosesWriter(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, newProducer(writer, "t", "s").Close())
	assert.True(t, writer.closed)
}
