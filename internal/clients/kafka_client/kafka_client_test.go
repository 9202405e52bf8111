package kafka_client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	calls      []string
	produced   []*kafka.Message
	produceErr error
	commitErr  error
	flushed    bool
	closed     bool
}

func (f *fakeProducer) BeginTransaction() error {
	f.calls = append(f.calls, "begin")
	return nil
}

func (f *fakeProducer) Produce(msg *kafka.Message, _ chan kafka.Event) error {
	f.calls = append(f.calls, "produce")
	if f.produceErr != nil {
		return f.produceErr
	}
	f.produced = append(f.produced, msg)
	return nil
}

func (f *fakeProducer) CommitTransaction(context.Context) error {
	f.calls = append(f.calls, "commit")
	return f.commitErr
}

func (f *fakeProducer) AbortTransaction(context.Context) error {
	f.calls = append(f.calls, "abort")
	return nil
}

func (f *fakeProducer) Flush(int) int {
	f.flushed = true
	return 0
}

func (f *fakeProducer) Close() { f.closed = true }

func TestProducer_Publish(t *testing.T) {
	t.Run("publishes inside a transaction keyed by id", func(t *testing.T) {
		fp := &fakeProducer{}
		transport := NewRequestTransport(NewProducerFrom(fp), KAFKA_TOPIC_NLP_REQUESTS)

		req := models.Request{ID: "req-1", Task: models.TaskEmotion, Text: "hello"}
		require.NoError(t, transport.Send(context.Background(), req))

		assert.Equal(t, []string{"begin", "produce", "commit"}, fp.calls)
		require.Len(t, fp.produced, 1)
		msg := fp.produced[0]
		assert.Equal(t, KAFKA_TOPIC_NLP_REQUESTS, *msg.TopicPartition.Topic)
		assert.Equal(t, "req-1", string(msg.Key))

		var got models.Request
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, req, got)
	})

	t.Run("aborts when produce keeps failing", func(t *testing.T) {
		fp := &fakeProducer{produceErr: errors.New("queue full")}
		err := NewProducerFrom(fp).Publish(context.Background(), "t", "k", "v")

		require.Error(t, err)
		assert.Equal(t, []string{"begin", "produce", "produce", "produce", "abort"}, fp.calls)
	})

	t.Run("aborts when commit keeps failing", func(t *testing.T) {
		fp := &fakeProducer{commitErr: errors.New("fenced")}
		err := NewProducerFrom(fp).Publish(context.Background(), "t", "k", "v")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "fenced")
		assert.Equal(t, "abort", fp.calls[len(fp.calls)-1])
	})

	t.Run("close flushes", func(t *testing.T) {
		fp := &fakeProducer{}
		NewProducerFrom(fp).Close()
		assert.True(t, fp.flushed)
		assert.True(t, fp.closed)
	})
}

type scriptedReader struct {
	results []readResult
	calls   int
}

type readResult struct {
	msg *kafka.Message
	err error
}

func (r *scriptedReader) ReadMessage(time.Duration) (*kafka.Message, error) {
	r.calls++
	if len(r.results) == 0 {
		return nil, kafka.NewError(kafka.ErrTimedOut, "timed out", false)
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func TestKafkaMessageIterator_Next(t *testing.T) {
	msg := &kafka.Message{Value: []byte("x")}

	t.Run("poll timeouts and transient errors are retried", func(t *testing.T) {
		reader := &scriptedReader{results: []readResult{
			{err: kafka.NewError(kafka.ErrTimedOut, "timed out", false)},
			{err: errors.New("transient")},
			{msg: msg},
		}}
		it := NewKafkaMessageIterator(context.Background(), reader)
		it.retryDelay = 0

		got, err := it.Next()
		require.NoError(t, err)
		assert.Same(t, msg, got)
		assert.Equal(t, 3, reader.calls)
	})

	t.Run("all brokers down aborts", func(t *testing.T) {
		reader := &scriptedReader{results: []readResult{
			{err: kafka.NewError(kafka.ErrAllBrokersDown, "down", false)},
		}}
		_, err := NewKafkaMessageIterator(context.Background(), reader).Next()
		require.Error(t, err)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var results []readResult
		for i := 0; i < MAX_RETRIES; i++ {
			results = append(results, readResult{err: errors.New("broken")})
		}
		it := NewKafkaMessageIterator(context.Background(), &scriptedReader{results: results})
		it.retryDelay = 0

		_, err := it.Next()
		require.Error(t, err)
	})

	t.Run("cancelled context stops polling", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewKafkaMessageIterator(ctx, &scriptedReader{}).Next()
		assert.ErrorIs(t, err, context.Canceled)
	})
}

type flakyCommitter struct {
	failures int
	calls    int
}

func (c *flakyCommitter) CommitMessage(msg *kafka.Message) ([]kafka.TopicPartition, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, errors.New("rebalance in progress")
	}
	return []kafka.TopicPartition{msg.TopicPartition}, nil
}

func TestCommitHandler_Commit(t *testing.T) {
	topic := KAFKA_TOPIC_NLP_RESPONSES
	msg := &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: 7}}

	c := &flakyCommitter{failures: 2}
	h := NewCommitHandler(context.Background(), c)
	h.retryDelay = 0
	require.NoError(t, h.Commit(msg))
	assert.Equal(t, 3, c.calls)

	c = &flakyCommitter{failures: MAX_RETRIES}
	h = NewCommitHandler(context.Background(), c)
	h.retryDelay = 0
	assert.Error(t, h.Commit(msg))
	assert.Equal(t, MAX_RETRIES, c.calls)
}

func TestGetKafkaConfig(t *testing.T) {
	t.Setenv("KAFKA_BROKER", "kafka:9092")
	t.Setenv("KAFKA_CONSUMER_GROUP_ID", "workers")

	cfg := GetKafkaConfig()
	assert.Equal(t, "kafka:9092", cfg.Broker)
	assert.Equal(t, KAFKA_TOPIC_NLP_REQUESTS, cfg.RequestTopic)
	assert.Equal(t, KAFKA_TOPIC_NLP_RESPONSES, cfg.ResponseTopic)
	assert.NotEqual(t, cfg.ResponseGroupID(), cfg.ResponseGroupID())
	assert.Contains(t, cfg.ResponseGroupID(), "workers-gateway-")
}
