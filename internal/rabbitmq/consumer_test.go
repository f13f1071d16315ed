package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerMessage_HandleMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(ctx, testConfig(amqpURI), newNoopLogger())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	require.NoError(t, err)

	queueName := "consumer-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	received := make([]string, 0)
	var mu sync.Mutex

	handler := func(body []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, string(body))
		wg.Done()
		return nil
	}
	require.NoError(t, ConsumerMessage(ctx, ch, queueName, newNoopLogger(), handler))

	for _, msg := range []string{"hello", "world"} {
		err := ch.Publish("", queueName, false, false, amqp.Publishing{ContentType: "text/plain", Body: []byte(msg)})
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for messages to be processed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"hello", "world"}, received)
}

func TestConsumerMessage_FailedMessageRetriedOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	amqpURI, cleanup := amqpURIForTest(ctx, t)
	defer cleanup()

	conn, err := Connect(ctx, testConfig(amqpURI), newNoopLogger())
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	require.NoError(t, err)

	queueName := "nack-test"
	_, err = ch.QueueDeclare(queueName, false, false, false, false, nil)
	require.NoError(t, err)

	var attempts atomic.Int32
	handler := func(_ []byte) error {
		attempts.Add(1)
		return errors.New("fail")
	}
	require.NoError(t, ConsumerMessage(ctx, ch, queueName, newNoopLogger(), handler))

	err = ch.Publish("", queueName, false, false, amqp.Publishing{ContentType: "text/plain", Body: []byte("bad")})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return attempts.Load() == 2 }, 10*time.Second, 50*time.Millisecond)
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(2), attempts.Load())
}
