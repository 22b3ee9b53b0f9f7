package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	queue, err := NewRedisQueue(client, RedisQueueConfig{Queue: "test:jobs", BlockWait: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = queue.Close() })
	return queue, mr
}

func TestRedisQueuePublishAndConsume(t *testing.T) {
	queue, mr := newTestRedisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, queue.Publish(ctx, id))
	}
	length, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, length)
	assert.True(t, mr.Exists("test:jobs"))

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- queue.Consume(ctx, 2, func(_ context.Context, jobID string) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, jobID)
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	err = <-done
	assert.True(t, errors.Is(err, context.Canceled))

	mu.Lock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
	mu.Unlock()
}

func TestRedisQueueRequeuesOnHandlerError(t *testing.T) {
	queue, _ := newTestRedisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, queue.Publish(ctx, "flaky"))

	var mu sync.Mutex
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- queue.Consume(ctx, 1, func(_ context.Context, jobID string) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts == 1 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 2
	}, 3*time.Second, 20*time.Millisecond)
	cancel()
	<-done
}

func TestNewRedisQueueRequiresClient(t *testing.T) {
	_, err := NewRedisQueue(nil, RedisQueueConfig{})
	assert.Error(t, err)
}
