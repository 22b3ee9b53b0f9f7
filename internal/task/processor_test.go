package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScriptPilot/internal/agent"
	xerrors "ScriptPilot/internal/errors"
	"ScriptPilot/internal/observability/alerting"
)

type executorFunc func(ctx context.Context, req agent.MessageRequest) (*agent.MessageResult, error)

func (f executorFunc) ProcessMessage(ctx context.Context, req agent.MessageRequest) (*agent.MessageResult, error) {
	return f(ctx, req)
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []alerting.Event
}

func (r *recordingDispatcher) Notify(_ context.Context, event alerting.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingDispatcher) snapshot() []alerting.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alerting.Event(nil), r.events...)
}

// runProcessor 启动处理器并在测试结束时停止。
func runProcessor(t *testing.T, executor Executor, maxRetries int, opts ...ProcessorOption) (*Service, *MemoryStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemoryStore()
	queue := NewMemoryQueue(1024)
	service := NewService(store, queue, maxRetries)
	processor := NewProcessor(executor, store, queue, queue, opts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("processor exited: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return service, store
}

func waitForJob(t *testing.T, service *Service, id string) *Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := service.WaitUntilCompleted(ctx, id, 10*time.Millisecond)
	require.NoError(t, err)
	return job
}

func TestProcessorHandlesConcurrentJobs(t *testing.T) {
	var processed atomic.Int32
	executor := executorFunc(func(ctx context.Context, req agent.MessageRequest) (*agent.MessageResult, error) {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		processed.Add(1)
		return &agent.MessageResult{Type: agent.ResultConversation, Message: "ok: " + req.Text}, nil
	})
	service, _ := runProcessor(t, executor, 3, WithWorkerCount(8))

	total := 100
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		job, err := service.Submit(context.Background(), agent.MessageRequest{Text: fmt.Sprintf("message-%d", i)})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	for _, id := range ids {
		job := waitForJob(t, service, id)
		assert.Equal(t, StatusSucceeded, job.Status)
	}
	assert.EqualValues(t, total, processed.Load())

	stats, err := service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, total, stats.Succeeded)
}

func TestProcessorRetriesRetryableErrorResults(t *testing.T) {
	var calls atomic.Int32
	executor := executorFunc(func(ctx context.Context, req agent.MessageRequest) (*agent.MessageResult, error) {
		if calls.Add(1) == 1 {
			return &agent.MessageResult{Type: agent.ResultError, Error: "slow", ErrorCode: xerrors.CodeTimeout}, nil
		}
		return &agent.MessageResult{Type: agent.ResultConversation, Message: "hi"}, nil
	})
	alerts := &recordingDispatcher{}
	service, _ := runProcessor(t, executor, 3, WithAlertDispatcher(alerts))

	job, err := service.Submit(context.Background(), agent.MessageRequest{Text: "hello"})
	require.NoError(t, err)

	done := waitForJob(t, service, job.ID)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, 2, done.Attempts)
	require.NotNil(t, done.Result)
	assert.Equal(t, "hi", done.Result.Message)
}

func TestProcessorStopsOnNonRetryableError(t *testing.T) {
	var calls atomic.Int32
	executor := executorFunc(func(ctx context.Context, req agent.MessageRequest) (*agent.MessageResult, error) {
		calls.Add(1)
		return &agent.MessageResult{Type: agent.ResultError, Error: "nope", ErrorCode: xerrors.CodeUnsupportedPlatform}, nil
	})
	alerts := &recordingDispatcher{}
	service, _ := runProcessor(t, executor, 3, WithAlertDispatcher(alerts))

	job, err := service.Submit(context.Background(), agent.MessageRequest{Text: "write a cobol script", Platform: "cobol"})
	require.NoError(t, err)

	done := waitForJob(t, service, job.ID)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, string(xerrors.CodeUnsupportedPlatform), done.ErrorCode)
	assert.EqualValues(t, 1, calls.Load())

	events := alerts.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, "terminal", events[0].Metadata["stage"])
}

func TestProcessorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	executor := executorFunc(func(ctx context.Context, req agent.MessageRequest) (*agent.MessageResult, error) {
		calls.Add(1)
		return &agent.MessageResult{Type: agent.ResultError, Error: "down", ErrorCode: xerrors.CodeUpstreamFailure}, nil
	})
	alerts := &recordingDispatcher{}
	service, _ := runProcessor(t, executor, 2, WithAlertDispatcher(alerts))

	job, err := service.Submit(context.Background(), agent.MessageRequest{Text: "hello"})
	require.NoError(t, err)

	done := waitForJob(t, service, job.ID)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, 2, done.Attempts)
	assert.EqualValues(t, 2, calls.Load())

	events := alerts.snapshot()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, xerrors.CodeRetriesExhausted, last.Code)
	assert.Equal(t, job.ID, last.JobID)
}

func TestServiceSubmitValidation(t *testing.T) {
	service := NewService(NewMemoryStore(), NewMemoryQueue(1), 0)

	_, err := service.Submit(context.Background(), agent.MessageRequest{Text: "  "})
	assert.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))
}

func TestServiceSubmitWithIDIsIdempotent(t *testing.T) {
	queue := NewMemoryQueue(4)
	service := NewService(NewMemoryStore(), queue, 1)
	ctx := context.Background()

	first, err := service.SubmitWithID(ctx, "job-1", agent.MessageRequest{Text: "hello"})
	require.NoError(t, err)
	second, err := service.SubmitWithID(ctx, "job-1", agent.MessageRequest{Text: "other"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hello", second.Request.Text)
	assert.Len(t, queue.ch, 1)
}

func TestServiceSubmitPublishFailure(t *testing.T) {
	store := NewMemoryStore()
	queue := NewMemoryQueue(1)
	require.NoError(t, queue.Close())
	service := NewService(store, queue, 1)

	_, err := service.SubmitWithID(context.Background(), "job-1", agent.MessageRequest{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeQueueFailure, xerrors.CodeOf(err))

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
}
