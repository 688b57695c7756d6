package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/handlers"
	"github.com/forgebot/forgebot/internal/metrics"
)

const scriptedKind handlers.Kind = "scripted"

// script feeds one outcome per run to the scripted handler, shared
// across handler instances because the registry builds a fresh one for
// every attempt.
type script struct {
	mu       sync.Mutex
	outcomes []handlers.Outcome
	runs     int
}

func (s *script) next() handlers.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.runs
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	s.runs++
	return s.outcomes[i]
}

func (s *script) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

type scriptedHandler struct{ s *script }

func (h *scriptedHandler) PreCheck(handlers.Task) bool { return true }
func (h *scriptedHandler) Run(context.Context, handlers.Task) handlers.Outcome {
	return h.s.next()
}

type recordedResult struct {
	task    handlers.Task
	outcome handlers.Outcome
}

type fakeRecorder struct {
	ch chan recordedResult
}

func (f *fakeRecorder) SaveTaskResult(_ context.Context, task handlers.Task, outcome handlers.Outcome) error {
	f.ch <- recordedResult{task: task, outcome: outcome}
	return nil
}

func newTestQueue(t *testing.T, s *script, workers, size int) (*Queue, *fakeRecorder) {
	t.Helper()
	registry := handlers.NewRegistry(handlers.Registration{
		Kind:   scriptedKind,
		Events: []events.TriggerKind{events.TriggerPush},
		New:    func(handlers.Deps) handlers.Handler { return &scriptedHandler{s: s} },
	})
	recorder := &fakeRecorder{ch: make(chan recordedResult, 8)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := New(workers, size, registry, handlers.Deps{Logger: logger}, recorder, metrics.New(), logger)
	return q, recorder
}

func testTask(maxAttempts int) handlers.Task {
	return handlers.Task{
		Handler:     scriptedKind,
		Event:       events.NewPush("https://github.com/acme/pkg", "main", "alice", "abc").Snapshot(),
		MaxAttempts: maxAttempts,
	}
}

func waitForResult(t *testing.T, recorder *fakeRecorder) recordedResult {
	t.Helper()
	select {
	case r := <-recorder.ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no task result recorded in time")
		return recordedResult{}
	}
}

func TestQueue_RunsAndRecordsSuccess(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{{Success: true, Message: "done"}}}
	q, recorder := newTestQueue(t, s, 1, 8)
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Submit(testTask(3)))

	result := waitForResult(t, recorder)
	assert.True(t, result.outcome.Success)
	assert.Equal(t, "done", result.outcome.Message)
	assert.Equal(t, 1, s.runCount())
}

func TestQueue_RetriesWithRequestedDelay(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{
		{Retry: &handlers.RetryRequest{Delay: 5 * time.Millisecond}},
		{Success: true},
	}}
	q, recorder := newTestQueue(t, s, 1, 8)
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Submit(testTask(3)))

	result := waitForResult(t, recorder)
	assert.True(t, result.outcome.Success)
	assert.Equal(t, 1, result.task.Attempt, "the recorded task carries the retry attempt")
	assert.Equal(t, 2, s.runCount())
}

func TestQueue_RetryIgnoredOnLastAttempt(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{
		{Message: "still failing", Retry: &handlers.RetryRequest{Delay: time.Millisecond}},
	}}
	q, recorder := newTestQueue(t, s, 1, 8)
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Submit(testTask(1)))

	result := waitForResult(t, recorder)
	assert.False(t, result.outcome.Success)
	assert.Equal(t, 1, s.runCount(), "a single-attempt task never retries")
}

func TestQueue_SubmitFullQueue(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{{Success: true}}}
	q, _ := newTestQueue(t, s, 1, 1)
	// workers not started: the channel fills up

	require.NoError(t, q.Submit(testTask(1)))
	assert.ErrorIs(t, q.Submit(testTask(1)), ErrQueueFull)
}

func TestQueue_SubmitAfterStop(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{{Success: true}}}
	q, _ := newTestQueue(t, s, 1, 8)
	q.Start(context.Background())
	q.Stop()

	assert.ErrorIs(t, q.Submit(testTask(1)), ErrStopped)
}

func TestQueue_StopIsIdempotent(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{{Success: true}}}
	q, _ := newTestQueue(t, s, 2, 8)
	q.Start(context.Background())
	q.Stop()
	q.Stop()
}

func TestQueue_RunNowCompressesBackoff(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{
		{Retry: &handlers.RetryRequest{Delay: time.Hour}},
		{Retry: &handlers.RetryRequest{Delay: time.Hour}},
		{Success: true},
	}}
	q, recorder := newTestQueue(t, s, 1, 8)

	start := time.Now()
	outcome := q.RunNow(context.Background(), testTask(5))

	assert.True(t, outcome.Success)
	assert.Equal(t, 3, s.runCount())
	assert.Less(t, time.Since(start), time.Second, "requested delays are skipped")

	result := waitForResult(t, recorder)
	assert.True(t, result.outcome.Success)
}

func TestQueue_RunNowStopsAtMaxAttempts(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{
		{Message: "failing", Retry: &handlers.RetryRequest{}},
	}}
	q, _ := newTestQueue(t, s, 1, 8)

	outcome := q.RunNow(context.Background(), testTask(3))

	assert.False(t, outcome.Success)
	assert.Equal(t, 3, s.runCount())
}

func TestDefaultBackoff(t *testing.T) {
	assert.Equal(t, time.Minute, defaultBackoff(0))
	assert.Equal(t, 2*time.Minute, defaultBackoff(1))
	assert.Equal(t, 4*time.Minute, defaultBackoff(2))
}

func TestQueue_SubmitRacingStopDoesNotPanic(t *testing.T) {
	s := &script{outcomes: []handlers.Outcome{{Success: true}}}
	q, recorder := newTestQueue(t, s, 2, 4)
	q.Start(context.Background())

	// keep workers from blocking on the recorder channel
	go func() {
		for range recorder.ch {
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := q.Submit(testTask(1)); errors.Is(err, ErrStopped) {
				return
			}
		}
	}()

	q.Stop()
	wg.Wait()

	assert.ErrorIs(t, q.Submit(testTask(1)), ErrStopped)
}
