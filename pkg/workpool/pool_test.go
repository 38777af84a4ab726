package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunAllTasksComplete(t *testing.T) {
	pool := New(2, zap.NewNop())
	tasks := []Task[int]{
		{ID: "a", Run: func(context.Context) (int, error) { return 1, nil }},
		{ID: "b", Run: func(context.Context) (int, error) { return 2, nil }},
		{ID: "c", Run: func(context.Context) (int, error) { return 0, errors.New("boom") }},
	}

	results := Collect(Run(context.Background(), pool, tasks))
	require.Len(t, results, 3)

	byID := make(map[string]Result[int])
	for _, r := range results {
		byID[r.ID] = r
	}
	assert.Equal(t, 1, byID["a"].Value)
	assert.Equal(t, 2, byID["b"].Value)
	assert.Error(t, byID["c"].Err)
}

func TestRunBoundsConcurrency(t *testing.T) {
	pool := New(2, zap.NewNop())

	var running, peak atomic.Int32
	task := func(context.Context) (struct{}, error) {
		cur := running.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	}

	var tasks []Task[struct{}]
	for i := 0; i < 6; i++ {
		tasks = append(tasks, Task[struct{}]{ID: "t", Run: task})
	}
	Collect(Run(context.Background(), pool, tasks))

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunAbandonedReaderDoesNotBlockTasks(t *testing.T) {
	pool := New(4, zap.NewNop())

	var finished atomic.Int32
	var tasks []Task[int]
	for i := 0; i < 4; i++ {
		tasks = append(tasks, Task[int]{ID: "t", Run: func(context.Context) (int, error) {
			defer finished.Add(1)
			time.Sleep(20 * time.Millisecond)
			return 0, nil
		}})
	}

	results := Run(context.Background(), pool, tasks)
	<-results // read one result, then walk away

	require.Eventually(t, func() bool { return finished.Load() == 4 },
		time.Second, 5*time.Millisecond,
		"in-flight tasks must finish even when nobody reads their results")
}

func TestRunEmpty(t *testing.T) {
	pool := New(2, zap.NewNop())
	results := Collect(Run[int](context.Background(), pool, nil))
	assert.Empty(t, results)
}

func TestRunCanceledContext(t *testing.T) {
	pool := New(1, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task[int]{
		{ID: "a", Run: func(ctx context.Context) (int, error) {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(time.Second):
				return 1, nil
			}
		}},
	}
	results := Collect(Run(ctx, pool, tasks))
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}
