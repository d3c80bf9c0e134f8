package service

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

func fastCoordinatorConfig() ShutdownCoordinatorConfig {
	return ShutdownCoordinatorConfig{
		DrainTimeout: 200 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		HookTimeout:  time.Second,
	}
}

func TestShutdownCoordinator_Registry(t *testing.T) {
	t.Run("should track and release tasks", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		now := time.Now()
		c.Register(DatasetEmbeddingTask{ID: "b", DatasetID: 2, StartedAt: now.Add(time.Second)})
		c.Register(DatasetEmbeddingTask{ID: "a", DatasetID: 1, StartedAt: now})

		assert.Equal(t, 2, c.ActiveCount())
		tasks := c.ActiveTasks()
		require.Len(t, tasks, 2)
		assert.Equal(t, "a", tasks[0].ID)

		c.Unregister("a")
		c.Unregister("unknown")
		assert.Equal(t, 1, c.ActiveCount())
	})
}

func TestShutdownCoordinator_Trigger(t *testing.T) {
	c := NewShutdownCoordinator(fastCoordinatorConfig())
	assert.False(t, c.ShouldShutdown())

	c.Trigger()
	c.Trigger()

	assert.True(t, c.ShouldShutdown())
}

func TestShutdownCoordinator_Drain(t *testing.T) {
	t.Run("should return immediately with no tasks", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		assert.Equal(t, 0, c.Drain(context.Background()))
	})

	t.Run("should wait for tasks to unregister", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		c.Register(DatasetEmbeddingTask{ID: "t1", DatasetID: 1, StartedAt: time.Now()})
		go func() {
			time.Sleep(30 * time.Millisecond)
			c.Unregister("t1")
		}()

		assert.Equal(t, 0, c.Drain(context.Background()))
	})

	t.Run("should give up after the drain timeout", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		c.Register(DatasetEmbeddingTask{ID: "stuck", DatasetID: 1, StartedAt: time.Now()})

		started := time.Now()
		remaining := c.Drain(context.Background())

		assert.Equal(t, 1, remaining)
		assert.GreaterOrEqual(t, time.Since(started), 200*time.Millisecond)
	})

	t.Run("should stop waiting when the context ends", func(t *testing.T) {
		config := fastCoordinatorConfig()
		config.DrainTimeout = time.Minute
		c := NewShutdownCoordinator(config)
		c.Register(DatasetEmbeddingTask{ID: "stuck", DatasetID: 1, StartedAt: time.Now()})
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		assert.Equal(t, 1, c.Drain(ctx))
	})
}

func TestShutdownCoordinator_HandleSignal(t *testing.T) {
	t.Run("should set the flag, run hooks in reverse order and map exit codes", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		var order []string
		require.NoError(t, c.RegisterShutdownHook("first", func(context.Context) error {
			order = append(order, "first")
			return nil
		}))
		require.NoError(t, c.RegisterShutdownHook("second", func(context.Context) error {
			order = append(order, "second")
			return errors.New("ignored")
		}))

		code := c.HandleSignal(context.Background(), syscall.SIGINT)

		assert.Equal(t, ExitCodeInterrupt, code)
		assert.True(t, c.ShouldShutdown())
		assert.Equal(t, []string{"second", "first"}, order)
	})

	t.Run("should release connections only after running tasks record their outcome", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		f := newPipelineFixture(records("vm", 60), nil)
		f.config = PipelineConfig{BatchSize: 20, Workers: 1, ProgressEvery: 5}

		inBatch := make(chan struct{})
		listenerStopped := make(chan struct{})
		var calls atomic.Int64
		f.embedder.onCall = func() {
			if calls.Add(1) == 1 {
				close(inBatch)
				<-listenerStopped
			}
		}

		var order []string
		require.NoError(t, c.RegisterShutdownHook("http-server", func(context.Context) error {
			order = append(order, "http-server")
			close(listenerStopped)
			return nil
		}))
		require.NoError(t, c.RegisterReleaseHook("connections", func(context.Context) error {
			order = append(order, "connections")
			f.statuses.failWith(errors.New("closed pool"))
			return nil
		}))

		pipeline := NewBatchEmbeddingPipeline(
			f.inventory, f.statuses, nil, f.preparer, f.embedder, f.upserter, c, f.config,
		)
		c.Register(DatasetEmbeddingTask{ID: "run-12", DatasetID: 12, Kind: TaskKindEmbedding, StartedAt: time.Now()})
		go func() {
			defer c.Unregister("run-12")
			pipeline.Run(context.Background(), 12)
		}()
		<-inBatch

		code := c.HandleSignal(context.Background(), syscall.SIGTERM)

		assert.Equal(t, ExitCodeTerminate, code)
		assert.Equal(t, []string{"http-server", "connections"}, order)
		final := f.statuses.last(12)
		assert.Equal(t, valueobject.EmbeddingStatusInterrupted, final.Status)
		assert.NotNil(t, final.InterruptedAt)
		assert.Equal(t, 0, c.ActiveCount())
	})

	t.Run("should exit 0 on SIGTERM", func(t *testing.T) {
		c := NewShutdownCoordinator(fastCoordinatorConfig())
		assert.Equal(t, ExitCodeTerminate, c.HandleSignal(context.Background(), syscall.SIGTERM))
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 130, ExitCode(syscall.SIGINT))
	assert.Equal(t, 130, ExitCode(os.Interrupt))
	assert.Equal(t, 0, ExitCode(syscall.SIGTERM))
}

func TestShutdownCoordinator_RegisterShutdownHook(t *testing.T) {
	c := NewShutdownCoordinator(fastCoordinatorConfig())
	noop := func(context.Context) error { return nil }

	require.NoError(t, c.RegisterShutdownHook("http", noop))
	assert.Error(t, c.RegisterShutdownHook("http", noop))
	assert.Error(t, c.RegisterShutdownHook("", noop))
	assert.Error(t, c.RegisterShutdownHook("nil", nil))

	require.NoError(t, c.RegisterReleaseHook("http", noop), "release hooks are a separate list")
	assert.Error(t, c.RegisterReleaseHook("http", noop))
}

func TestShutdownCoordinator_Run(t *testing.T) {
	t.Run("should return without exiting when the context ends", func(t *testing.T) {
		exited := false
		c := NewShutdownCoordinator(fastCoordinatorConfig()).WithExitFunc(func(int) { exited = true })
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c.Run(ctx)

		assert.False(t, exited)
		assert.False(t, c.ShouldShutdown())
	})
}
