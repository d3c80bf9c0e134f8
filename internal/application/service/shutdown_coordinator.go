package service

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/let-userName-Brian/exempla-ai/internal/application/common/slogger"
)

// TaskKindEmbedding is the only task kind the coordinator tracks today.
const TaskKindEmbedding = "embedding"

// Exit codes used when the process ends after a shutdown signal.
const (
	ExitCodeInterrupt = 130
	ExitCodeTerminate = 0
)

// DatasetEmbeddingTask is an in-flight embedding run tracked for draining.
type DatasetEmbeddingTask struct {
	ID        string    `json:"id"`
	DatasetID int64     `json:"dataset_id"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
}

// ShutdownHookFunc releases a resource during shutdown, e.g. stops the HTTP listener.
type ShutdownHookFunc func(ctx context.Context) error

// ShutdownCoordinatorConfig holds drain timing and the signals to intercept.
type ShutdownCoordinatorConfig struct {
	DrainTimeout time.Duration
	PollInterval time.Duration
	HookTimeout  time.Duration
	Signals      []os.Signal
}

// DefaultShutdownCoordinatorConfig returns a 30s drain polled every second.
func DefaultShutdownCoordinatorConfig() ShutdownCoordinatorConfig {
	return ShutdownCoordinatorConfig{
		DrainTimeout: 30 * time.Second,
		PollInterval: time.Second,
		HookTimeout:  10 * time.Second,
		Signals:      []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

type shutdownHookInfo struct {
	name string
	hook ShutdownHookFunc
}

// ShutdownCoordinator owns the process-wide shutdown flag and the registry of
// active embedding tasks. Cancellation is cooperative: workers poll
// ShouldShutdown at their checkpoints.
type ShutdownCoordinator struct {
	config       ShutdownCoordinatorConfig
	shuttingDown atomic.Bool

	mu       sync.Mutex
	tasks    map[string]DatasetEmbeddingTask
	hooks    []shutdownHookInfo
	releases []shutdownHookInfo

	exit    func(code int)
	metrics *PipelineMetrics
}

// NewShutdownCoordinator creates a coordinator that exits the process with os.Exit.
func NewShutdownCoordinator(config ShutdownCoordinatorConfig) *ShutdownCoordinator {
	defaults := DefaultShutdownCoordinatorConfig()
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.HookTimeout <= 0 {
		config.HookTimeout = defaults.HookTimeout
	}
	if len(config.Signals) == 0 {
		config.Signals = defaults.Signals
	}
	return &ShutdownCoordinator{
		config: config,
		tasks:  make(map[string]DatasetEmbeddingTask),
		exit:   os.Exit,
	}
}

// WithExitFunc replaces os.Exit, mainly for tests.
func (c *ShutdownCoordinator) WithExitFunc(exit func(code int)) *ShutdownCoordinator {
	if exit != nil {
		c.exit = exit
	}
	return c
}

// WithMetrics records active task counts on metrics.
func (c *ShutdownCoordinator) WithMetrics(metrics *PipelineMetrics) *ShutdownCoordinator {
	c.metrics = metrics
	return c
}

// Register adds a task to the active registry.
func (c *ShutdownCoordinator) Register(task DatasetEmbeddingTask) {
	c.mu.Lock()
	c.tasks[task.ID] = task
	count := len(c.tasks)
	c.mu.Unlock()

	c.metrics.RecordActiveTasks(context.Background(), count)
	slogger.InfoNoCtx("Registered embedding task", slogger.Fields{
		"task_id":      task.ID,
		"dataset_id":   task.DatasetID,
		"active_tasks": count,
	})
}

// Unregister removes a task; unknown ids are ignored.
func (c *ShutdownCoordinator) Unregister(taskID string) {
	c.mu.Lock()
	_, ok := c.tasks[taskID]
	delete(c.tasks, taskID)
	count := len(c.tasks)
	c.mu.Unlock()

	if !ok {
		return
	}
	c.metrics.RecordActiveTasks(context.Background(), count)
	slogger.InfoNoCtx("Unregistered embedding task", slogger.Fields{
		"task_id":      taskID,
		"active_tasks": count,
	})
}

// ActiveCount returns the number of registered tasks.
func (c *ShutdownCoordinator) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// ActiveTasks returns a snapshot of the registry ordered by start time.
func (c *ShutdownCoordinator) ActiveTasks() []DatasetEmbeddingTask {
	c.mu.Lock()
	tasks := make([]DatasetEmbeddingTask, 0, len(c.tasks))
	for _, task := range c.tasks {
		tasks = append(tasks, task)
	}
	c.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].StartedAt.Before(tasks[j].StartedAt) })
	return tasks
}

// ShouldShutdown reports whether a shutdown signal has been received.
func (c *ShutdownCoordinator) ShouldShutdown() bool {
	return c.shuttingDown.Load()
}

// Trigger sets the shutdown flag. It is idempotent.
func (c *ShutdownCoordinator) Trigger() {
	if c.shuttingDown.CompareAndSwap(false, true) {
		slogger.WarnNoCtx("Shutdown requested, embedding workers will stop at their next checkpoint", slogger.Fields{
			"active_tasks": c.ActiveCount(),
		})
	}
}

// RegisterShutdownHook adds a hook run after the flag is set and before draining,
// e.g. stopping the HTTP listener. Hooks run in reverse registration order.
func (c *ShutdownCoordinator) RegisterShutdownHook(name string, hook ShutdownHookFunc) error {
	return c.addHook(&c.hooks, name, hook)
}

// RegisterReleaseHook adds a hook run once draining has finished. Resources
// that draining tasks still write through (database pool, NATS) belong here.
// Release hooks run in reverse registration order.
func (c *ShutdownCoordinator) RegisterReleaseHook(name string, hook ShutdownHookFunc) error {
	return c.addHook(&c.releases, name, hook)
}

func (c *ShutdownCoordinator) addHook(list *[]shutdownHookInfo, name string, hook ShutdownHookFunc) error {
	if name == "" {
		return errors.New("hook name cannot be empty")
	}
	if hook == nil {
		return errors.New("hook function cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range *list {
		if existing.name == name {
			return errors.New("hook already registered")
		}
	}
	*list = append(*list, shutdownHookInfo{name: name, hook: hook})
	return nil
}

// Drain waits until no tasks remain, the drain timeout elapses, or ctx ends,
// polling once per poll interval. It returns the number of tasks still active.
func (c *ShutdownCoordinator) Drain(ctx context.Context) int {
	deadline := time.Now().Add(c.config.DrainTimeout)
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		remaining := c.ActiveCount()
		if remaining == 0 {
			slogger.Info(ctx, "All embedding tasks drained", nil)
			return 0
		}
		if !time.Now().Before(deadline) {
			c.logAbandoned(ctx)
			return remaining
		}

		slogger.Info(ctx, "Waiting for embedding tasks to finish", slogger.Fields{
			"active_tasks":   remaining,
			"time_remaining": time.Until(deadline).Round(time.Second).String(),
		})

		select {
		case <-ctx.Done():
			return c.ActiveCount()
		case <-ticker.C:
		}
	}
}

func (c *ShutdownCoordinator) logAbandoned(ctx context.Context) {
	for _, task := range c.ActiveTasks() {
		slogger.Warn(ctx, "Drain timeout reached with task still running", slogger.Fields{
			"task_id":     task.ID,
			"dataset_id":  task.DatasetID,
			"running_for": time.Since(task.StartedAt).Round(time.Second).String(),
		})
	}
}

// ExitCode maps the received signal to the process exit code.
func ExitCode(sig os.Signal) int {
	if sig == syscall.SIGINT || sig == os.Interrupt {
		return ExitCodeInterrupt
	}
	return ExitCodeTerminate
}

// HandleSignal performs the shutdown sequence for sig and returns the exit code:
// set the flag, run shutdown hooks, drain, then run release hooks.
func (c *ShutdownCoordinator) HandleSignal(ctx context.Context, sig os.Signal) int {
	slogger.Warn(ctx, "Shutdown signal received", slogger.Fields{
		"signal":       sig.String(),
		"active_tasks": c.ActiveCount(),
	})
	c.Trigger()
	c.runHooks(ctx, c.snapshotHooks(&c.hooks))

	remaining := c.Drain(ctx)
	c.runHooks(ctx, c.snapshotHooks(&c.releases))
	code := ExitCode(sig)
	slogger.Info(ctx, "Shutdown complete", slogger.Fields{
		"signal":          sig.String(),
		"abandoned_tasks": remaining,
		"exit_code":       code,
	})
	return code
}

func (c *ShutdownCoordinator) snapshotHooks(list *[]shutdownHookInfo) []shutdownHookInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	hooks := make([]shutdownHookInfo, len(*list))
	copy(hooks, *list)
	return hooks
}

func (c *ShutdownCoordinator) runHooks(ctx context.Context, hooks []shutdownHookInfo) {
	for i := len(hooks) - 1; i >= 0; i-- {
		hookCtx, cancel := context.WithTimeout(ctx, c.config.HookTimeout)
		if err := hooks[i].hook(hookCtx); err != nil {
			slogger.ErrorWithError(ctx, err, "Shutdown hook failed", slogger.Field("hook", hooks[i].name))
		}
		cancel()
	}
}

// Run intercepts the configured signals until ctx ends. On the first signal it
// runs HandleSignal and exits the process. A second signal during the drain
// falls through to the runtime's default handling.
func (c *ShutdownCoordinator) Run(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, c.config.Signals...)

	select {
	case <-ctx.Done():
		signal.Stop(signals)
		return
	case sig := <-signals:
		signal.Stop(signals)
		c.exit(c.HandleSignal(context.WithoutCancel(ctx), sig))
	}
}
