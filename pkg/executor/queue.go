package executor

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/packhouse/packhouse/pkg/observability"
)

// ErrClosed is returned by Execute after the queue executor shut down.
var ErrClosed = errors.New("executor closed")

// LogExecutor records action lists to a logger and performs no work.
// Used as the default executor in the CLI and in dry runs.
type LogExecutor struct {
	Logger *log.Logger
}

// NewLogExecutor creates a logging executor. A nil logger discards.
func NewLogExecutor(logger *log.Logger) *LogExecutor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &LogExecutor{Logger: logger}
}

// Execute logs each action and returns.
func (e *LogExecutor) Execute(ctx context.Context, list *ActionList) error {
	e.Logger.Info("action list accepted",
		"id", list.ID, "ref", list.RefID, "user", list.UserID, "actions", len(list.Actions))
	for _, a := range list.Actions {
		e.Logger.Info("pending action",
			"pack", a.Pack, "action", a.Action,
			"from", a.CurrentVersion, "to", a.TargetVersion, "pages", len(a.Pages))
	}
	return nil
}

// QueueExecutor runs action lists asynchronously on a single worker
// goroutine, driving an Applier per action with bounded retry. Execute
// returns as soon as the list is enqueued; per-action failures are
// logged, not surfaced, matching the contract that the installer is a
// retryable collaborator outside the engine's concurrency model.
type QueueExecutor struct {
	applier Applier
	logger  *log.Logger

	jobs chan *ActionList
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewQueueExecutor starts the worker goroutine. Buffer bounds how many
// accepted lists may be pending; a non-positive buffer defaults to 16.
func NewQueueExecutor(applier Applier, logger *log.Logger, buffer int) *QueueExecutor {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if buffer <= 0 {
		buffer = 16
	}

	e := &QueueExecutor{
		applier: applier,
		logger:  logger,
		jobs:    make(chan *ActionList, buffer),
	}
	e.wg.Add(1)
	go e.worker()
	return e
}

// Execute enqueues a list for asynchronous processing.
func (e *QueueExecutor) Execute(ctx context.Context, list *ActionList) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	select {
	case e.jobs <- list:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lists and waits for pending work to finish.
func (e *QueueExecutor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.jobs)
	e.wg.Wait()
	return nil
}

func (e *QueueExecutor) worker() {
	defer e.wg.Done()
	for list := range e.jobs {
		e.process(list)
	}
}

func (e *QueueExecutor) process(list *ActionList) {
	ctx := context.Background()
	e.logger.Info("executing action list", "id", list.ID, "actions", len(list.Actions))

	for _, action := range list.Actions {
		a := action
		start := time.Now()
		observability.Executor().OnActionStart(ctx, a.Pack, string(a.Action))
		err := RetryWithBackoff(ctx, func() error {
			return e.applier.ApplyAction(ctx, list, a)
		})
		observability.Executor().OnActionComplete(ctx, a.Pack, string(a.Action), time.Since(start), err)
		if err != nil {
			e.logger.Error("action failed",
				"id", list.ID, "pack", a.Pack, "action", a.Action, "err", err)
			continue
		}
		e.logger.Debug("action applied", "id", list.ID, "pack", a.Pack, "action", a.Action)
	}
}

// Ensure both executors implement Executor.
var (
	_ Executor = (*LogExecutor)(nil)
	_ Executor = (*QueueExecutor)(nil)
)
