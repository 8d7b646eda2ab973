package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dd0wney/cluso-cables/pkg/config"
	"github.com/dd0wney/cluso-cables/pkg/logging"
)

// Executor runs recompute tasks somewhere other than the triggering
// goroutine. Submit reports false if the task was not accepted.
type Executor interface {
	Submit(task func()) bool
}

// closer is implemented by executors that own goroutines.
type closer interface {
	Close()
}

// runSafely runs task and logs a panic instead of letting it unwind into
// the worker.
func runSafely(log logging.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panic recovered",
				logging.Any("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())))
		}
	}()
	task()
}

func orNop(log logging.Logger) logging.Logger {
	if log == nil {
		return logging.NewNopLogger()
	}
	return log
}

// Inline runs each task on the calling goroutine. Used by tests and tools
// that want deterministic ordering.
type Inline struct {
	Logger logging.Logger
}

func (e Inline) Submit(task func()) bool {
	runSafely(orNop(e.Logger), task)
	return true
}

// GoExecutor starts one goroutine per task.
type GoExecutor struct {
	log    logging.Logger
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewGoExecutor creates an unbounded executor.
func NewGoExecutor(log logging.Logger) *GoExecutor {
	return &GoExecutor{log: orNop(log)}
}

func (e *GoExecutor) Submit(task func()) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		runSafely(e.log, task)
	}()
	return true
}

// Wait blocks until every task submitted so far has finished.
func (e *GoExecutor) Wait() {
	e.wg.Wait()
}

// Close refuses further tasks and waits for running ones.
func (e *GoExecutor) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.wg.Wait()
}

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = 1024

// WorkerPool manages a fixed pool of worker goroutines fed from a bounded
// queue. Submit blocks while the queue is full.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	log       logging.Logger
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards taskQueue against close during send
	closed    bool
}

// NewWorkerPool starts workers goroutines. queueSize <= 0 means twice the
// worker count.
func NewWorkerPool(workers, queueSize int, log logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), queueSize),
		log:       orNop(log).With(logging.Component("worker_pool")),
	}
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		runSafely(wp.log, task)
	}
}

// Submit queues a task. Returns false if the pool is closed.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.taskQueue <- task
	return true
}

// Close stops accepting tasks and drains the queue.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// NewExecutor builds the executor named by cfg.
func NewExecutor(cfg config.SchedulerConfig, log logging.Logger) (Executor, error) {
	switch cfg.Executor {
	case config.ExecutorGo, "":
		return NewGoExecutor(log), nil
	case config.ExecutorPool:
		return NewWorkerPool(cfg.Workers, cfg.QueueSize, log)
	case config.ExecutorInline:
		return Inline{Logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown executor %q", cfg.Executor)
	}
}
