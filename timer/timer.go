// Package timer implements per-task elapsed-time tracking.
//
// Each running timer is an independently scheduled ticker that increments the
// task's elapsed seconds once per interval and persists the new value after
// every tick. The engine guarantees at most one running timer per task id,
// idempotent stops, and cancellation of the scheduled tick when a timer is
// stopped or its task deleted.
package timer

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/GoCodeAlone/taskdash/storage"
	"github.com/GoCodeAlone/taskdash/task"
)

// Engine owns all per-task timers and their persisted elapsed seconds. It
// treats task status as an external signal delivered via OnTransition and
// never mutates tasks itself.
type Engine struct {
	kv       storage.KV
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	running map[string]*runner
	elapsed map[string]int
}

// runner is one scheduled timer. Closing stop releases the tick loop so it
// cannot fire again.
type runner struct {
	stop chan struct{}
}

// Option configures the Engine.
type Option func(*Engine)

// WithInterval overrides the 1-second tick interval. Tests use short
// intervals.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// New creates an Engine persisting elapsed seconds through kv.
func New(kv storage.KV, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		kv:       kv,
		logger:   logger,
		interval: time.Second,
		running:  make(map[string]*runner),
		elapsed:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins tracking for the given task id. Starting an already-running
// timer is a no-op. Tracking resumes from the persisted elapsed seconds; if
// that value cannot be loaded the timer is not started, since ticking from an
// unseeded count would overwrite the persisted one.
func (e *Engine) Start(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.running[id]; ok {
		return nil
	}
	if err := e.loadLocked(id); err != nil {
		return err
	}

	r := &runner{stop: make(chan struct{})}
	e.running[id] = r
	go e.loop(id, r)
	return nil
}

// Stop halts tracking for the given task id. Stopping an already-stopped
// timer is a no-op. The last persisted elapsed value is retained.
func (e *Engine) Stop(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(id)
}

// StopAll halts every running timer. Used during shutdown.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.running {
		e.stopLocked(id)
	}
}

// Running reports whether a timer is currently running for id.
func (e *Engine) Running(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[id]
	return ok
}

// Elapsed returns the tracked seconds for id, zero if never tracked.
func (e *Engine) Elapsed(id string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loadLocked(id); err != nil {
		return 0, err
	}
	return e.elapsed[id], nil
}

// Discard stops the timer (if running) and deletes the task's time entry.
// Called when the task itself is deleted.
func (e *Engine) Discard(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(id)
	delete(e.elapsed, id)
	if err := e.kv.Delete(storage.TimeKey(id)); err != nil {
		return fmt.Errorf("discard time entry: %w", err)
	}
	return nil
}

// OnTransition reacts to a task's status change. Entering Open starts the
// timer; entering Closed or Pending Approval stops it. Other statuses leave
// the timer as it is.
func (e *Engine) OnTransition(id string, to task.Status) {
	switch to {
	case task.StatusOpen:
		if err := e.Start(id); err != nil {
			e.logger.Error("start timer", slog.String("task", id), slog.Any("err", err))
		}
	case task.StatusClosed, task.StatusPendingApproval:
		e.Stop(id)
	}
}

// stopLocked cancels the runner for id. Caller holds e.mu.
func (e *Engine) stopLocked(id string) {
	r, ok := e.running[id]
	if !ok {
		return
	}
	close(r.stop)
	delete(e.running, id)
}

// loadLocked populates the elapsed cache for id from the KV store.
// Caller holds e.mu.
func (e *Engine) loadLocked(id string) error {
	if _, ok := e.elapsed[id]; ok {
		return nil
	}
	data, ok, err := e.kv.Get(storage.TimeKey(id))
	if err != nil {
		return fmt.Errorf("load time entry: %w", err)
	}
	seconds := 0
	if ok {
		seconds, err = strconv.Atoi(string(data))
		if err != nil || seconds < 0 {
			seconds = 0
		}
	}
	e.elapsed[id] = seconds
	return nil
}

// loop drives the ticks for one runner until it is stopped.
func (e *Engine) loop(id string, r *runner) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			e.tick(id, r)
		}
	}
}

// tick increments and persists the elapsed seconds for id. A tick from a
// superseded runner (stopped between the ticker firing and the lock being
// acquired) is ignored.
func (e *Engine) tick(id string, r *runner) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cur, ok := e.running[id]; !ok || cur != r {
		return
	}
	e.elapsed[id]++
	value := strconv.Itoa(e.elapsed[id])
	if err := e.kv.Set(storage.TimeKey(id), []byte(value)); err != nil {
		e.logger.Error("persist elapsed time", slog.String("task", id), slog.Any("err", err))
	}
}

// FormatElapsed renders seconds as zero-padded HH:MM:SS. Hours grow without
// day rollover.
func FormatElapsed(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}
