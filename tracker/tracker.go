// Package tracker composes the task store, workflow engine, timer engine,
// and read-side projections behind one collaborator-facing interface.
//
// A single mutex serializes every mutating operation, so a status transition
// and its timer reaction are applied atomically for any one task: no caller
// can observe a state where the status changed but the timer has not yet
// reacted.
package tracker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/taskdash/analytics"
	"github.com/GoCodeAlone/taskdash/notify"
	"github.com/GoCodeAlone/taskdash/query"
	"github.com/GoCodeAlone/taskdash/task"
	"github.com/GoCodeAlone/taskdash/timer"
	"github.com/GoCodeAlone/taskdash/workflow"
)

// Tracker is the task workflow and time-tracking engine.
type Tracker struct {
	mu       sync.Mutex
	store    *task.Store
	timers   *timer.Engine
	notifier notify.Notifier
	logger   *slog.Logger
}

// New creates a Tracker over the given collaborators.
func New(store *task.Store, timers *timer.Engine, notifier notify.Notifier, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		timers:   timers,
		notifier: notifier,
		logger:   logger,
	}
}

// ResumeTimers restarts timers for every Open task, picking up persisted
// elapsed time. Called once at startup.
func (tr *Tracker) ResumeTimers() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, t := range tr.store.List() {
		if t.Status == task.StatusOpen {
			if err := tr.timers.Start(t.ID); err != nil {
				tr.logger.Error("resume timer", slog.String("id", t.ID), slog.Any("err", err))
			}
		}
	}
}

// CreateTask validates and stores a draft. The new task starts Open and its
// timer starts immediately.
func (tr *Tracker) CreateTask(draft task.Task) (task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	created, err := tr.store.Create(draft)
	if err != nil {
		return task.Task{}, err
	}
	if err := tr.timers.Start(created.ID); err != nil {
		tr.logger.Error("start timer", slog.String("id", created.ID), slog.Any("err", err))
	}
	tr.publish(notify.EventTaskCreated, created.ID, "", created.Status, &created)
	tr.logger.Info("task created", slog.String("id", created.ID), slog.String("title", created.Title))
	return created, nil
}

// UpdateTask replaces the stored task with the same id. Direct edits may set
// any status, including In Progress and Testing; a status change still drives
// the timer reaction, and an edit into Closed stamps UpdatedAt.
func (tr *Tracker) UpdateTask(t task.Task) (task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	prev, err := tr.store.Get(t.ID)
	if err != nil {
		return task.Task{}, err
	}

	t.CreatedAt = prev.CreatedAt
	t.UpdatedAt = prev.UpdatedAt
	if t.Status != prev.Status && t.Status == task.StatusClosed {
		t.UpdatedAt = time.Now().UTC()
	}

	updated, err := tr.store.Update(t)
	if err != nil {
		return task.Task{}, err
	}
	if updated.Status != prev.Status {
		tr.timers.OnTransition(updated.ID, updated.Status)
	}
	tr.publish(notify.EventTaskUpdated, updated.ID, prev.Status, updated.Status, &updated)
	return updated, nil
}

// DeleteTask removes the task and discards its time entry in the same
// logical step. Only Open tasks may be deleted, and only by a session with
// the request-approval capability.
func (tr *Tracker) DeleteTask(id string, caps workflow.CapabilitySet) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, err := tr.store.Get(id)
	if err != nil {
		return err
	}
	if err := workflow.CanDelete(&t, caps); err != nil {
		return err
	}
	if err := tr.store.Delete(id); err != nil {
		return err
	}
	if err := tr.timers.Discard(id); err != nil {
		tr.logger.Error("discard time entry", slog.String("id", id), slog.Any("err", err))
	}
	tr.publish(notify.EventTaskDeleted, id, t.Status, "", nil)
	tr.logger.Info("task deleted", slog.String("id", id))
	return nil
}

// RequestApproval submits an Open task for review.
func (tr *Tracker) RequestApproval(id string, caps workflow.CapabilitySet) (task.Task, error) {
	return tr.transition(id, task.StatusPendingApproval, caps)
}

// ApproveTask closes a task pending approval.
func (tr *Tracker) ApproveTask(id string, caps workflow.CapabilitySet) (task.Task, error) {
	return tr.transition(id, task.StatusClosed, caps)
}

// ReopenTask returns a Closed task to Open. Its timer restarts from the
// previously persisted elapsed time.
func (tr *Tracker) ReopenTask(id string, caps workflow.CapabilitySet) (task.Task, error) {
	return tr.transition(id, task.StatusOpen, caps)
}

// transition applies one guarded status change and its timer reaction
// atomically.
func (tr *Tracker) transition(id string, to task.Status, caps workflow.CapabilitySet) (task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, err := tr.store.Get(id)
	if err != nil {
		return task.Task{}, err
	}
	from := t.Status
	if err := workflow.Apply(&t, to, caps); err != nil {
		return task.Task{}, err
	}
	updated, err := tr.store.Update(t)
	if err != nil {
		return task.Task{}, err
	}
	tr.timers.OnTransition(id, updated.Status)
	tr.publish(notify.EventTaskTransitioned, id, from, updated.Status, &updated)
	tr.logger.Info("task transitioned",
		slog.String("id", id),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)),
	)
	return updated, nil
}

// GetTask retrieves a single task.
func (tr *Tracker) GetTask(id string) (task.Task, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.store.Get(id)
}

// QueryTasks returns the filtered, sorted view of the collection.
func (tr *Tracker) QueryTasks(f query.Filter, s query.Sort) []task.Task {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return query.Apply(tr.store.List(), f, s)
}

// ComputeAnalytics builds the daily-activity, status, and priority
// projections from the current collection.
func (tr *Tracker) ComputeAnalytics() analytics.Report {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return analytics.Compute(tr.store.List(), time.Now())
}

// Summary computes the dashboard headline counts.
func (tr *Tracker) Summary() analytics.Summary {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return analytics.Summarize(tr.store.List())
}

// GetElapsed returns the tracked seconds for id.
func (tr *Tracker) GetElapsed(id string) (int, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, err := tr.store.Get(id); err != nil {
		return 0, err
	}
	return tr.timers.Elapsed(id)
}

// StartTimer manually starts tracking. Disallowed while the task is Closed
// or Pending Approval.
func (tr *Tracker) StartTimer(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, err := tr.store.Get(id)
	if err != nil {
		return err
	}
	if t.Status == task.StatusClosed || t.Status == task.StatusPendingApproval {
		return fmt.Errorf("start timer while %s: %w", t.Status, workflow.ErrInvalidTransition)
	}
	if err := tr.timers.Start(id); err != nil {
		return err
	}
	tr.publish(notify.EventTimerStarted, id, "", t.Status, nil)
	return nil
}

// StopTimer manually stops tracking. Allowed at any time; stopping a stopped
// timer is a no-op.
func (tr *Tracker) StopTimer(id string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, err := tr.store.Get(id); err != nil {
		return err
	}
	tr.timers.Stop(id)
	tr.publish(notify.EventTimerStopped, id, "", "", nil)
	return nil
}

// TimerRunning reports whether a timer is active for id.
func (tr *Tracker) TimerRunning(id string) bool {
	return tr.timers.Running(id)
}

// Shutdown stops every running timer.
func (tr *Tracker) Shutdown() {
	tr.timers.StopAll()
}

func (tr *Tracker) publish(typ notify.EventType, taskID string, from, to task.Status, snapshot *task.Task) {
	if tr.notifier == nil {
		return
	}
	tr.notifier.Publish(notify.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		TaskID:    taskID,
		From:      from,
		To:        to,
		Task:      snapshot,
		Timestamp: time.Now().UTC(),
	})
}
