// Package notify fans task-store change events out to observers.
// The server's SSE stream subscribes here; projections recompute on change.
package notify

import (
	"time"

	"github.com/GoCodeAlone/taskdash/task"
)

// EventType identifies the kind of change event.
type EventType string

const (
	EventTaskCreated      EventType = "task.created"
	EventTaskUpdated      EventType = "task.updated"
	EventTaskDeleted      EventType = "task.deleted"
	EventTaskTransitioned EventType = "task.transitioned"
	EventTimerStarted     EventType = "timer.started"
	EventTimerStopped     EventType = "timer.stopped"
)

// Event describes one change to the task collection or a timer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TaskID    string      `json:"task_id"`
	From      task.Status `json:"from,omitempty"` // prior status for transitions
	To        task.Status `json:"to,omitempty"`   // new status for transitions
	Task      *task.Task  `json:"task,omitempty"` // snapshot after the change, nil for deletes
	Timestamp time.Time   `json:"timestamp"`
}

// Handler observes change events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(ev Event)

// Notifier delivers change events to subscribed handlers and keeps a bounded
// history of recent events.
type Notifier interface {
	// Publish delivers ev to every subscriber.
	Publish(ev Event)

	// Subscribe registers a handler. The returned function unsubscribes it.
	Subscribe(handler Handler) (unsubscribe func())

	// History returns up to limit recent events in chronological order.
	History(limit int) []Event
}
