// Package storage provides the key-value persistence adapter for the
// task collection, per-task elapsed time, and the session record.
package storage

import "errors"

// Well-known keys. Per-task elapsed time lives under TimeKey(id).
const (
	KeyTasks = "tasks"
	KeyUser  = "user"
)

// TimeKey returns the key holding elapsed seconds for a task.
func TimeKey(taskID string) string { return "time-" + taskID }

// ErrPersistence marks failures of the underlying store. Callers wrap it so
// errors.Is(err, ErrPersistence) holds for any adapter failure.
var ErrPersistence = errors.New("persistence failure")

// KV is a small synchronous key-value store local to the client.
type KV interface {
	// Get returns the value for key. The second return is false when the
	// key is absent.
	Get(key string) ([]byte, bool, error)

	// Set overwrites the value for key.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error
}
