package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GoCodeAlone/taskdash/storage"
)

// Store is the in-memory, insertion-ordered task collection and the single
// writer of persisted task state. Every mutation writes the full collection
// to the KV adapter synchronously before returning; on a persistence failure
// the in-memory state is rolled back so no partial write is observable.
//
// Store is not internally locked. The tracker serializes all access; see the
// concurrency notes there.
type Store struct {
	kv    storage.KV
	tasks []Task
	index map[string]int // id -> position in tasks
}

// NewStore loads the persisted collection (if any) from kv.
func NewStore(kv storage.KV) (*Store, error) {
	s := &Store{kv: kv, index: make(map[string]int)}

	data, ok, err := kv.Get(storage.KeyTasks)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, &s.tasks); err != nil {
			return nil, fmt.Errorf("decode tasks: %v: %w", err, storage.ErrPersistence)
		}
		for i, t := range s.tasks {
			s.index[t.ID] = i
		}
	}
	return s, nil
}

// Create validates the draft, assigns a fresh id, forces status Open, and
// appends it to the collection.
func (s *Store) Create(draft Task) (Task, error) {
	draft.Status = StatusOpen
	if err := draft.Validate(); err != nil {
		return Task{}, err
	}
	draft.ID = uuid.NewString()
	now := time.Now().UTC()
	draft.CreatedAt = now
	draft.UpdatedAt = now

	s.tasks = append(s.tasks, draft)
	s.index[draft.ID] = len(s.tasks) - 1

	if err := s.persist(); err != nil {
		// Roll back the append.
		s.tasks = s.tasks[:len(s.tasks)-1]
		delete(s.index, draft.ID)
		return Task{}, err
	}
	return draft, nil
}

// Get retrieves a task by id.
func (s *Store) Get(id string) (Task, error) {
	i, ok := s.index[id]
	if !ok {
		return Task{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return s.tasks[i], nil
}

// Update replaces the stored task with the same id.
func (s *Store) Update(t Task) (Task, error) {
	if err := t.Validate(); err != nil {
		return Task{}, err
	}
	i, ok := s.index[t.ID]
	if !ok {
		return Task{}, fmt.Errorf("update %s: %w", t.ID, ErrNotFound)
	}

	prev := s.tasks[i]
	s.tasks[i] = t
	if err := s.persist(); err != nil {
		s.tasks[i] = prev
		return Task{}, err
	}
	return t, nil
}

// Delete removes the task with the given id. The caller is responsible for
// discarding the task's time entry in the same logical step.
func (s *Store) Delete(id string) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	prev := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.tasks); j++ {
		s.index[s.tasks[j].ID] = j
	}

	if err := s.persist(); err != nil {
		// Reinsert at the original position.
		s.tasks = append(s.tasks[:i], append([]Task{prev}, s.tasks[i:]...)...)
		for j := i; j < len(s.tasks); j++ {
			s.index[s.tasks[j].ID] = j
		}
		return err
	}
	return nil
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of stored tasks.
func (s *Store) Len() int { return len(s.tasks) }

// persist writes the full collection to the KV adapter.
func (s *Store) persist() error {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %v: %w", err, storage.ErrPersistence)
	}
	if err := s.kv.Set(storage.KeyTasks, data); err != nil {
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}
