package task

import (
	"errors"
	"testing"

	"github.com/GoCodeAlone/taskdash/storage"
)

func newTestStore(t *testing.T) (*Store, storage.KV) {
	t.Helper()
	kv := storage.NewMemKV()
	s, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, kv
}

func mustCreate(t *testing.T, s *Store, title string) Task {
	t.Helper()
	created, err := s.Create(Task{
		Title:       title,
		Description: "desc for " + title,
		Type:        TypeTask,
		Priority:    PriorityMedium,
	})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	return created
}

func TestStoreCreate(t *testing.T) {
	s, _ := newTestStore(t)

	created, err := s.Create(Task{
		Title:       "Write docs",
		Description: "User guide",
		Type:        TypeTask,
		Status:      StatusClosed, // client-supplied status is ignored
		Priority:    PriorityLow,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("Create returned empty id")
	}
	if created.Status != StatusOpen {
		t.Errorf("Status = %q, want %q", created.Status, StatusOpen)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps not stamped on create")
	}

	got, err := s.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Write docs" {
		t.Errorf("Title = %q, want %q", got.Title, "Write docs")
	}
}

func TestStoreCreate_Invalid(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Create(Task{Title: "", Description: "x", Type: TypeTask, Priority: PriorityLow})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Create = %v, want ErrValidation", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after failed create, want 0", s.Len())
	}
}

func TestStoreGet_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	created := mustCreate(t, s, "alpha")

	created.Priority = PriorityHigh
	updated, err := s.Update(created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Priority != PriorityHigh {
		t.Errorf("Priority = %q, want %q", updated.Priority, PriorityHigh)
	}

	missing := created
	missing.ID = "nope"
	if _, err := s.Update(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing = %v, want ErrNotFound", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustCreate(t, s, "alpha")
	b := mustCreate(t, s, "beta")
	c := mustCreate(t, s, "gamma")

	if err := s.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	list := s.List()
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != c.ID {
		t.Errorf("List after delete out of order: %v", ids(list))
	}

	if err := s.Delete(b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStoreListOrder(t *testing.T) {
	s, _ := newTestStore(t)
	want := []string{"zeta", "alpha", "mu"}
	for _, title := range want {
		mustCreate(t, s, title)
	}
	list := s.List()
	for i, title := range want {
		if list[i].Title != title {
			t.Errorf("List[%d].Title = %q, want %q", i, list[i].Title, title)
		}
	}
}

func TestStoreReload(t *testing.T) {
	s, kv := newTestStore(t)
	a := mustCreate(t, s, "alpha")
	b := mustCreate(t, s, "beta")

	reloaded, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded Len = %d, want 2", reloaded.Len())
	}
	list := reloaded.List()
	if list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("reload lost insertion order: %v", ids(list))
	}
}

// failKV wraps a KV and fails every Set after the fuse blows.
type failKV struct {
	storage.KV
	fail bool
}

func (f *failKV) Set(key string, value []byte) error {
	if f.fail {
		return storage.ErrPersistence
	}
	return f.KV.Set(key, value)
}

func TestStoreRollbackOnPersistFailure(t *testing.T) {
	kv := &failKV{KV: storage.NewMemKV()}
	s, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	a := mustCreate(t, s, "alpha")

	kv.fail = true

	if _, err := s.Create(Task{Title: "beta", Description: "d", Type: TypeTask, Priority: PriorityLow}); !errors.Is(err, storage.ErrPersistence) {
		t.Fatalf("Create = %v, want ErrPersistence", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len after failed create = %d, want 1", s.Len())
	}

	changed := a
	changed.Title = "alpha 2"
	if _, err := s.Update(changed); !errors.Is(err, storage.ErrPersistence) {
		t.Fatalf("Update = %v, want ErrPersistence", err)
	}
	got, _ := s.Get(a.ID)
	if got.Title != "alpha" {
		t.Errorf("Title after failed update = %q, want %q", got.Title, "alpha")
	}

	if err := s.Delete(a.ID); !errors.Is(err, storage.ErrPersistence) {
		t.Fatalf("Delete = %v, want ErrPersistence", err)
	}
	if _, err := s.Get(a.ID); err != nil {
		t.Errorf("task missing after failed delete: %v", err)
	}
}

func ids(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.ID
	}
	return out
}
