package timer

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/GoCodeAlone/taskdash/storage"
	"github.com/GoCodeAlone/taskdash/task"
)

func newTestEngine(t *testing.T) (*Engine, storage.KV) {
	t.Helper()
	kv := storage.NewMemKV()
	// A long interval keeps the scheduled ticks from firing; tests that
	// need ticks drive tick directly.
	e := New(kv, slog.Default(), WithInterval(time.Hour))
	t.Cleanup(e.StopAll)
	return e, kv
}

func mustStart(t *testing.T, e *Engine, id string) {
	t.Helper()
	if err := e.Start(id); err != nil {
		t.Fatalf("Start(%q): %v", id, err)
	}
}

func TestStartStop(t *testing.T) {
	e, _ := newTestEngine(t)

	if e.Running("t1") {
		t.Fatal("timer running before Start")
	}
	mustStart(t, e, "t1")
	if !e.Running("t1") {
		t.Fatal("timer not running after Start")
	}
	e.Stop("t1")
	if e.Running("t1") {
		t.Fatal("timer still running after Stop")
	}

	// Both operations are idempotent.
	e.Stop("t1")
	mustStart(t, e, "t1")
	mustStart(t, e, "t1")
	if !e.Running("t1") {
		t.Fatal("timer not running after double Start")
	}
}

func TestTickIncrementsAndPersists(t *testing.T) {
	e, kv := newTestEngine(t)
	mustStart(t, e, "t1")
	r := e.running["t1"]

	for i := 0; i < 3; i++ {
		e.tick("t1", r)
	}

	got, err := e.Elapsed("t1")
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if got != 3 {
		t.Errorf("Elapsed = %d, want 3", got)
	}

	data, ok, err := kv.Get(storage.TimeKey("t1"))
	if err != nil || !ok {
		t.Fatalf("time entry not persisted: ok=%v err=%v", ok, err)
	}
	if string(data) != "3" {
		t.Errorf("persisted value = %q, want %q", data, "3")
	}
}

func TestTickFromSupersededRunnerIgnored(t *testing.T) {
	e, _ := newTestEngine(t)
	mustStart(t, e, "t1")
	old := e.running["t1"]

	e.Stop("t1")
	mustStart(t, e, "t1")

	// A tick queued by the first runner must not count once it has been
	// replaced.
	e.tick("t1", old)
	got, err := e.Elapsed("t1")
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if got != 0 {
		t.Errorf("Elapsed = %d after stale tick, want 0", got)
	}

	e.tick("t1", e.running["t1"])
	if got, _ = e.Elapsed("t1"); got != 1 {
		t.Errorf("Elapsed = %d, want 1", got)
	}
}

func TestResumeFromPersisted(t *testing.T) {
	e, kv := newTestEngine(t)
	if err := kv.Set(storage.TimeKey("t1"), []byte("41")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	mustStart(t, e, "t1")
	e.tick("t1", e.running["t1"])

	got, err := e.Elapsed("t1")
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if got != 42 {
		t.Errorf("Elapsed = %d, want 42", got)
	}
}

func TestElapsedCorruptValueResetsToZero(t *testing.T) {
	e, kv := newTestEngine(t)
	if err := kv.Set(storage.TimeKey("t1"), []byte("not a number")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := e.Elapsed("t1")
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if got != 0 {
		t.Errorf("Elapsed = %d, want 0", got)
	}
}

func TestDiscard(t *testing.T) {
	e, kv := newTestEngine(t)
	mustStart(t, e, "t1")
	e.tick("t1", e.running["t1"])

	if err := e.Discard("t1"); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if e.Running("t1") {
		t.Error("timer still running after Discard")
	}
	if _, ok, _ := kv.Get(storage.TimeKey("t1")); ok {
		t.Error("time entry still present after Discard")
	}
	if got, _ := e.Elapsed("t1"); got != 0 {
		t.Errorf("Elapsed after Discard = %d, want 0", got)
	}
}

// flakyGetKV fails the next Get, then recovers.
type flakyGetKV struct {
	storage.KV
	failNext bool
}

func (f *flakyGetKV) Get(key string) ([]byte, bool, error) {
	if f.failNext {
		f.failNext = false
		return nil, false, storage.ErrPersistence
	}
	return f.KV.Get(key)
}

func TestStartRefusedWhenLoadFails(t *testing.T) {
	kv := &flakyGetKV{KV: storage.NewMemKV()}
	e := New(kv, slog.Default(), WithInterval(time.Hour))
	t.Cleanup(e.StopAll)

	if err := kv.Set(storage.TimeKey("t1"), []byte("100")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	kv.failNext = true
	if err := e.Start("t1"); !errors.Is(err, storage.ErrPersistence) {
		t.Fatalf("Start = %v, want ErrPersistence", err)
	}
	if e.Running("t1") {
		t.Fatal("timer running after failed start")
	}

	// Once the load succeeds, ticking resumes from the stored count rather
	// than restarting at zero.
	mustStart(t, e, "t1")
	e.tick("t1", e.running["t1"])
	got, err := e.Elapsed("t1")
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if got != 101 {
		t.Errorf("Elapsed = %d, want 101", got)
	}
	data, ok, err := kv.Get(storage.TimeKey("t1"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(data) != "101" {
		t.Errorf("persisted value = %q, want %q", data, "101")
	}
}

func TestOnTransition(t *testing.T) {
	e, _ := newTestEngine(t)

	e.OnTransition("t1", task.StatusOpen)
	if !e.Running("t1") {
		t.Fatal("timer not started on Open")
	}
	e.OnTransition("t1", task.StatusPendingApproval)
	if e.Running("t1") {
		t.Fatal("timer not stopped on Pending Approval")
	}
	e.OnTransition("t1", task.StatusOpen)
	e.OnTransition("t1", task.StatusClosed)
	if e.Running("t1") {
		t.Fatal("timer not stopped on Closed")
	}
	e.OnTransition("t1", task.StatusInProgress)
	if e.Running("t1") {
		t.Fatal("In Progress should not start a timer")
	}
}

func TestLoopTicksAndStops(t *testing.T) {
	kv := storage.NewMemKV()
	e := New(kv, slog.Default(), WithInterval(5*time.Millisecond))
	t.Cleanup(e.StopAll)

	mustStart(t, e, "t1")
	time.Sleep(100 * time.Millisecond)
	e.Stop("t1")

	got, err := e.Elapsed("t1")
	if err != nil {
		t.Fatalf("Elapsed: %v", err)
	}
	if got == 0 {
		t.Fatal("no ticks recorded while running")
	}

	// No further ticks after Stop.
	time.Sleep(50 * time.Millisecond)
	after, _ := e.Elapsed("t1")
	if after != got {
		t.Errorf("Elapsed advanced after Stop: %d -> %d", got, after)
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{3661, "01:01:01"},
		{90061, "25:01:01"},
	}
	for _, tc := range cases {
		if got := FormatElapsed(tc.seconds); got != tc.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
