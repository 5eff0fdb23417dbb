package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/GoCodeAlone/taskdash/task"
)

func newTask(status task.Status) task.Task {
	return task.Task{
		ID:          "t1",
		Title:       "sample",
		Description: "sample",
		Type:        task.TypeTask,
		Status:      status,
		Priority:    task.PriorityMedium,
	}
}

func TestRoleCapabilities(t *testing.T) {
	dev := RoleCapabilities("Developer")
	if !dev.Has(CapRequestApproval) || dev.Has(CapApprove) {
		t.Errorf("Developer caps = %v", dev)
	}
	mgr := RoleCapabilities("Manager")
	if !mgr.Has(CapApprove) || mgr.Has(CapRequestApproval) {
		t.Errorf("Manager caps = %v", mgr)
	}
	if caps := RoleCapabilities("Intern"); len(caps) != 0 {
		t.Errorf("unknown role caps = %v, want empty", caps)
	}
}

func TestApply_GuardedTransitions(t *testing.T) {
	dev := RoleCapabilities("Developer")
	mgr := RoleCapabilities("Manager")

	cases := []struct {
		name string
		from task.Status
		to   task.Status
		caps CapabilitySet
		ok   bool
	}{
		{"request approval", task.StatusOpen, task.StatusPendingApproval, dev, true},
		{"approve", task.StatusPendingApproval, task.StatusClosed, mgr, true},
		{"reopen", task.StatusClosed, task.StatusOpen, mgr, true},

		{"request approval without capability", task.StatusOpen, task.StatusPendingApproval, mgr, false},
		{"approve without capability", task.StatusPendingApproval, task.StatusClosed, dev, false},
		{"reopen without capability", task.StatusClosed, task.StatusOpen, dev, false},

		{"skip review", task.StatusOpen, task.StatusClosed, mgr, false},
		{"close open task", task.StatusOpen, task.StatusClosed, dev, false},
		{"reopen pending", task.StatusPendingApproval, task.StatusOpen, mgr, false},
		{"re-request on closed", task.StatusClosed, task.StatusPendingApproval, dev, false},
		{"self transition", task.StatusOpen, task.StatusOpen, mgr, false},
		{"from in progress", task.StatusInProgress, task.StatusPendingApproval, dev, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := newTask(tc.from)
			err := Apply(&tk, tc.to, tc.caps)
			if tc.ok {
				if err != nil {
					t.Fatalf("Apply: %v", err)
				}
				if tk.Status != tc.to {
					t.Errorf("Status = %q, want %q", tk.Status, tc.to)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Apply = %v, want ErrInvalidTransition", err)
			}
			if tk.Status != tc.from {
				t.Errorf("rejected transition mutated status to %q", tk.Status)
			}
		})
	}
}

func TestApply_StampsUpdatedAtOnClose(t *testing.T) {
	tk := newTask(task.StatusPendingApproval)
	tk.UpdatedAt = time.Now().Add(-48 * time.Hour)
	before := tk.UpdatedAt

	if err := Apply(&tk, task.StatusClosed, RoleCapabilities("Manager")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !tk.UpdatedAt.After(before) {
		t.Errorf("UpdatedAt not restamped on close: %v", tk.UpdatedAt)
	}

	// Reopening must not restamp.
	closedAt := tk.UpdatedAt
	if err := Apply(&tk, task.StatusOpen, RoleCapabilities("Manager")); err != nil {
		t.Fatalf("Apply reopen: %v", err)
	}
	if !tk.UpdatedAt.Equal(closedAt) {
		t.Errorf("UpdatedAt changed on reopen: %v != %v", tk.UpdatedAt, closedAt)
	}
}

func TestCanDelete(t *testing.T) {
	dev := RoleCapabilities("Developer")
	mgr := RoleCapabilities("Manager")

	open := newTask(task.StatusOpen)
	if err := CanDelete(&open, dev); err != nil {
		t.Errorf("CanDelete open by developer: %v", err)
	}
	if err := CanDelete(&open, mgr); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CanDelete by manager = %v, want ErrInvalidTransition", err)
	}

	closed := newTask(task.StatusClosed)
	if err := CanDelete(&closed, dev); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("CanDelete closed = %v, want ErrInvalidTransition", err)
	}
}
