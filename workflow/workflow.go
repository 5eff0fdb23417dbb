// Package workflow implements the approval state machine for tasks.
//
// Status changes requested through the guarded operations are checked against
// a closed transition table keyed by (current status, target status) and the
// acting session's capability set. Anything outside the table is rejected with
// ErrInvalidTransition and leaves the task untouched. The machine is cyclic:
// Closed tasks can be reopened.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/GoCodeAlone/taskdash/task"
)

// Capability is a workflow action a session's role may perform.
type Capability string

const (
	// CapRequestApproval allows submitting an Open task for review and
	// deleting Open tasks.
	CapRequestApproval Capability = "request-approval"

	// CapApprove allows closing a task pending approval and reopening a
	// closed one.
	CapApprove Capability = "approve"
)

// CapabilitySet is the set of capabilities granted to the acting session.
// It is always passed explicitly into guarded operations, never read from
// ambient state.
type CapabilitySet map[Capability]bool

// Has reports whether the set grants c.
func (cs CapabilitySet) Has(c Capability) bool { return cs[c] }

// RoleCapabilities maps a session role to its capability set. Unknown roles
// get an empty set, so every guarded operation fails for them.
func RoleCapabilities(role string) CapabilitySet {
	switch role {
	case "Developer":
		return CapabilitySet{CapRequestApproval: true}
	case "Manager":
		return CapabilitySet{CapApprove: true}
	default:
		return CapabilitySet{}
	}
}

// ErrInvalidTransition is returned for a status change attempted from a
// state/capability combination not in the transition table. The task is left
// unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// transition is one row of the guarded transition table.
type transition struct {
	from     task.Status
	to       task.Status
	requires Capability
}

// In Progress and Testing are reachable only through direct edits; they carry
// no guarded transitions.
var transitions = []transition{
	{task.StatusOpen, task.StatusPendingApproval, CapRequestApproval},
	{task.StatusPendingApproval, task.StatusClosed, CapApprove},
	{task.StatusClosed, task.StatusOpen, CapApprove},
}

// Apply performs the guarded transition of t to the target status. On
// success the task's status is updated in place; a transition into Closed
// also stamps UpdatedAt so the completion analytics can bucket it by day.
func Apply(t *task.Task, to task.Status, caps CapabilitySet) error {
	for _, tr := range transitions {
		if tr.from != t.Status || tr.to != to {
			continue
		}
		if !caps.Has(tr.requires) {
			return fmt.Errorf("%s -> %s requires %q: %w", t.Status, to, tr.requires, ErrInvalidTransition)
		}
		t.Status = to
		if to == task.StatusClosed {
			t.UpdatedAt = time.Now().UTC()
		}
		return nil
	}
	return fmt.Errorf("%s -> %s: %w", t.Status, to, ErrInvalidTransition)
}

// CanDelete checks the deletion guard: only Open tasks may be deleted, and
// only by a session holding the request-approval capability.
func CanDelete(t *task.Task, caps CapabilitySet) error {
	if !caps.Has(CapRequestApproval) {
		return fmt.Errorf("delete requires %q: %w", CapRequestApproval, ErrInvalidTransition)
	}
	if t.Status != task.StatusOpen {
		return fmt.Errorf("delete from %s: %w", t.Status, ErrInvalidTransition)
	}
	return nil
}
