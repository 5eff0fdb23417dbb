// Package task defines the task model and the authoritative task store.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status represents the workflow state of a task.
type Status string

const (
	StatusOpen            Status = "Open"
	StatusInProgress      Status = "In Progress"
	StatusPendingApproval Status = "Pending Approval"
	StatusTesting         Status = "Testing"
	StatusClosed          Status = "Closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPendingApproval, StatusTesting, StatusClosed:
		return true
	default:
		return false
	}
}

// Priority determines the urgency of a task.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Type classifies the kind of work item.
type Type string

const (
	TypeTask        Type = "Task"
	TypeBug         Type = "Bug"
	TypeFeature     Type = "Feature"
	TypeImprovement Type = "Improvement"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeTask, TypeBug, TypeFeature, TypeImprovement:
		return true
	default:
		return false
	}
}

// Reproducibility describes how consistently a bug can be reproduced.
// Meaningful only when the task type is Bug.
type Reproducibility string

const (
	ReproAlways    Reproducibility = "Always"
	ReproSometimes Reproducibility = "Sometimes"
	ReproRarely    Reproducibility = "Rarely"
	ReproUnable    Reproducibility = "Unable"
)

// Valid reports whether r is a known reproducibility value.
func (r Reproducibility) Valid() bool {
	switch r {
	case ReproAlways, ReproSometimes, ReproRarely, ReproUnable:
		return true
	default:
		return false
	}
}

// Severity describes a bug's impact. Meaningful only when the task type is Bug.
type Severity string

const (
	SeverityBlocker  Severity = "Blocker"
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMedium   Severity = "Medium"
	SeverityMinor    Severity = "Minor"
	SeverityTrivial  Severity = "Trivial"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityCritical, SeverityMajor, SeverityMedium, SeverityMinor, SeverityTrivial:
		return true
	default:
		return false
	}
}

// Task is a trackable unit of work. A Task with an empty ID is a draft that
// has not been persisted yet.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Type           Type       `json:"type"`
	Status         Status     `json:"status"`
	Priority       Priority   `json:"priority"`
	Assignee       string     `json:"assignee,omitempty"`
	Reporter       string     `json:"reporter,omitempty"`
	Project        string     `json:"project,omitempty"`
	Team           string     `json:"team,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	EstimatedHours float64    `json:"estimatedHours,omitempty"`

	// Bug-only fields.
	Environment     string          `json:"environment,omitempty"`
	Reproducibility Reproducibility `json:"reproducibility,omitempty"`
	Severity        Severity        `json:"severity,omitempty"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is stamped at creation and on every transition into Closed.
	// The daily-completion analytics read it to bucket closed tasks by day.
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	// ErrNotFound is returned when an operation references an unknown task id.
	ErrNotFound = errors.New("task not found")

	// ErrValidation is returned when a mandatory field is missing or invalid.
	ErrValidation = errors.New("invalid task")
)

// Validate checks the mandatory fields: title, description, type, status,
// and priority. Tags are trimmed; empty tags are dropped.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required: %w", ErrValidation)
	}
	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("description is required: %w", ErrValidation)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("unknown type %q: %w", t.Type, ErrValidation)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("unknown status %q: %w", t.Status, ErrValidation)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("unknown priority %q: %w", t.Priority, ErrValidation)
	}
	if t.EstimatedHours < 0 {
		return fmt.Errorf("estimated hours must be non-negative: %w", ErrValidation)
	}
	if t.Reproducibility != "" && !t.Reproducibility.Valid() {
		return fmt.Errorf("unknown reproducibility %q: %w", t.Reproducibility, ErrValidation)
	}
	if t.Severity != "" && !t.Severity.Valid() {
		return fmt.Errorf("unknown severity %q: %w", t.Severity, ErrValidation)
	}

	tags := t.Tags[:0]
	for _, tag := range t.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	t.Tags = tags
	return nil
}
