package task

import (
	"errors"
	"testing"
)

func validDraft() Task {
	return Task{
		Title:       "Fix crash",
		Description: "App crashes on startup",
		Type:        TypeBug,
		Status:      StatusOpen,
		Priority:    PriorityCritical,
	}
}

func TestValidate_OK(t *testing.T) {
	draft := validDraft()
	if err := draft.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_MandatoryFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Task)
	}{
		{"empty title", func(t *Task) { t.Title = "" }},
		{"blank title", func(t *Task) { t.Title = "   " }},
		{"empty description", func(t *Task) { t.Description = "" }},
		{"unknown type", func(t *Task) { t.Type = "Chore" }},
		{"unknown status", func(t *Task) { t.Status = "Done" }},
		{"unknown priority", func(t *Task) { t.Priority = "Urgent" }},
		{"negative estimate", func(t *Task) { t.EstimatedHours = -1 }},
		{"unknown severity", func(t *Task) { t.Severity = "Serious" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)
			err := draft.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Validate = %v, want ErrValidation", err)
			}
		})
	}
}

func TestValidate_TrimsTags(t *testing.T) {
	draft := validDraft()
	draft.Tags = []string{" api ", "", "frontend", "  "}
	if err := draft.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := []string{"api", "frontend"}
	if len(draft.Tags) != len(want) {
		t.Fatalf("Tags = %v, want %v", draft.Tags, want)
	}
	for i := range want {
		if draft.Tags[i] != want[i] {
			t.Errorf("Tags[%d] = %q, want %q", i, draft.Tags[i], want[i])
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusInProgress, StatusPendingApproval, StatusTesting, StatusClosed} {
		if !s.Valid() {
			t.Errorf("%q.Valid() = false, want true", s)
		}
	}
	if Status("Done").Valid() {
		t.Error(`Status("Done").Valid() = true, want false`)
	}
}
