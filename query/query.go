// Package query computes filtered, sorted views of the task collection.
// It owns no state: Apply is a pure function over its inputs.
package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/GoCodeAlone/taskdash/task"
)

// Filter selects tasks. Nil enum fields and an empty Search mean "no filter";
// all supplied filters must match (conjunction).
type Filter struct {
	Status   *task.Status   `json:"status,omitempty"`
	Priority *task.Priority `json:"priority,omitempty"`
	Type     *task.Type     `json:"type,omitempty"`

	// Search is matched case-insensitively as a substring of the title,
	// description, assignee, or any tag.
	Search string `json:"searchQuery,omitempty"`
}

// SortKey selects the task attribute to order by.
type SortKey string

const (
	SortByTitle    SortKey = "title"
	SortByPriority SortKey = "priority"
	SortByStatus   SortKey = "status"
	SortByDueDate  SortKey = "dueDate"
	SortByType     SortKey = "type"
)

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Sort describes the ordering of the result.
type Sort struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort orders by title ascending, matching the UI default.
func DefaultSort() Sort {
	return Sort{Key: SortByTitle, Direction: Ascending}
}

// Apply returns the tasks matching filter, ordered by s. The input slice is
// not modified. With an empty filter and no sort key the collection comes
// back in its original order; the sort is stable, so equal keys keep their
// relative order.
func Apply(tasks []task.Task, filter Filter, s Sort) []task.Task {
	result := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if matches(t, filter) {
			result = append(result, t)
		}
	}

	if s.Key == "" {
		return result
	}

	// Collators are not safe for concurrent use; build one per call.
	coll := collate.New(language.English)
	desc := s.Direction == Descending

	sort.SliceStable(result, func(i, j int) bool {
		less := compare(coll, result[i], result[j], s.Key)
		if less == 0 {
			return false
		}
		if desc {
			return less > 0
		}
		return less < 0
	})
	return result
}

// matches applies every active filter field conjunctively.
func matches(t task.Task, f Filter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Assignee), q) &&
			!tagMatch(t.Tags, q) {
			return false
		}
	}
	return true
}

func tagMatch(tags []string, q string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// compare orders a before b (-1), after (1), or equal (0) on the given key.
// A missing value is an out-of-band minimum: it sorts before any present one,
// so it comes first ascending and last descending.
func compare(coll *collate.Collator, a, b task.Task, key SortKey) int {
	if key == SortByDueDate {
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return -1
		case b.DueDate == nil:
			return 1
		case a.DueDate.Before(*b.DueDate):
			return -1
		case b.DueDate.Before(*a.DueDate):
			return 1
		default:
			return 0
		}
	}

	av, bv := stringKey(a, key), stringKey(b, key)
	switch {
	case av == "" && bv == "":
		return 0
	case av == "":
		return -1
	case bv == "":
		return 1
	default:
		return coll.CompareString(av, bv)
	}
}

func stringKey(t task.Task, key SortKey) string {
	switch key {
	case SortByTitle:
		return t.Title
	case SortByPriority:
		return string(t.Priority)
	case SortByStatus:
		return string(t.Status)
	case SortByType:
		return string(t.Type)
	default:
		return ""
	}
}
