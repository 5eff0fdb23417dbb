// Package analytics derives read-only projections from the task collection.
// All functions are pure: they never mutate their inputs and own no state.
package analytics

import (
	"math"
	"time"

	"github.com/GoCodeAlone/taskdash/task"
)

// DayActivity is one day of the weekly activity histogram.
type DayActivity struct {
	// Day is the short weekday label, e.g. "Mon".
	Day  string    `json:"day"`
	Date time.Time `json:"date"`

	// Completed counts tasks closed on this day, bucketed by UpdatedAt in
	// local time.
	Completed int `json:"tasks"`

	// Concurrent is a snapshot of currently Open or Pending Approval tasks.
	// It is computed once from present state and repeated for every day;
	// per-day history is not recoverable from the data model.
	Concurrent int `json:"concurrent"`
}

// Count is one labelled bucket of a distribution.
type Count struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Report bundles the three analytics projections.
type Report struct {
	Daily        []DayActivity `json:"daily"`
	StatusDist   []Count       `json:"statusDist"`
	PriorityDist []Count       `json:"priorityDist"`
}

// statusBuckets is the fixed status set of the distribution. Statuses outside
// it (In Progress, Testing) are silently excluded from the tally.
var statusBuckets = []task.Status{
	task.StatusOpen,
	task.StatusPendingApproval,
	task.StatusClosed,
}

// priorityBuckets is the fixed priority set; Critical tasks are not tallied.
var priorityBuckets = []task.Priority{
	task.PriorityHigh,
	task.PriorityMedium,
	task.PriorityLow,
}

// Compute builds the full analytics report for the collection. The daily
// histogram covers the 7 calendar days ending at now, oldest first, with day
// boundaries in now's location.
func Compute(tasks []task.Task, now time.Time) Report {
	return Report{
		Daily:        dailyActivity(tasks, now),
		StatusDist:   statusDistribution(tasks),
		PriorityDist: priorityDistribution(tasks),
	}
}

func dailyActivity(tasks []task.Task, now time.Time) []DayActivity {
	concurrent := 0
	for _, t := range tasks {
		if t.Status == task.StatusOpen || t.Status == task.StatusPendingApproval {
			concurrent++
		}
	}

	loc := now.Location()
	days := make([]DayActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 1)

		completed := 0
		for _, t := range tasks {
			if t.Status != task.StatusClosed {
				continue
			}
			at := t.UpdatedAt.In(loc)
			if !at.Before(start) && at.Before(end) {
				completed++
			}
		}

		days = append(days, DayActivity{
			Day:        date.Format("Mon"),
			Date:       date,
			Completed:  completed,
			Concurrent: concurrent,
		})
	}
	return days
}

func statusDistribution(tasks []task.Task) []Count {
	counts := make(map[task.Status]int, len(statusBuckets))
	for _, t := range tasks {
		counts[t.Status]++
	}
	out := make([]Count, 0, len(statusBuckets))
	for _, s := range statusBuckets {
		out = append(out, Count{Name: string(s), Value: counts[s]})
	}
	return out
}

func priorityDistribution(tasks []task.Task) []Count {
	counts := make(map[task.Priority]int, len(priorityBuckets))
	for _, t := range tasks {
		counts[t.Priority]++
	}
	out := make([]Count, 0, len(priorityBuckets))
	for _, p := range priorityBuckets {
		out = append(out, Count{Name: string(p), Value: counts[p]})
	}
	return out
}

// Summary is the dashboard headline view of the collection.
type Summary struct {
	// Completed counts Closed tasks.
	Completed int `json:"completed"`

	// Pending counts Open and Pending Approval tasks.
	Pending int `json:"pending"`

	// Productivity is Closed tasks as a rounded percentage of all tasks,
	// zero for an empty collection.
	Productivity int `json:"productivity"`
}

// Summarize computes the dashboard summary for the collection.
func Summarize(tasks []task.Task) Summary {
	var s Summary
	for _, t := range tasks {
		switch t.Status {
		case task.StatusClosed:
			s.Completed++
		case task.StatusOpen, task.StatusPendingApproval:
			s.Pending++
		}
	}
	if len(tasks) > 0 {
		s.Productivity = int(math.Round(float64(s.Completed) / float64(len(tasks)) * 100))
	}
	return s
}
