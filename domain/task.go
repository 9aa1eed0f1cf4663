package domain

import (
	"cmp"
	"slices"
	"time"
)

// Priority orders tasks on the board. Lower values are more urgent.
type Priority int

const (
	PriorityHigh   Priority = 0
	PriorityMedium Priority = 1
	PriorityLow    Priority = 2
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Task represents a single card on the board.
type Task struct {
	ID          string     `json:"id"`
	ColumnID    ColumnID   `json:"columnId"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// DisplayDescription returns the text shown on the card body.
func (t Task) DisplayDescription() string {
	if t.Description == "" {
		return "No Description"
	}
	return t.Description
}

// CompareTasks orders tasks by priority, then by deadline. A task without a
// deadline sorts after one that has a deadline within the same priority.
func CompareTasks(a, b Task) int {
	if a.Priority != b.Priority {
		return cmp.Compare(a.Priority, b.Priority)
	}
	switch {
	case a.Deadline == nil && b.Deadline == nil:
		return 0
	case a.Deadline == nil:
		return 1
	case b.Deadline == nil:
		return -1
	}
	return a.Deadline.Compare(*b.Deadline)
}

// SortTasks sorts tasks in place using CompareTasks. Tasks that compare equal
// keep their relative order.
func SortTasks(tasks []Task) []Task {
	slices.SortStableFunc(tasks, CompareTasks)
	return tasks
}

// SortByPriority sorts tasks in place by priority only, keeping the relative
// order of tasks with the same priority.
func SortByPriority(tasks []Task) []Task {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return tasks
}

// IndexOfTask returns the position of the task with the given id, or -1.
func IndexOfTask(tasks []Task, id string) int {
	return slices.IndexFunc(tasks, func(t Task) bool { return t.ID == id })
}

// TasksInColumn returns the tasks tagged with columnID, preserving list order.
func TasksInColumn(tasks []Task, columnID ColumnID) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ColumnID == columnID {
			out = append(out, t)
		}
	}
	return out
}
