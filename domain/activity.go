package domain

import "github.com/bytedance/sonic"

const (
	ActivityTaskMoved     = "task-moved"
	ActivityTaskReordered = "task-reordered"
	ActivityTaskDeleted   = "task-deleted"
	ActivityColumnMoved   = "column-moved"
)

// Activity records a change made to a board view. Activities are exported to
// the activity feed and are never read back.
type Activity struct {
	ID         string                 `json:"id"`
	ViewID     string                 `json:"viewId"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Type       string                 `json:"type"`
	Data       sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp  int64                  `json:"timestamp"`
}

// ActivityEnvelope wraps an activity with the user performing it.
type ActivityEnvelope struct {
	UserID   string   `json:"userId"`
	Activity Activity `json:"activity"`
}

type TaskMovedData struct {
	From ColumnID `json:"from"`
	To   ColumnID `json:"to"`
}

type TaskReorderedData struct {
	ColumnID ColumnID `json:"columnId"`
	Position int      `json:"position"`
}

type ColumnMovedData struct {
	From int `json:"from"`
	To   int `json:"to"`
}
