package domain

import "slices"

// ColumnID identifies a board column.
type ColumnID string

const (
	ColumnTodo       ColumnID = "todo"
	ColumnInProgress ColumnID = "in-progress"
	ColumnDone       ColumnID = "done"
)

// Column represents a kanban board column (e.g. "Todo", "In progress", "Done").
type Column struct {
	ID    ColumnID `json:"id"`
	Title string   `json:"title"`
}

// IndexOfColumn returns the position of the column with the given id, or -1.
func IndexOfColumn(columns []Column, id ColumnID) int {
	return slices.IndexFunc(columns, func(c Column) bool { return c.ID == id })
}
