package board

import "trello-cloney/domain"

// EntityType distinguishes the draggable entities on the board.
type EntityType string

const (
	EntityColumn EntityType = "Column"
	EntityTask   EntityType = "Task"
)

// DragData is the payload the drag-and-drop collaborator attaches to a
// draggable or droppable element.
type DragData struct {
	Type   EntityType     `json:"type"`
	Column *domain.Column `json:"column,omitempty"`
	Task   *domain.Task   `json:"task,omitempty"`
}

// Draggable identifies the element being dragged or hovered.
type Draggable struct {
	ID   string    `json:"id"`
	Data *DragData `json:"data,omitempty"`
}

// EventKind is the drag lifecycle step an Event reports.
type EventKind string

const (
	DragStart  EventKind = "start"
	DragOver   EventKind = "over"
	DragEnd    EventKind = "end"
	DragCancel EventKind = "cancel"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case DragStart, DragOver, DragEnd, DragCancel:
		return true
	}
	return false
}

// Event is a single callback from the drag-and-drop collaborator. Over is nil
// when the pointer is not above any droppable.
type Event struct {
	Kind   EventKind  `json:"kind"`
	Active Draggable  `json:"active"`
	Over   *Draggable `json:"over,omitempty"`
}

// hasDraggableData reports whether d carries a recognized type together with
// the matching payload.
func hasDraggableData(d *Draggable) bool {
	if d == nil || d.Data == nil {
		return false
	}
	switch d.Data.Type {
	case EntityColumn:
		return d.Data.Column != nil
	case EntityTask:
		return d.Data.Task != nil
	}
	return false
}

func isType(d *Draggable, t EntityType) bool {
	return hasDraggableData(d) && d.Data.Type == t
}
