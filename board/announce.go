package board

import (
	"fmt"

	"github.com/bytedance/sonic"

	"trello-cloney/domain"
)

// Positions are zero-based on input and announced one-based.

func announcePickedUpColumn(col domain.Column, idx, count int) string {
	return fmt.Sprintf("Picked up Column %s at position: %d of %d", col.Title, idx+1, count)
}

func announcePickedUpTask(task domain.Task, pos, count int, columnTitle string) string {
	return fmt.Sprintf("Picked up Task %s at position: %d of %d in column %s", task.Description, pos+1, count, columnTitle)
}

func announceColumnOver(active, over domain.Column, overIdx, count int) string {
	return fmt.Sprintf("Column %s was moved over %s at position %d of %d", active.Title, over.Title, overIdx+1, count)
}

func announceTaskOverColumn(task domain.Task, pos, count int, columnTitle string) string {
	return fmt.Sprintf("Task %s was moved over column %s in position %d of %d", task.Description, columnTitle, pos+1, count)
}

func announceTaskOverSameColumn(pos, count int, columnTitle string) string {
	return fmt.Sprintf("Task was moved over position %d of %d in column %s", pos+1, count, columnTitle)
}

func announceColumnDropped(col domain.Column, idx, count int) string {
	return fmt.Sprintf("Column %s was dropped into position %d of %d", col.Title, idx+1, count)
}

func announceTaskDroppedColumn(pos, count int, columnTitle string) string {
	return fmt.Sprintf("Task was dropped into column %s in position %d of %d", columnTitle, pos+1, count)
}

func announceTaskDroppedSameColumn(pos, count int, columnTitle string) string {
	return fmt.Sprintf("Task was dropped into position %d of %d in column %s", pos+1, count, columnTitle)
}

func announceCancelled(t EntityType) string {
	return fmt.Sprintf("Dragging %s cancelled.", t)
}

// newActivity builds an activity without id or timestamp; those are assigned
// when the activity is published.
func newActivity(typ, entityType, entityID string, data any) domain.Activity {
	a := domain.Activity{EntityType: entityType, EntityID: entityID, Type: typ}
	if data != nil {
		if raw, err := sonic.Marshal(data); err == nil {
			a.Data = raw
		}
	}
	return a
}
