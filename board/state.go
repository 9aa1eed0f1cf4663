package board

import (
	"errors"
	"fmt"
	"slices"

	"trello-cloney/domain"
)

var (
	// ErrTaskNotFound is returned when an operation references a task that is
	// not on the board.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUnknownEventKind is returned by Dispatch for events it cannot route.
	ErrUnknownEventKind = errors.New("unknown drag event kind")
	// ErrInvalidState is returned by Validate when the board breaks one of its
	// invariants.
	ErrInvalidState = errors.New("invalid board state")
)

// DragSession tracks the drag currently in progress. At most one of
// ActiveColumn and ActiveTask is set.
type DragSession struct {
	PickedUpColumn   *domain.ColumnID `json:"pickedUpColumn,omitempty"`
	PickedUpPosition int              `json:"pickedUpPosition,omitempty"`
	ActiveColumn     *domain.Column   `json:"activeColumn,omitempty"`
	ActiveTask       *domain.Task     `json:"activeTask,omitempty"`
}

// Active reports whether a drag is in progress.
func (d DragSession) Active() bool {
	return d.ActiveColumn != nil || d.ActiveTask != nil
}

// State is the full state of one board view. Tasks is the single ordering
// source for every column: a column's cards are the tasks tagged with its id,
// in list order.
type State struct {
	Columns []domain.Column `json:"columns"`
	Tasks   []domain.Task   `json:"tasks"`
	Drag    DragSession     `json:"drag"`
}

// Options tunes how drag events are applied.
type Options struct {
	// ResortOnDrop re-runs a stable priority sort when a task is dropped.
	ResortOnDrop bool
}

// Outcome is the result of dispatching one event.
type Outcome struct {
	// Announcement is the text for assistive technology, empty when the
	// transition has nothing to announce.
	Announcement string
	// Changed is true when the column list or the task list changed.
	Changed bool
	// Activities lists the completed changes worth exporting.
	Activities []domain.Activity
}

// New returns a board seeded with the default columns and tasks, sorted.
func New() *State {
	return &State{
		Columns: domain.DefaultColumns(),
		Tasks:   domain.SortTasks(domain.SeedTasks()),
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := &State{
		Columns: slices.Clone(s.Columns),
		Tasks:   make([]domain.Task, len(s.Tasks)),
	}
	for i, t := range s.Tasks {
		out.Tasks[i] = cloneTask(t)
	}
	if s.Drag.PickedUpColumn != nil {
		id := *s.Drag.PickedUpColumn
		out.Drag.PickedUpColumn = &id
	}
	out.Drag.PickedUpPosition = s.Drag.PickedUpPosition
	if s.Drag.ActiveColumn != nil {
		col := *s.Drag.ActiveColumn
		out.Drag.ActiveColumn = &col
	}
	if s.Drag.ActiveTask != nil {
		t := cloneTask(*s.Drag.ActiveTask)
		out.Drag.ActiveTask = &t
	}
	return out
}

func cloneTask(t domain.Task) domain.Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}

// Validate checks the board invariants: unique column and task ids, valid
// priorities, and every task tagged with an existing column.
func (s *State) Validate() error {
	cols := make(map[domain.ColumnID]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if _, dup := cols[c.ID]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalidState, c.ID)
		}
		cols[c.ID] = struct{}{}
	}
	tasks := make(map[string]struct{}, len(s.Tasks))
	for _, t := range s.Tasks {
		if _, dup := tasks[t.ID]; dup {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidState, t.ID)
		}
		tasks[t.ID] = struct{}{}
		if _, ok := cols[t.ColumnID]; !ok {
			return fmt.Errorf("%w: task %q references unknown column %q", ErrInvalidState, t.ID, t.ColumnID)
		}
		if !t.Priority.Valid() {
			return fmt.Errorf("%w: task %q has priority %d", ErrInvalidState, t.ID, t.Priority)
		}
	}
	return nil
}

// ColumnTasks returns the tasks shown in the given column.
func (s *State) ColumnTasks(id domain.ColumnID) []domain.Task {
	return domain.TasksInColumn(s.Tasks, id)
}

// Dispatch applies a drag event to the board and the drag session.
// Events carrying unrecognized data are ignored.
func (s *State) Dispatch(ev Event, opts Options) (Outcome, error) {
	switch ev.Kind {
	case DragStart:
		return s.dragStart(ev), nil
	case DragOver:
		return s.dragOver(ev), nil
	case DragEnd:
		return s.dragEnd(ev, opts), nil
	case DragCancel:
		return s.dragCancel(ev), nil
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownEventKind, ev.Kind)
	}
}

// DeleteTask removes the task with the given id. Deleting the task being
// dragged ends the drag.
func (s *State) DeleteTask(id string) (domain.Activity, error) {
	idx := domain.IndexOfTask(s.Tasks, id)
	if idx < 0 {
		return domain.Activity{}, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	removed := s.Tasks[idx]
	s.Tasks = slices.Delete(slices.Clone(s.Tasks), idx, idx+1)
	if s.Drag.ActiveTask != nil && s.Drag.ActiveTask.ID == id {
		s.clearSession()
	}
	return newActivity(domain.ActivityTaskDeleted, "task", removed.ID, removed), nil
}

func (s *State) clearSession() {
	s.Drag = DragSession{}
}

func (s *State) dragStart(ev Event) Outcome {
	if !hasDraggableData(&ev.Active) {
		return Outcome{}
	}
	switch ev.Active.Data.Type {
	case EntityColumn:
		idx := domain.IndexOfColumn(s.Columns, domain.ColumnID(ev.Active.ID))
		if idx < 0 {
			return Outcome{}
		}
		col := s.Columns[idx]
		s.Drag.ActiveColumn = &col
		s.Drag.ActiveTask = nil
		return Outcome{Announcement: announcePickedUpColumn(col, idx, len(s.Columns))}
	case EntityTask:
		idx := domain.IndexOfTask(s.Tasks, ev.Active.ID)
		if idx < 0 {
			return Outcome{}
		}
		task := cloneTask(s.Tasks[idx])
		columnID := task.ColumnID
		pos, count := s.positionInColumn(task.ID, columnID)
		s.Drag.ActiveTask = &task
		s.Drag.ActiveColumn = nil
		s.Drag.PickedUpColumn = &columnID
		s.Drag.PickedUpPosition = pos
		return Outcome{Announcement: announcePickedUpTask(task, pos, count, s.columnTitle(columnID))}
	}
	return Outcome{}
}

func (s *State) dragOver(ev Event) Outcome {
	over := ev.Over
	if over == nil || ev.Active.ID == over.ID {
		return Outcome{}
	}
	if !hasDraggableData(&ev.Active) || !hasDraggableData(over) {
		return Outcome{}
	}

	if isType(&ev.Active, EntityColumn) {
		if !isType(over, EntityColumn) {
			return Outcome{}
		}
		activeIdx := domain.IndexOfColumn(s.Columns, domain.ColumnID(ev.Active.ID))
		overIdx := domain.IndexOfColumn(s.Columns, domain.ColumnID(over.ID))
		if activeIdx < 0 || overIdx < 0 {
			return Outcome{}
		}
		return Outcome{Announcement: announceColumnOver(s.Columns[activeIdx], s.Columns[overIdx], overIdx, len(s.Columns))}
	}

	activeIdx := domain.IndexOfTask(s.Tasks, ev.Active.ID)
	if activeIdx < 0 {
		return Outcome{}
	}

	switch over.Data.Type {
	case EntityTask:
		overIdx := domain.IndexOfTask(s.Tasks, over.ID)
		if overIdx < 0 {
			return Outcome{}
		}
		before := s.snapshotOrder()
		overColumn := s.Tasks[overIdx].ColumnID
		if s.Tasks[activeIdx].ColumnID != overColumn {
			s.Tasks = slices.Clone(s.Tasks)
			s.Tasks[activeIdx].ColumnID = overColumn
			s.Tasks = domain.MoveBefore(s.Tasks, activeIdx, overIdx)
		} else {
			s.Tasks = domain.ArrayMove(s.Tasks, activeIdx, overIdx)
		}
		s.refreshActiveTask()
		pos, count := s.positionInColumn(over.ID, overColumn)
		title := s.columnTitle(overColumn)
		var text string
		if s.pickedUpFrom(overColumn) {
			text = announceTaskOverSameColumn(pos, count, title)
		} else {
			text = announceTaskOverColumn(s.Tasks[domain.IndexOfTask(s.Tasks, ev.Active.ID)], pos, count, title)
		}
		return Outcome{Announcement: text, Changed: !s.sameOrder(before)}
	case EntityColumn:
		columnID := domain.ColumnID(over.ID)
		if domain.IndexOfColumn(s.Columns, columnID) < 0 {
			return Outcome{}
		}
		if s.Tasks[activeIdx].ColumnID == columnID {
			return Outcome{}
		}
		s.Tasks = slices.Clone(s.Tasks)
		s.Tasks[activeIdx].ColumnID = columnID
		s.refreshActiveTask()
		return Outcome{Changed: true}
	}
	return Outcome{}
}

func (s *State) dragEnd(ev Event, opts Options) Outcome {
	session := s.Drag
	s.clearSession()

	if !hasDraggableData(&ev.Active) {
		return Outcome{}
	}
	over := ev.Over
	if ev.Active.Data.Type == EntityColumn {
		if !isType(over, EntityColumn) {
			return Outcome{}
		}
		return s.dropColumn(ev.Active.ID, over.ID)
	}

	var out Outcome
	if opts.ResortOnDrop && over != nil && over.ID != ev.Active.ID {
		before := s.snapshotOrder()
		s.Tasks = domain.SortByPriority(slices.Clone(s.Tasks))
		out.Changed = !s.sameOrder(before)
	}
	// Hover already moved the task; the drop only reports where it landed.
	out.Activities = s.taskDropActivities(ev.Active.ID, session)
	if !isType(over, EntityTask) {
		return out
	}
	overIdx := domain.IndexOfTask(s.Tasks, over.ID)
	if overIdx < 0 {
		return out
	}
	overColumn := s.Tasks[overIdx].ColumnID
	pos, count := s.positionInColumn(over.ID, overColumn)
	title := s.columnTitle(overColumn)
	if session.PickedUpColumn != nil && *session.PickedUpColumn == overColumn {
		out.Announcement = announceTaskDroppedSameColumn(pos, count, title)
	} else {
		out.Announcement = announceTaskDroppedColumn(pos, count, title)
	}
	return out
}

func (s *State) dropColumn(activeID, overID string) Outcome {
	activeIdx := domain.IndexOfColumn(s.Columns, domain.ColumnID(activeID))
	overIdx := domain.IndexOfColumn(s.Columns, domain.ColumnID(overID))
	if activeIdx < 0 || overIdx < 0 {
		return Outcome{}
	}
	var out Outcome
	if activeIdx != overIdx {
		s.Columns = domain.ArrayMove(s.Columns, activeIdx, overIdx)
		out.Changed = true
		out.Activities = []domain.Activity{newActivity(domain.ActivityColumnMoved, "column", activeID,
			domain.ColumnMovedData{From: activeIdx, To: overIdx})}
	}
	out.Announcement = announceColumnDropped(s.Columns[overIdx], overIdx, len(s.Columns))
	return out
}

func (s *State) dragCancel(ev Event) Outcome {
	s.clearSession()
	if !hasDraggableData(&ev.Active) {
		return Outcome{}
	}
	return Outcome{Announcement: announceCancelled(ev.Active.Data.Type)}
}

// taskDropActivities reports where the dropped task ended up relative to
// where it was picked up.
func (s *State) taskDropActivities(taskID string, session DragSession) []domain.Activity {
	idx := domain.IndexOfTask(s.Tasks, taskID)
	if idx < 0 || session.PickedUpColumn == nil {
		return nil
	}
	task := s.Tasks[idx]
	from := *session.PickedUpColumn
	if task.ColumnID != from {
		return []domain.Activity{newActivity(domain.ActivityTaskMoved, "task", task.ID,
			domain.TaskMovedData{From: from, To: task.ColumnID})}
	}
	pos, _ := s.positionInColumn(task.ID, task.ColumnID)
	if pos != session.PickedUpPosition {
		return []domain.Activity{newActivity(domain.ActivityTaskReordered, "task", task.ID,
			domain.TaskReorderedData{ColumnID: task.ColumnID, Position: pos})}
	}
	return nil
}

func (s *State) pickedUpFrom(columnID domain.ColumnID) bool {
	return s.Drag.PickedUpColumn != nil && *s.Drag.PickedUpColumn == columnID
}

// refreshActiveTask keeps the floating preview in sync with the list.
func (s *State) refreshActiveTask() {
	if s.Drag.ActiveTask == nil {
		return
	}
	if idx := domain.IndexOfTask(s.Tasks, s.Drag.ActiveTask.ID); idx >= 0 {
		t := cloneTask(s.Tasks[idx])
		s.Drag.ActiveTask = &t
	}
}

// positionInColumn returns the zero-based position of the task among the
// tasks of the column, and the number of tasks in the column.
func (s *State) positionInColumn(taskID string, columnID domain.ColumnID) (int, int) {
	inColumn := s.ColumnTasks(columnID)
	return domain.IndexOfTask(inColumn, taskID), len(inColumn)
}

func (s *State) columnTitle(id domain.ColumnID) string {
	if idx := domain.IndexOfColumn(s.Columns, id); idx >= 0 {
		return s.Columns[idx].Title
	}
	return string(id)
}

type orderKey struct {
	id     string
	column domain.ColumnID
}

func (s *State) snapshotOrder() []orderKey {
	out := make([]orderKey, len(s.Tasks))
	for i, t := range s.Tasks {
		out[i] = orderKey{id: t.ID, column: t.ColumnID}
	}
	return out
}

func (s *State) sameOrder(before []orderKey) bool {
	return slices.Equal(before, s.snapshotOrder())
}
