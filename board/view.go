package board

import "trello-cloney/domain"

// Card is a task as rendered on the board.
type Card struct {
	domain.Task
	PriorityLabel string `json:"priorityLabel"`
	Body          string `json:"body"`
}

// ColumnView is a column with its cards, derived from the task list.
type ColumnView struct {
	ID    domain.ColumnID `json:"id"`
	Title string          `json:"title"`
	Cards []Card          `json:"cards"`
}

// View is the renderable form of a board. ActiveTask and ActiveColumn drive
// the floating drag preview.
type View struct {
	Columns      []ColumnView `json:"columns"`
	ActiveTask   *Card        `json:"activeTask,omitempty"`
	ActiveColumn *ColumnView  `json:"activeColumn,omitempty"`
}

func newCard(t domain.Task) Card {
	return Card{Task: t, PriorityLabel: t.Priority.String(), Body: t.DisplayDescription()}
}

func (s *State) columnView(col domain.Column) ColumnView {
	tasks := s.ColumnTasks(col.ID)
	cards := make([]Card, len(tasks))
	for i, t := range tasks {
		cards[i] = newCard(t)
	}
	return ColumnView{ID: col.ID, Title: col.Title, Cards: cards}
}

// View derives the renderable board from s.
func (s *State) View() View {
	v := View{Columns: make([]ColumnView, len(s.Columns))}
	for i, col := range s.Columns {
		v.Columns[i] = s.columnView(col)
	}
	if s.Drag.ActiveTask != nil {
		c := newCard(*s.Drag.ActiveTask)
		v.ActiveTask = &c
	}
	if s.Drag.ActiveColumn != nil {
		cv := s.columnView(*s.Drag.ActiveColumn)
		v.ActiveColumn = &cv
	}
	return v
}
