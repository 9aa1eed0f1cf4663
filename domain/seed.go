package domain

import "time"

// DefaultColumns returns the columns every new board starts with.
func DefaultColumns() []Column {
	return []Column{
		{ID: ColumnTodo, Title: "Todo"},
		{ID: ColumnInProgress, Title: "In progress"},
		{ID: ColumnDone, Title: "Done"},
	}
}

func deadline(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// SeedTasks returns the tasks every new board starts with, in seed order.
func SeedTasks() []Task {
	return []Task{
		{ID: "task1", ColumnID: ColumnDone, Description: "Project initiation and planning", Priority: PriorityHigh, Deadline: deadline(2023, time.February, 1)},
		{ID: "task2", ColumnID: ColumnDone, Description: "Gather requirements from stakeholders", Priority: PriorityMedium, Deadline: deadline(2023, time.March, 1)},
		{ID: "task3", ColumnID: ColumnDone, Description: "Create wireframes and mockups", Priority: PriorityLow, Deadline: deadline(2023, time.March, 1)},
		{ID: "task4", ColumnID: ColumnInProgress, Description: "Develop homepage layout", Priority: PriorityHigh, Deadline: deadline(2023, time.March, 1)},
		{ID: "task5", ColumnID: ColumnInProgress, Description: "Design color scheme and typography", Priority: PriorityMedium, Deadline: deadline(2023, time.April, 1)},
		{ID: "task6", ColumnID: ColumnTodo, Description: "Implement user authentication", Priority: PriorityHigh, Deadline: deadline(2023, time.May, 1)},
		{ID: "task7", ColumnID: ColumnTodo, Description: "Build contact us page", Priority: PriorityMedium, Deadline: deadline(2023, time.June, 1)},
		{ID: "task8", ColumnID: ColumnTodo, Description: "Create product catalog", Priority: PriorityLow, Deadline: deadline(2023, time.July, 1)},
		{ID: "task9", ColumnID: ColumnTodo, Description: "Develop about us page", Priority: PriorityHigh, Deadline: deadline(2023, time.August, 1)},
		{ID: "task10", ColumnID: ColumnTodo, Description: "Optimize website for mobile devices", Priority: PriorityMedium, Deadline: deadline(2023, time.September, 1)},
		{ID: "task11", ColumnID: ColumnTodo, Description: "Integrate payment gateway", Priority: PriorityLow},
		{ID: "task12", ColumnID: ColumnTodo, Description: "Perform testing and bug fixing", Priority: PriorityHigh, Deadline: deadline(2023, time.November, 1)},
		{ID: "task13", ColumnID: ColumnTodo, Description: "Launch website and deploy to server", Priority: PriorityMedium, Deadline: deadline(2023, time.December, 1)},
	}
}
