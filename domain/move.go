package domain

// ArrayMove returns a copy of items with the element at from removed and
// reinserted at to. Elements between the two positions shift by one. Indexes
// outside the slice leave the copy unchanged.
func ArrayMove[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// MoveBefore returns a copy of items with the element at from placed
// immediately before the element currently at target.
func MoveBefore[T any](items []T, from, target int) []T {
	if from < 0 || from >= len(items) || target < 0 || target >= len(items) || from == target {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	// Removing from shifts everything after it one place to the left.
	if from < target {
		target--
	}
	return ArrayMove(items, from, target)
}
