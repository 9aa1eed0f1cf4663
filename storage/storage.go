package storage

import (
	"context"
	"errors"

	"trello-cloney/board"
)

var (
	// ErrViewNotFound is returned when a view does not exist, has expired, or
	// belongs to another user.
	ErrViewNotFound = errors.New("view not found")
	// ErrConcurrencyConflict indicates that the view changed underneath an
	// update too many times in a row.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

// ViewStore keeps the state of open board views. Views are ephemeral: they
// expire and are never written to durable storage.
type ViewStore interface {
	Create(ctx context.Context, userID, viewID string, st *board.State) error
	Load(ctx context.Context, userID, viewID string) (*board.State, error)
	// Update runs fn against the current state and stores the result. When fn
	// returns an error nothing is stored and the error is returned.
	Update(ctx context.Context, userID, viewID string, fn func(*board.State) error) (*board.State, error)
}

func viewKey(userID, viewID string) string {
	return "view:" + userID + ":" + viewID
}
