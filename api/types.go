package api

import (
	"context"

	"trello-cloney/domain"
)

// Authenticator is implemented by types able to identify the caller from the
// Authorization header.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
	// SessionFromAuthHeader never fails; an absent or invalid token yields
	// domain.SignedOut.
	SessionFromAuthHeader(string) domain.Session
}

// Deduper prevents processing of duplicate drag events.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the update fails.
	Remove(ctx context.Context, userID, key string) error
}

// ActivitySink receives the activities produced by board changes.
type ActivitySink interface {
	PublishActivities(ctx context.Context, userID string, acts []domain.Activity) error
}

// ViewNotifier tells stream subscribers that a view changed.
type ViewNotifier interface {
	Notify(ctx context.Context, userID, viewID string)
}

// Pinger is implemented by dependencies that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Publisher accepts activities for asynchronous delivery.
type Publisher interface {
	Publish(userID string, acts []domain.Activity)
}
