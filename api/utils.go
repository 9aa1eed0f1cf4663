package api

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"trello-cloney/domain"
)

var (
	lastTimestamp int64
)

// nextTimestamp returns a strictly increasing nanosecond timestamp.
func nextTimestamp() int64 {
	return nextTimestampRange(1)
}

// nextTimestampRange reserves count consecutive timestamps and returns the
// first one. It returns 0 when count is not positive.
func nextTimestampRange(count int) int64 {
	if count <= 0 {
		return 0
	}
	n := int64(count)
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now+n-1) {
			return now
		}
	}
}

// stampActivities assigns ids, the view id and consecutive timestamps to
// activities produced by a single board change.
func stampActivities(viewID string, acts []domain.Activity) {
	ts := nextTimestampRange(len(acts))
	for i := range acts {
		acts[i].ID = uuid.NewString()
		acts[i].ViewID = viewID
		acts[i].Timestamp = ts + int64(i)
	}
}
