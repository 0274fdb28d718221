// Package mirror keeps process-wide in-memory copies of the maintenance
// request and housing unit tables. Every write goes to the persistent store
// first and is applied to the copy only after the store accepted it. Store
// failures are logged here and reported to callers as a non-applied Result.
//
// Writes against the same record are not serialized: two overlapping updates
// both reach the store and the store's own ordering decides the final row.
// A Refresh whose fetch started before a concurrent write can replace the
// copy with a snapshot that lacks that write. The NOTIFY raised by the same
// write schedules another refresh, which restores it.
package mirror

import (
	"errors"
	"time"
)

// Result is the outcome of a write-through operation. When Applied is false
// the mirror was left exactly as it was before the call.
type Result[T any] struct {
	Applied bool
	Value   T
}

func applied[T any](v T) Result[T] {
	return Result[T]{Applied: true, Value: v}
}

func failed[T any]() Result[T] {
	return Result[T]{}
}

var errNoRowsAffected = errors.New("no rows affected")

func utcNow() time.Time {
	return time.Now().UTC()
}
