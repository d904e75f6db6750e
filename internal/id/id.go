// Package id generates document identifiers using UUID v7.
package id

import (
	"time"

	"github.com/google/uuid"
)

// New returns a fresh UUID v7 together with the timestamp embedded in it,
// so the id and any create_time/update_time fields stay consistent.
func New() (uuid.UUID, time.Time) {
	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to the
		// non-monotonic variant rather than returning an error nobody can
		// act on.
		u = uuid.New()
		return u, NowMillis()
	}
	return u, Timestamp(u)
}

// Timestamp extracts the millisecond timestamp embedded in a UUID v7.
func Timestamp(u uuid.UUID) time.Time {
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC()
}

// NowMillis returns the current time truncated to millisecond precision,
// matching the resolution of UUID v7 timestamps.
func NowMillis() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
