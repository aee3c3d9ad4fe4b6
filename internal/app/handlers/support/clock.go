package support

import "time"

// Now reads clock, defaulting to the wall clock. Results are always UTC.
func Now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
