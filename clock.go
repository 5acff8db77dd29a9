package arena

import "time"

// NowMS implements Clock using the real wall clock.
func (systemClock) NowMS() int64 {
	return time.Now().UnixMilli()
}

// SystemClock returns the default Clock implementation, backed by
// time.Now. Tests that need deterministic timing should supply their own
// Clock instead.
func SystemClock() Clock {
	return systemClock{}
}
