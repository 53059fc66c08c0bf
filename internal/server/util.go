package server

import "time"

var monotonicBase = time.Now()

// monotonicNanos orders buzzer and answer events. It reads the process
// monotonic clock, so NTP adjustments cannot reorder events recorded by the
// same instance.
func monotonicNanos() int64 {
	return time.Since(monotonicBase).Nanoseconds()
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
