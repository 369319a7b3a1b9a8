package system

import "time"

var timeNow = time.Now

// processStart anchors all runtime timestamps. Go's time.Time carries a
// monotonic reading, so Sub is immune to wall-clock adjustments.
var processStart = timeNow()

// NowNanos returns nanoseconds since process start. Used for both
// submitted_at and completed_at so the two are always comparable
// within a deployment.
func NowNanos() int64 {
	return timeNow().Sub(processStart).Nanoseconds()
}
