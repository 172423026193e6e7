package eventlog

import "time"

// testNow returns a fixed instant so append tests never depend on
// wall-clock time, mirroring the teacher's preference for deterministic
// fixtures in store tests.
func testNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}
