package jellyfin

import "time"

const wireTimeLayout = "2006-01-02T15:04:05"

// FormatTime renders a timestamp the way the server's date-window query
// parameters expect it: UTC, second precision, trailing Z.
func FormatTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout) + "Z"
}

// ParseTime reads a server timestamp. The server emits ISO 8601 with a
// seven-digit fractional part; only the second-precision prefix is
// significant, anything after it is ignored. ok is false for values too
// short or malformed to carry a date.
func ParseTime(s string) (time.Time, bool) {
	if len(s) < len(wireTimeLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(wireTimeLayout, s[:len(wireTimeLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
