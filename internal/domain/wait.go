package domain

import (
	"fmt"
	"strings"
	"time"
)

// FormatWait renders d for users, e.g. "2 hours 5 minutes" or "40 seconds".
// Seconds are dropped once the wait reaches an hour.
func FormatWait(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}

	d = d.Round(time.Second)
	if d < time.Second {
		d = time.Second
	}

	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	seconds := int((d % time.Minute) / time.Second)

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 && hours == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
