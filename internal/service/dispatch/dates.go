package dispatch

import (
	"fmt"
	"strings"
	"time"
)

// dateTable renders the current timestamp plus a weekday-to-date lookup for
// the next seven days. The table is computed here and handed to the model so
// it never does date arithmetic itself.
func dateTable(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current date and time: %s (%s)\n", now.Format("2006-01-02 15:04"), now.Weekday())
	b.WriteString("Upcoming dates:\n")
	for i := 1; i <= 7; i++ {
		day := now.AddDate(0, 0, i)
		fmt.Fprintf(&b, "- %s: %s\n", day.Weekday(), day.Format("2006-01-02"))
	}
	return b.String()
}

// parseModelTime accepts the timestamp layouts the classifiers are instructed
// to emit. Times are interpreted in the local zone.
func parseModelTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
