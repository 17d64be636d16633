package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Event-date extraction is deterministic text matching, no model call. The
// reference clock anchors relative expressions like weekday names.

var (
	isoDatePattern   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usDatePattern    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	monthnamePattern = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,)?\s+(\d{4})\b`)
	weekdayPattern   = regexp.MustCompile(`(?i)\b(?:on|this|next)\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// ExtractEventDate scans content for the first recognizable date. Explicit
// dates win over relative expressions.
func ExtractEventDate(content string, ref time.Time) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(content); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := usDatePattern.FindStringSubmatch(content); m != nil {
		return buildDate(m[3], m[1], m[2])
	}
	if m := monthnamePattern.FindStringSubmatch(content); m != nil {
		month := monthsByName[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return validate(time.Date(year, month, day, 0, 0, 0, 0, time.Local), year, month, day)
	}

	lower := strings.ToLower(content)
	if strings.Contains(lower, "tomorrow") {
		return midnight(ref.AddDate(0, 0, 1)), true
	}
	if strings.Contains(lower, "yesterday") {
		return midnight(ref.AddDate(0, 0, -1)), true
	}
	if m := weekdayPattern.FindStringSubmatch(content); m != nil {
		target := weekdaysByName[strings.ToLower(m[1])]
		days := (int(target) - int(ref.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return midnight(ref.AddDate(0, 0, days)), true
	}

	return time.Time{}, false
}

func buildDate(y, m, d string) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	monthNum, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if monthNum < 1 || monthNum > 12 {
		return time.Time{}, false
	}
	return validate(time.Date(year, time.Month(monthNum), day, 0, 0, 0, 0, time.Local), year, time.Month(monthNum), day)
}

// validate rejects dates the time package silently normalized, like Feb 30.
func validate(ts time.Time, year int, month time.Month, day int) (time.Time, bool) {
	if ts.Year() != year || ts.Month() != month || ts.Day() != day {
		return time.Time{}, false
	}
	return ts, true
}

func midnight(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
