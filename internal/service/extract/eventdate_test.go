package extract

import (
	"testing"
	"time"
)

func TestExtractEventDate(t *testing.T) {
	// Monday.
	ref := time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		content string
		want    string
		found   bool
	}{
		{"iso date", "User's surgery is scheduled for 2026-04-10", "2026-04-10", true},
		{"us date", "User's lease ends 6/30/2026", "2026-06-30", true},
		{"month name with ordinal", "User's wedding anniversary is June 14th, 2020", "2020-06-14", true},
		{"month name plain", "User graduated in May 22 2015", "2015-05-22", true},
		{"tomorrow", "User flies out tomorrow", "2026-03-03", true},
		{"yesterday", "User adopted a dog yesterday", "2026-03-01", true},
		{"weekday resolves forward", "User has a dentist appointment on Friday", "2026-03-06", true},
		{"same weekday means next week", "User's review is on Monday", "2026-03-09", true},
		{"no date", "User enjoys gardening", "", false},
		{"invalid calendar date", "The form said 2026-02-30 which is wrong", "", false},
		{"out of range month", "Ticket 25/14/2026 is not a date", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractEventDate(tt.content, ref)
			if found != tt.found {
				t.Fatalf("found = %v, want %v (got %v)", found, tt.found, got)
			}
			if found && got.Format("2006-01-02") != tt.want {
				t.Fatalf("date = %s, want %s", got.Format("2006-01-02"), tt.want)
			}
		})
	}
}
