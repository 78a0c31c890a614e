package calendar

import (
	"testing"
	"time"
)

// TestAddBusinessDays_CanonicalOffsets verifies the follow-up offsets against
// the worked example: sent Monday Feb 3 2025 → Feb 7, Feb 13, Feb 17.
func TestAddBusinessDays_CanonicalOffsets(t *testing.T) {
	monday := time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		days int
		want time.Time
	}{
		{4, time.Date(2025, time.February, 7, 9, 0, 0, 0, time.UTC)},   // same-week Friday
		{8, time.Date(2025, time.February, 13, 9, 0, 0, 0, time.UTC)},  // following Thursday
		{10, time.Date(2025, time.February, 17, 9, 0, 0, 0, time.UTC)}, // Monday two weeks later
	}

	for _, tc := range cases {
		got, err := AddBusinessDays(monday, tc.days)
		if err != nil {
			t.Fatalf("AddBusinessDays(+%d): unexpected error: %v", tc.days, err)
		}
		if got.Year() != tc.want.Year() || got.Month() != tc.want.Month() || got.Day() != tc.want.Day() {
			t.Errorf("AddBusinessDays(+%d) = %s, want %s", tc.days, got.Format("2006-01-02"), tc.want.Format("2006-01-02"))
		}
	}
}

// TestAddBusinessDays_EveryMonday checks the Monday invariants over a year of
// Mondays: +4 is always Friday, +8 Thursday, +10 Monday.
func TestAddBusinessDays_EveryMonday(t *testing.T) {
	monday := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

	for week := 0; week < 52; week++ {
		start := monday.AddDate(0, 0, week*7)

		got4, _ := AddBusinessDays(start, 4)
		if got4.Weekday() != time.Friday {
			t.Errorf("%s +4 = %s, want Friday", start.Format("2006-01-02"), got4.Weekday())
		}
		if got4.Sub(start) != 4*24*time.Hour {
			t.Errorf("%s +4 should be same week, got %s", start.Format("2006-01-02"), got4.Format("2006-01-02"))
		}

		got8, _ := AddBusinessDays(start, 8)
		if got8.Weekday() != time.Thursday {
			t.Errorf("%s +8 = %s, want Thursday", start.Format("2006-01-02"), got8.Weekday())
		}

		got10, _ := AddBusinessDays(start, 10)
		if got10.Weekday() != time.Monday {
			t.Errorf("%s +10 = %s, want Monday", start.Format("2006-01-02"), got10.Weekday())
		}
		if got10.Sub(start) != 14*24*time.Hour {
			t.Errorf("%s +10 should be exactly two weeks out, got %s", start.Format("2006-01-02"), got10.Format("2006-01-02"))
		}
	}
}

// TestAddBusinessDays_WeekendStart checks that counting starts the day after
// a weekend start and never lands on a weekend.
func TestAddBusinessDays_WeekendStart(t *testing.T) {
	saturday := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)

	got, err := AddBusinessDays(saturday, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Day after Saturday is Sunday (not counted), so +1 lands on Monday Feb 3.
	if got.Day() != 3 || got.Weekday() != time.Monday {
		t.Errorf("Saturday +1 = %s (%s), want Monday Feb 3", got.Format("2006-01-02"), got.Weekday())
	}

	for n := 1; n <= 30; n++ {
		d, _ := AddBusinessDays(saturday, n)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			t.Errorf("AddBusinessDays(+%d) landed on weekend: %s", n, d.Format("2006-01-02"))
		}
	}
}

func TestAddBusinessDays_RejectsNonPositive(t *testing.T) {
	start := time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC)

	if _, err := AddBusinessDays(start, 0); err == nil {
		t.Error("expected error for n=0, got nil")
	}
	if _, err := AddBusinessDays(start, -3); err == nil {
		t.Error("expected error for negative n, got nil")
	}
}

func TestDueTime_PinsToNineLocal(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	sentAt := time.Date(2025, time.February, 3, 16, 45, 12, 0, loc)

	due, err := DueTime(sentAt, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if due.Hour() != 9 || due.Minute() != 0 || due.Second() != 0 {
		t.Errorf("due time-of-day = %02d:%02d:%02d, want 09:00:00", due.Hour(), due.Minute(), due.Second())
	}
	if due.Location() != loc {
		t.Errorf("due location = %v, want sender's location %v", due.Location(), loc)
	}
	if due.Day() != 7 {
		t.Errorf("due day = %d, want 7", due.Day())
	}
}
