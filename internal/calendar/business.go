// Package calendar provides business-day date arithmetic for follow-up
// scheduling. Only Saturday and Sunday are skipped; holidays are not
// modelled.
package calendar

import (
	"fmt"
	"time"
)

// DueHour is the local hour of day at which follow-ups come due
const DueHour = 9

// AddBusinessDays walks forward from the calendar day after start, counting
// only Monday through Friday, and returns the date on which the running
// count reaches n. The result is never a weekend day. n must be >= 1.
//
// Monday +4 lands on the same-week Friday, +8 on the following Thursday,
// +10 on the Monday two weeks later.
func AddBusinessDays(start time.Time, n int) (time.Time, error) {
	if n < 1 {
		return time.Time{}, fmt.Errorf("business day count must be >= 1, got %d", n)
	}

	d := start
	counted := 0
	for counted < n {
		d = d.AddDate(0, 0, 1)
		if isBusinessDay(d) {
			counted++
		}
	}
	return d, nil
}

// DueTime computes the due timestamp for a follow-up: n business days after
// sentAt, pinned to 09:00 in sentAt's location. No timezone conversion is
// performed.
func DueTime(sentAt time.Time, n int) (time.Time, error) {
	d, err := AddBusinessDays(sentAt, n)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), DueHour, 0, 0, 0, sentAt.Location()), nil
}

func isBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
