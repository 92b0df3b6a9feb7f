package calendar

import "time"

type monthDay struct {
	month time.Month
	day   int
}

// Fixed-date holidays observed every year. Moveable feasts (Easter, lunar new
// year, Thanksgiving) are supplied per year through WithHolidays.
var fixedHolidays = map[CalendarID][]monthDay{
	TARGET: {{time.January, 1}, {time.May, 1}, {time.December, 25}, {time.December, 26}},
	USD:    {{time.January, 1}, {time.June, 19}, {time.July, 4}, {time.November, 11}, {time.December, 25}},
	JPN:    {{time.January, 1}, {time.January, 2}, {time.January, 3}, {time.February, 11}, {time.May, 3}, {time.May, 4}, {time.May, 5}, {time.November, 3}, {time.December, 31}},
	KRW:    {{time.January, 1}, {time.March, 1}, {time.May, 5}, {time.June, 6}, {time.August, 15}, {time.October, 3}, {time.October, 9}, {time.December, 25}},
}

func fixedHoliday(cal CalendarID, m time.Month, d int) bool {
	for _, h := range fixedHolidays[cal] {
		if h.month == m && h.day == d {
			return true
		}
	}
	return false
}
