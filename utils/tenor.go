package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tenor is a parsed tenor string such as "1W", "3M" or "10Y".
type Tenor struct {
	N    int
	Unit byte // 'D', 'W', 'M' or 'Y'
}

// ParseTenor parses tenor strings like "1D", "1W", "3M", "10Y".
func ParseTenor(s string) (Tenor, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if len(s) < 2 {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid tenor %q", s)
	}
	unit := s[len(s)-1]
	switch unit {
	case 'D', 'W', 'M', 'Y':
	default:
		return Tenor{}, fmt.Errorf("ParseTenor: unknown unit in %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Tenor{}, fmt.Errorf("ParseTenor: invalid count in %q", s)
	}
	return Tenor{N: n, Unit: unit}, nil
}

func (t Tenor) String() string {
	return strconv.Itoa(t.N) + string(t.Unit)
}

// Months returns the tenor length in months, or 0 for day/week tenors.
func (t Tenor) Months() int {
	switch t.Unit {
	case 'M':
		return t.N
	case 'Y':
		return 12 * t.N
	default:
		return 0
	}
}

// AddTo adds the tenor to d without business-day adjustment. Month and year
// tenors use EDATE semantics.
func (t Tenor) AddTo(d time.Time) time.Time {
	switch t.Unit {
	case 'D':
		return d.AddDate(0, 0, t.N)
	case 'W':
		return d.AddDate(0, 0, 7*t.N)
	default:
		return AddMonth(d, t.Months())
	}
}
