package reports

import (
	"fmt"

	"github.com/bryanwahyu/pentest-report/internal/domain/applications"
)

// HumanDate renders a stored date as "5th June 2024". Input that is neither
// YYYY-MM-DD nor DD-MM-YYYY comes back unchanged.
func HumanDate(s string) string {
	t, ok := applications.ParseDate(s)
	if !ok {
		return s
	}
	return fmt.Sprintf("%d%s %s %d", t.Day(), ordinal(t.Day()), t.Month(), t.Year())
}

func ordinal(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
