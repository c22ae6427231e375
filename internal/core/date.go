package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Date is a parsed calendar date. Month runs 1 to 12.
type Date struct {
	Year  int
	Month int
	Day   int
}

// MonthKey returns the zero-padded YYYY-MM key used for month filtering
// and grouping.
func (d Date) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

var (
	isoDatePattern = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	dmyDatePattern = regexp.MustCompile(`(\d{1,2})[-/](\d{1,2})[-/](\d{4})`)

	timePrefix    = regexp.MustCompile(`(?i)^\s*\d{1,2}:\d{2}\s*(?:am|pm)\s*`)
	weekdayPrefix = regexp.MustCompile(`(?i)^\s*(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+`)
	proseDate     = regexp.MustCompile(`(?i)(\d{1,2})\s+(january|february|march|april|may|june|july|august|september|october|november|december),?\s+(\d{4})`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// ParseDate resolves the date formats seen in bank exports, in a fixed
// precedence order. The first pattern that matches wins and later
// patterns are not attempted:
//
//  1. YYYY-MM-DD or YYYY/MM/DD
//  2. D-M-YYYY or D/M/YYYY, day before month
//  3. prose such as "3:04pm Mon 1 March 2024", after stripping an
//     optional time token and weekday name
//
// Anything else is unparseable and returns ok == false. There is no
// generic fallback: an ambiguous string misread as month/day would be
// worse than no date at all.
func ParseDate(raw string) (Date, bool) {
	if m := isoDatePattern.FindStringSubmatch(raw); m != nil {
		return makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := dmyDatePattern.FindStringSubmatch(raw); m != nil {
		return makeDate(atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}
	s := timePrefix.ReplaceAllString(raw, "")
	s = weekdayPrefix.ReplaceAllString(s, "")
	if m := proseDate.FindStringSubmatch(s); m != nil {
		return makeDate(atoi(m[3]), monthNumbers[strings.ToLower(m[2])], atoi(m[1]))
	}
	return Date{}, false
}

// makeDate rejects out-of-range components. A matched pattern with a
// nonsense month or day is unparseable; it does not fall through to the
// next pattern.
func makeDate(year, month, day int) (Date, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
