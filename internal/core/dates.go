// ABOUTME: DateExtractor finds calendar dates and unix timestamps in chunk text
// ABOUTME: Every pattern is tried independently and unparseable matches are dropped
package core

import (
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"
)

// maxUnixSeconds is 2100-01-01T00:00:00Z; timestamps must fall in (0, maxUnixSeconds)
const maxUnixSeconds = 4102444800

// DateForm identifies which textual form produced a date
type DateForm string

const (
	FormISO       DateForm = "iso"        // 2023-05-01
	FormSlash     DateForm = "slash"      // 2023/05/01
	FormCNFull    DateForm = "cn_full"    // 2023年5月1日
	FormUS        DateForm = "us"         // 05/01/2023
	FormDotted    DateForm = "dotted"     // 2023.05.01
	FormCNMonth   DateForm = "cn_month"   // 2023年5月
	FormCNDay     DateForm = "cn_day"     // 5月1日
	FormUnix      DateForm = "unix"       // 10-digit seconds
	FormUnixMilli DateForm = "unix_milli" // 13-digit milliseconds
)

type datePattern struct {
	form DateForm
	re   *regexp.Regexp
}

// Order matters: month-day matches borrow their year from earlier forms.
var datePatterns = []datePattern{
	{FormISO, regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)},
	{FormSlash, regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`)},
	{FormCNFull, regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)},
	{FormUS, regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)},
	{FormDotted, regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`)},
	{FormCNMonth, regexp.MustCompile(`(\d{4})年(\d{1,2})月`)},
	{FormCNDay, regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)},
	{FormUnix, regexp.MustCompile(`\d{10}`)},
	{FormUnixMilli, regexp.MustCompile(`\d{13}`)},
}

// DateMatch is one successfully parsed date and where it came from
type DateMatch struct {
	Form  DateForm
	Text  string
	Start int
	Date  time.Time
}

// DateExtractor scans text for dates. It holds no state and is safe for concurrent use.
type DateExtractor struct{}

// NewDateExtractor creates a new DateExtractor
func NewDateExtractor() *DateExtractor {
	return &DateExtractor{}
}

// Extract returns every parsed date in pattern order
func (de *DateExtractor) Extract(text string) []time.Time {
	matches := de.ExtractMatches(text)
	if len(matches) == 0 {
		return nil
	}
	out := make([]time.Time, len(matches))
	for i, m := range matches {
		out[i] = m.Date
	}
	return out
}

// ExtractMatches returns every parsed date with its source form and offset.
// Overlapping matches from different forms are all kept.
func (de *DateExtractor) ExtractMatches(text string) []DateMatch {
	var (
		out     []DateMatch
		pending []DateMatch // month-day matches waiting for a year
		refYear int
	)

	for _, p := range datePatterns {
		for _, loc := range findBounded(p.re, text) {
			sub := p.re.FindStringSubmatch(text[loc[0]:loc[1]])
			m := DateMatch{Form: p.form, Text: sub[0], Start: loc[0]}

			if p.form == FormCNDay {
				pending = append(pending, m)
				continue
			}

			d, ok := parseDate(p.form, sub)
			if !ok {
				continue
			}
			m.Date = d
			if refYear == 0 {
				refYear = d.Year()
			}
			out = append(out, m)
		}
	}

	// Month-day forms carry no year; without one in the same text they are dropped
	if refYear != 0 {
		for _, m := range pending {
			sub := datePatterns[6].re.FindStringSubmatch(m.Text)
			month, _ := strconv.Atoi(sub[1])
			day, _ := strconv.Atoi(sub[2])
			if d, ok := calendarDate(refYear, month, day); ok {
				m.Date = d
				out = append(out, m)
			}
		}
	}

	return out
}

// findBounded returns match locations whose neighbours are not ASCII word
// characters. A rejected candidate is retried one rune later so that a valid
// match starting inside it is still found.
func findBounded(re *regexp.Regexp, text string) [][2]int {
	var out [][2]int
	pos := 0
	for pos <= len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if bounded(text, start, end) {
			out = append(out, [2]int{start, end})
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		if size == 0 {
			break
		}
		pos = start + size
	}
	return out
}

func bounded(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isASCIIWord(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isASCIIWord(r) {
			return false
		}
	}
	return true
}

func isASCIIWord(r rune) bool {
	return r == '_' ||
		(r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z')
}

func parseDate(form DateForm, sub []string) (time.Time, bool) {
	atoi := func(i int) int {
		n, _ := strconv.Atoi(sub[i])
		return n
	}

	switch form {
	case FormISO, FormSlash, FormCNFull, FormDotted:
		return calendarDate(atoi(1), atoi(2), atoi(3))
	case FormUS:
		return calendarDate(atoi(3), atoi(1), atoi(2))
	case FormCNMonth:
		return calendarDate(atoi(1), atoi(2), 1)
	case FormUnix:
		secs, err := strconv.ParseInt(sub[0], 10, 64)
		if err != nil || secs <= 0 || secs >= maxUnixSeconds {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	case FormUnixMilli:
		millis, err := strconv.ParseInt(sub[0], 10, 64)
		if err != nil || millis <= 0 || millis >= maxUnixSeconds*1000 {
			return time.Time{}, false
		}
		return time.UnixMilli(millis).UTC(), true
	}
	return time.Time{}, false
}

// calendarDate builds a UTC midnight date, rejecting values time.Date would normalise
func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
