// ABOUTME: Tests for DateExtractor pattern matching and parsing
// ABOUTME: Covers every supported form, boundaries and out-of-range values
package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateExtractor_Forms(t *testing.T) {
	de := NewDateExtractor()

	tests := []struct {
		name string
		text string
		want []time.Time
	}{
		{"iso", "published 2023-05-01 in the morning", []time.Time{day(2023, 5, 1)}},
		{"slash", "on 2023/5/1", []time.Time{day(2023, 5, 1)}},
		{"chinese full", "事件发生在2023年5月1日", []time.Time{day(2023, 5, 1), day(2023, 5, 1)}},
		{"us", "filed 12/25/2022.", []time.Time{day(2022, 12, 25)}},
		{"dotted", "见2021.03.15报道", []time.Time{day(2021, 3, 15)}},
		{"chinese year month", "2020年7月以来", []time.Time{day(2020, 7, 1)}},
		{"unix seconds", "ts=1700000000", []time.Time{time.Unix(1700000000, 0).UTC()}},
		{"unix millis", "ts=1700000000123", []time.Time{time.UnixMilli(1700000000123).UTC()}},
		{"no dates", "地震造成严重损失", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := de.Extract(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateExtractor_ChineseSentence(t *testing.T) {
	got := NewDateExtractor().Extract("事件发生在2023年5月1日")
	assert.Contains(t, got, day(2023, 5, 1))
}

func TestDateExtractor_OutOfRangeTimestamp(t *testing.T) {
	assert.Empty(t, NewDateExtractor().Extract("ts=9999999999999"))
	assert.Empty(t, NewDateExtractor().Extract("ts=4102444800"))
}

func TestDateExtractor_InvalidCalendarDate(t *testing.T) {
	de := NewDateExtractor()
	assert.Empty(t, de.Extract("2023-02-30"))
	assert.Empty(t, de.Extract("2023-13-01"))
	assert.Empty(t, de.Extract("2023年0月"))
}

func TestDateExtractor_MonthDayNeedsYear(t *testing.T) {
	de := NewDateExtractor()

	assert.Empty(t, de.Extract("5月1日发生"))

	got := de.Extract("2023-04-30报道，5月1日发生余震")
	assert.Equal(t, []time.Time{day(2023, 4, 30), day(2023, 5, 1)}, got)
}

func TestDateExtractor_Boundaries(t *testing.T) {
	de := NewDateExtractor()

	// Embedded in a longer alphanumeric token
	assert.Empty(t, de.Extract("id12023-05-01x"))
	// Longer digit run is not a unix timestamp
	assert.Empty(t, de.Extract("123456789012"))
}

func TestDateExtractor_Matches(t *testing.T) {
	matches := NewDateExtractor().ExtractMatches("从2022-01-05到2022-02-10")
	if assert.Len(t, matches, 2) {
		assert.Equal(t, FormISO, matches[0].Form)
		assert.Equal(t, "2022-01-05", matches[0].Text)
		assert.Equal(t, "2022-02-10", matches[1].Text)
		assert.Less(t, matches[0].Start, matches[1].Start)
	}
}
