// Package dates converts statement date notations into calendar days.
package dates

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/budgetbook/budgetbook/internal/model"
)

// Accepted year range.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Layout is the day-first notation used by Format.
const Layout = "02.01.2006"

var (
	dayFirst = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})(?:[\sT]+\d{1,2}:\d{2}(?::\d{2})?)?$`)
	isoDate  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[\sT].*)?$`)
)

// serialEpoch is day zero of spreadsheet serial dates; serial 25569 is 1970-01-01.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Parse reads DD.MM.YYYY, optionally followed by a time that is ignored, or
// YYYY-MM-DD. It reports false for anything else, including impossible days.
func Parse(text string) (model.Date, bool) {
	s := strings.TrimSpace(text)
	if m := dayFirst.FindStringSubmatch(s); m != nil {
		return build(m[3], m[2], m[1])
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return build(m[1], m[2], m[3])
	}
	return model.Date{}, false
}

func build(year, month, day string) (model.Date, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return model.Date{}, false
	}
	return Validate(y, m, d)
}

// Validate checks field ranges and that the day exists in the month.
func Validate(year, month, day int) (model.Date, bool) {
	if day < 1 || day > 31 || month < 1 || month > 12 || year < MinYear || year > MaxYear {
		return model.Date{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return model.Date{}, false
	}
	return model.DateOf(t), true
}

// FromSerial converts a spreadsheet serial day number.
func FromSerial(serial float64) (model.Date, bool) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 1 {
		return model.Date{}, false
	}
	t := serialEpoch.AddDate(0, 0, int(math.Floor(serial)))
	return Validate(t.Year(), int(t.Month()), t.Day())
}

// FromTime truncates a native date-time value to its day.
func FromTime(t time.Time) (model.Date, bool) {
	if t.IsZero() {
		return model.Date{}, false
	}
	y, m, d := t.Date()
	return Validate(y, int(m), d)
}

// Format renders d as DD.MM.YYYY.
func Format(d model.Date) string {
	return d.Format(Layout)
}
