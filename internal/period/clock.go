// Package period advances date windows between dataset periods.
package period

import (
	"fmt"
	"time"

	serr "github.com/Rana718/seriesgen/internal/errors"
)

// DateLayout is the on-disk format of every window bound.
const DateLayout = "2006-01-02"

type Unit string

const (
	Days   Unit = "days"
	Weeks  Unit = "weeks"
	Months Unit = "months"
)

// Cadence is the distance between two consecutive periods.
type Cadence struct {
	Unit      Unit
	Magnitude int
}

func (c Cadence) String() string {
	return fmt.Sprintf("%d %s", c.Magnitude, c.Unit)
}

// Times returns the cadence repeated n times.
func (c Cadence) Times(n int) Cadence {
	return Cadence{Unit: c.Unit, Magnitude: c.Magnitude * n}
}

func (c Cadence) Validate() error {
	if _, err := ParseUnit(string(c.Unit)); err != nil {
		return err
	}
	if c.Magnitude < 0 {
		return serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidValue,
			"length of period must not be negative, got %d", c.Magnitude)
	}
	return nil
}

func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case Days, Weeks, Months:
		return Unit(s), nil
	}
	return "", serr.Newf(serr.CategoryConfiguration, serr.CodeInvalidPeriodUnit,
		"invalid period %q, choose from 'days', 'weeks' or 'months'", s)
}

// Advance shifts both bounds of a window by the cadence.
func Advance(from, to string, c Cadence) (string, string, error) {
	if err := c.Validate(); err != nil {
		return "", "", err
	}

	start, err := parseDate(from)
	if err != nil {
		return "", "", err
	}
	end, err := parseDate(to)
	if err != nil {
		return "", "", err
	}

	return shift(start, c).Format(DateLayout), shift(end, c).Format(DateLayout), nil
}

// AdvanceDate shifts a single date.
func AdvanceDate(d time.Time, c Cadence) (time.Time, error) {
	if err := c.Validate(); err != nil {
		return time.Time{}, err
	}
	return shift(d, c), nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, serr.Wrap(serr.CategoryConfiguration, serr.CodeInvalidDate,
			fmt.Sprintf("malformed date %q", s), err)
	}
	return d, nil
}

func shift(d time.Time, c Cadence) time.Time {
	switch c.Unit {
	case Days:
		return d.AddDate(0, 0, c.Magnitude)
	case Weeks:
		return d.AddDate(0, 0, 7*c.Magnitude)
	default:
		return addMonths(d, c.Magnitude)
	}
}

// addMonths never lets the day overflow into the next month: a day past the
// end of the target month is clamped to its last day. Clamping loses the
// original day, so windows spanning several periods are advanced from their
// first period in one step.
func addMonths(d time.Time, n int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, d.Location())
	if last := daysIn(first); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(d time.Time) int {
	y, m, _ := d.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, d.Location()).Day()
}
