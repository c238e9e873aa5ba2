// Package interval parses human duration literals ("2m", "30s", "1000")
// into time.Duration values. Bare numbers are milliseconds.
package interval

import (
	"regexp"
	"strconv"
	"time"

	"github.com/lukaszraczylo/uplink/pkg/errors"
)

// Unit multipliers in milliseconds. M and y follow calendar averages.
const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
	msPerWeek   = 7 * msPerDay
)

var unitMillis = map[string]float64{
	"ms": 1,
	"s":  msPerSecond,
	"m":  msPerMinute,
	"h":  msPerHour,
	"d":  msPerDay,
	"w":  msPerWeek,
	"M":  30 * msPerDay,
	"y":  365.25 * msPerDay,
}

var literalRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)(ms|s|m|h|d|w|M|y)$`)

// Parse converts a duration literal into a time.Duration. A bare number is
// interpreted as milliseconds. Returns a BAD_INTERVAL error on any other input.
func Parse(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, errors.BadInterval(raw)
	}

	if ms, err := strconv.ParseFloat(raw, 64); err == nil {
		if ms < 0 {
			return 0, errors.BadInterval(raw)
		}
		return time.Duration(ms * float64(time.Millisecond)), nil
	}

	m := literalRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, errors.BadInterval(raw)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, errors.BadInterval(raw)
	}

	return time.Duration(value * unitMillis[m[2]] * float64(time.Millisecond)), nil
}

// IsBareNumber reports whether raw is a plain number without a unit suffix
func IsBareNumber(raw string) bool {
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

// MustParse is like Parse but panics on invalid input. For use with
// compile-time constants such as config defaults.
func MustParse(raw string) time.Duration {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}
