package interval_test

import (
	"testing"
	"time"

	"github.com/lukaszraczylo/uplink/pkg/errors"
	"github.com/lukaszraczylo/uplink/pkg/interval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse tests duration literal parsing
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		// GOOD: Bare numbers are milliseconds
		{name: "bare integer", raw: "1000", want: time.Second},
		{name: "bare zero", raw: "0", want: 0},
		{name: "bare fractional", raw: "1.5", want: 1500 * time.Microsecond},
		// GOOD: Unit suffixes
		{name: "milliseconds", raw: "250ms", want: 250 * time.Millisecond},
		{name: "seconds", raw: "30s", want: 30 * time.Second},
		{name: "minutes", raw: "2m", want: 2 * time.Minute},
		{name: "hours", raw: "12h", want: 12 * time.Hour},
		{name: "days", raw: "7d", want: 7 * 24 * time.Hour},
		{name: "weeks", raw: "1w", want: 7 * 24 * time.Hour},
		{name: "months", raw: "1M", want: 30 * 24 * time.Hour},
		{name: "years", raw: "1y", want: time.Duration(365.25 * 24 * float64(time.Hour))},
		{name: "fractional with unit", raw: "1.5h", want: 90 * time.Minute},
		// BAD: Unrecognised input
		{name: "empty string", raw: "", wantErr: true},
		{name: "unknown unit", raw: "10x", wantErr: true},
		{name: "unit only", raw: "ms", wantErr: true},
		{name: "negative number with unit", raw: "-5s", wantErr: true},
		{name: "garbage", raw: "soon", wantErr: true},
		// EDGE: Uppercase minute is a month, not a minute
		{name: "uppercase M is month", raw: "2M", want: 60 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := interval.Parse(tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeBadInterval))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestIsBareNumber tests bare number detection used by the timeout warning
func TestIsBareNumber(t *testing.T) {
	assert.True(t, interval.IsBareNumber("1000"))
	assert.True(t, interval.IsBareNumber("1.5"))
	assert.False(t, interval.IsBareNumber("30s"))
	assert.False(t, interval.IsBareNumber(""))
}

// TestMustParse tests panic behaviour for invalid defaults
func TestMustParse(t *testing.T) {
	assert.Equal(t, 5*time.Minute, interval.MustParse("5m"))
	assert.Panics(t, func() { interval.MustParse("nope") })
}
