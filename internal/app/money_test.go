package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoundUp(t *testing.T) {
	cases := map[string]string{
		"0.5":    "1",
		"2.5":    "3",
		"2.4":    "2",
		"76.999": "77",
		"400":    "400",
		"0.0033": "0",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got := roundUp(d(in))
			assert.True(t, d(want).Equal(got), "roundUp(%s) = %s, want %s", in, got, want)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysBetween(base, base))
	assert.Equal(t, 1, daysBetween(base, base.AddDate(0, 0, 1)))
	assert.Equal(t, 3, daysBetween(base.AddDate(0, 0, -3), base))
	assert.Equal(t, -2, daysBetween(base, base.AddDate(0, 0, -2)))
	assert.Equal(t, 29, daysBetween(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDaysBetween_IgnoresClockAndZone(t *testing.T) {
	east := time.FixedZone("UTC+3", 3*60*60)
	from := time.Date(2024, time.March, 14, 23, 30, 0, 0, east)
	to := time.Date(2024, time.March, 15, 0, 15, 0, 0, east)

	assert.Equal(t, 1, daysBetween(dateOf(from), dateOf(to)))
}

func TestDateOf(t *testing.T) {
	in := time.Date(2024, time.March, 15, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), dateOf(in))
}
