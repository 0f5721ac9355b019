package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(t time.Time) *time.Time { return &t }

func TestEvaluate(t *testing.T) {
	t.Parallel()

	today := time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)
	midnight := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		lastLogin   *time.Time
		current     int
		wantStreak  int
		wantChanged bool
	}{
		{
			name:        "first login starts streak",
			lastLogin:   nil,
			current:     0,
			wantStreak:  1,
			wantChanged: true,
		},
		{
			name:        "login yesterday extends streak",
			lastLogin:   ptr(time.Date(2026, 5, 19, 23, 59, 0, 0, time.UTC)),
			current:     4,
			wantStreak:  5,
			wantChanged: true,
		},
		{
			name:        "yesterday early morning still counts as one day",
			lastLogin:   ptr(time.Date(2026, 5, 19, 0, 1, 0, 0, time.UTC)),
			current:     1,
			wantStreak:  2,
			wantChanged: true,
		},
		{
			name:        "gap of two days resets",
			lastLogin:   ptr(time.Date(2026, 5, 18, 12, 0, 0, 0, time.UTC)),
			current:     9,
			wantStreak:  1,
			wantChanged: true,
		},
		{
			name:        "gap of a month resets",
			lastLogin:   ptr(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)),
			current:     30,
			wantStreak:  1,
			wantChanged: true,
		},
		{
			name:        "same day is a no-op",
			lastLogin:   ptr(time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)),
			current:     3,
			wantStreak:  3,
			wantChanged: false,
		},
		{
			name:        "last login in the future is a no-op",
			lastLogin:   ptr(time.Date(2026, 5, 22, 0, 0, 0, 0, time.UTC)),
			current:     3,
			wantStreak:  3,
			wantChanged: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(today, tc.lastLogin, tc.current)
			assert.Equal(t, tc.wantStreak, got.Streak)
			assert.Equal(t, tc.wantChanged, got.Changed)
			if tc.wantChanged {
				assert.True(t, got.LastLogin.Equal(midnight), "LastLogin = %v", got.LastLogin)
			}
		})
	}
}

func TestEvaluateIsIdempotentWithinADay(t *testing.T) {
	t.Parallel()

	morning := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 1, 2, 22, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	first := Evaluate(morning, &yesterday, 7)
	assert.True(t, first.Changed)
	assert.Equal(t, 8, first.Streak)

	second := Evaluate(evening, &first.LastLogin, first.Streak)
	assert.False(t, second.Changed)
	assert.Equal(t, 8, second.Streak)
	assert.True(t, second.LastLogin.Equal(first.LastLogin))
}

func TestEvaluateUsesTodaysLocation(t *testing.T) {
	t.Parallel()

	almaty := time.FixedZone("ALMT", 5*60*60)
	// 20:00 UTC on the 19th is 01:00 on the 20th in Almaty.
	last := time.Date(2026, 5, 19, 20, 0, 0, 0, time.UTC)
	today := time.Date(2026, 5, 20, 18, 0, 0, 0, almaty)

	got := Evaluate(today, &last, 2)
	assert.False(t, got.Changed, "both logins fall on the 20th in Almaty")
	assert.Equal(t, 2, got.Streak)
}

func TestDayDiffAcrossDST(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2026-03-29 is 23 hours long in Berlin.
	a := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)
	b := time.Date(2026, 3, 30, 0, 0, 0, 0, loc)
	assert.Equal(t, 1, DayDiff(a, b))
}
