package timeslot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	s, err := ParseClock("start_time", start)
	require.NoError(t, err)
	e, err := ParseClock("end_time", end)
	require.NoError(t, err)
	return Interval{Start: s, End: e}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("date", "2099-01-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2099, 1, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("date", "10/01/2099")
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "date", fe.Field)
	assert.Contains(t, fe.Error(), "YYYY-MM-DD")
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("start_time", "09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(570), c)
	assert.Equal(t, "09:30", c.String())

	for _, raw := range []string{"9h30", "25:00", "", "12:60"} {
		_, err := ParseClock("end_time", raw)
		var fe *FormatError
		require.True(t, errors.As(err, &fe), raw)
		assert.Equal(t, "end_time", fe.Field)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name     string
		a, b     [2]string
		overlaps bool
	}{
		{"touching", [2]string{"09:00", "10:00"}, [2]string{"10:00", "11:00"}, false},
		{"partial", [2]string{"09:00", "10:30"}, [2]string{"10:00", "11:00"}, true},
		{"containing", [2]string{"08:00", "12:00"}, [2]string{"09:00", "10:00"}, true},
		{"inside", [2]string{"09:15", "09:45"}, [2]string{"09:00", "10:00"}, true},
		{"disjoint", [2]string{"07:00", "08:00"}, [2]string{"09:00", "10:00"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := mustInterval(t, tc.a[0], tc.a[1])
			b := mustInterval(t, tc.b[0], tc.b[1])
			assert.Equal(t, tc.overlaps, Overlaps(a, b))
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a))
			assert.True(t, Overlaps(a, a))
		})
	}
}

func TestIntervalValid(t *testing.T) {
	assert.True(t, mustInterval(t, "09:00", "10:00").Valid())
	assert.False(t, mustInterval(t, "10:00", "09:00").Valid())
	assert.False(t, mustInterval(t, "10:00", "10:00").Valid())
}

func TestNotInPast(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	now := time.Date(2024, 5, 10, 23, 30, 0, 0, loc)

	today, _ := ParseDate("date", "2024-05-10")
	yesterday, _ := ParseDate("date", "2024-05-09")
	tomorrow, _ := ParseDate("date", "2024-05-11")

	assert.True(t, NotInPast(today, now))
	assert.True(t, NotInPast(tomorrow, now))
	assert.False(t, NotInPast(yesterday, now))
}

func TestFirstConflict(t *testing.T) {
	slot, err := NewSlot("2099-01-10", "09:00", "10:00")
	require.NoError(t, err)
	otherDay, err := NewSlot("2099-01-11", "09:00", "10:00")
	require.NoError(t, err)
	adjacent, err := NewSlot("2099-01-10", "10:00", "11:00")
	require.NoError(t, err)

	_, found := FirstConflict([]Slot{otherDay, adjacent}, slot)
	assert.False(t, found)

	overlapping, err := NewSlot("2099-01-10", "09:30", "10:30")
	require.NoError(t, err)
	hit, found := FirstConflict([]Slot{otherDay, overlapping, slot}, slot)
	assert.True(t, found)
	assert.Equal(t, overlapping, hit)
}

func TestNewSlotReportsField(t *testing.T) {
	_, err := NewSlot("2099-01-10", "09:00", "nine")
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "end_time", fe.Field)
}
