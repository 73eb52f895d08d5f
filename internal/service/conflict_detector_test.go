package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-booking-api/internal/models"
	"github.com/noah-isme/lecture-booking-api/pkg/timeslot"
)

func TestScheduleConflict(t *testing.T) {
	w := newWorld()
	day := mustDate(t, "2099-01-10")
	w.schedules = []models.Schedule{
		{ID: "S1", LectureID: "L1", Date: day, StartTime: "09:00", EndTime: "10:00"},
		{ID: "S2", LectureID: "L1", Date: day, StartTime: "13:00", EndTime: "14:00", IsExpired: true},
		{ID: "S3", LectureID: "L2", Date: day, StartTime: "11:00", EndTime: "12:00"},
	}
	detector := NewConflictDetector(scheduleStub{w}, bookingStub{w})

	cases := []struct {
		name       string
		start, end string
		want       string
	}{
		{"touching after", "10:00", "11:00", ""},
		{"touching before", "08:00", "09:00", ""},
		{"overlap", "09:30", "10:30", "S1"},
		{"containing", "08:00", "12:00", "S1"},
		{"expired slot ignored", "13:00", "14:00", ""},
		{"other lecture ignored", "11:00", "12:00", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := timeslot.NewSlot("2099-01-10", tc.start, tc.end)
			require.NoError(t, err)
			hit, err := detector.ScheduleConflict(context.Background(), nil, "L1", slot)
			require.NoError(t, err)
			if tc.want == "" {
				assert.Nil(t, hit)
				return
			}
			require.NotNil(t, hit)
			assert.Equal(t, tc.want, hit.ID)
		})
	}
}

func TestBookingConflictOnlyCountsActiveBookingsOfUser(t *testing.T) {
	w := newWorld()
	day := mustDate(t, "2099-01-10")
	w.bookings = []models.Booking{
		{ID: "B1", UserID: "U1", LectureID: "L1", Date: day, StartTime: "09:00", EndTime: "10:00", Status: models.BookingCancelled},
		{ID: "B2", UserID: "U2", LectureID: "L1", Date: day, StartTime: "09:00", EndTime: "10:00", Status: models.BookingPending},
		{ID: "B3", UserID: "U1", LectureID: "L1", Date: day, StartTime: "10:00", EndTime: "11:00", Status: models.BookingConfirmed},
	}
	detector := NewConflictDetector(scheduleStub{w}, bookingStub{w})

	slot, err := timeslot.NewSlot("2099-01-10", "09:00", "10:00")
	require.NoError(t, err)
	hit, err := detector.BookingConflict(context.Background(), nil, "U1", "L1", slot)
	require.NoError(t, err)
	assert.Nil(t, hit)

	slot, err = timeslot.NewSlot("2099-01-10", "09:30", "10:30")
	require.NoError(t, err)
	hit, err = detector.BookingConflict(context.Background(), nil, "U1", "L1", slot)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "B3", hit.ID)
}
