package appointment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotTimes(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func TestAvailableSlotsSortChronologically(t *testing.T) {
	svc, repo, _ := newTestService(t)
	for _, clock := range []string{"10:00 AM", "1:15 PM", "9:00 AM", "12:00 PM", "11:45 AM"} {
		repo.addSlot("2025-06-01", clock)
	}
	repo.addSlot("2025-06-02", "8:00 AM")

	slots, err := svc.AvailableSlots(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00 AM", "10:00 AM", "11:45 AM", "12:00 PM", "1:15 PM"}, slotTimes(slots))
}

func TestAvailableSlotsIncludesBookedAndRejectsBadDate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	s := repo.addSlot("2025-06-01", "9:00 AM")
	_, _ = repo.ReserveSlot(context.Background(), s.ID, uuid.New())

	slots, err := svc.AvailableSlots(context.Background(), "2025-06-01")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.True(t, slots[0].IsBooked)

	empty, err := svc.AvailableSlots(context.Background(), "2025-07-01")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.AvailableSlots(context.Background(), "June 1")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestOverviewStartsToday(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.addSlot("2025-05-31", "9:00 AM")
	repo.addSlot("2025-06-02", "9:00 AM")
	repo.addSlot("2025-06-01", "2:00 PM")
	repo.addSlot("2025-06-01", "10:00 AM")

	slots, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "2025-06-01", slots[0].Date)
	assert.Equal(t, "10:00 AM", slots[0].Time)
	assert.Equal(t, "2:00 PM", slots[1].Time)
	assert.Equal(t, "2025-06-02", slots[2].Date)
}

func TestAddSlotValidatesAndRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddSlot(ctx, "2025-06-01", "9:00 AM")
	require.NoError(t, err)

	_, err = svc.AddSlot(ctx, "2025-06-01", "9:00 AM")
	assert.ErrorIs(t, err, ErrSlotExists)

	for _, bad := range []string{"13:00 PM", "9:00", "9:00am", "09:60 AM", "0:30 AM"} {
		_, err = svc.AddSlot(ctx, "2025-06-01", bad)
		assert.ErrorIs(t, err, ErrInvalidSlotTime, bad)
	}

	_, err = svc.AddSlot(ctx, "2025-13-01", "9:00 AM")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = svc.AddSlot(ctx, "2025-06-01", "09:30 AM")
	assert.NoError(t, err)
}

func TestAddSlotStoresCanonicalTime(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddSlot(ctx, "2025-06-01", "09:00 AM")
	require.NoError(t, err)
	assert.Equal(t, "9:00 AM", first.Time)

	for _, same := range []string{"9:00 AM", "09:00 AM", "9:00\tAM", " 9:00 AM "} {
		_, err = svc.AddSlot(ctx, "2025-06-01", same)
		assert.ErrorIs(t, err, ErrSlotExists, same)
	}

	slots, err := svc.AvailableSlots(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"9:00 AM"}, slotTimes(slots))
}

func TestDeleteSlot(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	free := repo.addSlot("2025-06-01", "9:00 AM")
	require.NoError(t, svc.DeleteSlot(ctx, free.ID))
	_, err := repo.GetSlotByID(ctx, free.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	booked := repo.addSlot("2025-06-01", "10:00 AM")
	_, _ = repo.ReserveSlot(ctx, booked.ID, uuid.New())
	assert.ErrorIs(t, svc.DeleteSlot(ctx, booked.ID), ErrSlotBooked)

	assert.ErrorIs(t, svc.DeleteSlot(ctx, uuid.New()), ErrSlotNotFound)
}

func TestReleaseFreeSlotIsNoop(t *testing.T) {
	repo := newMemRepo()
	s := repo.addSlot("2025-06-01", "9:00 AM")

	require.NoError(t, repo.ReleaseSlot(context.Background(), s.ID, uuid.New()))
	require.NoError(t, repo.ReleaseSlot(context.Background(), s.ID, uuid.New()))
	assert.False(t, repo.slot(s.ID).IsBooked)
	assert.Nil(t, repo.slot(s.ID).AppointmentID)
}

func TestValidSlotTime(t *testing.T) {
	assert.True(t, ValidSlotTime("9:00 AM"))
	assert.True(t, ValidSlotTime("12:59 PM"))
	assert.True(t, ValidSlotTime("09:15 PM"))
	assert.False(t, ValidSlotTime("9:00"))
	assert.False(t, ValidSlotTime("21:00 PM"))
}

func TestCanonicalSlotTime(t *testing.T) {
	for in, want := range map[string]string{
		"9:00 AM":   "9:00 AM",
		"09:00 AM":  "9:00 AM",
		"12:05\tPM": "12:05 PM",
	} {
		got, ok := CanonicalSlotTime(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := CanonicalSlotTime("21:00 PM")
	assert.False(t, ok)
}
