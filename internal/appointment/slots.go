package appointment

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const clockLayout = "3:04 PM"

var slotTimePattern = regexp.MustCompile(`^(0?[1-9]|1[0-2]):[0-5][0-9]\s(AM|PM)$`)

// ValidSlotTime reports whether t is a 12-hour time such as "9:00 AM".
func ValidSlotTime(t string) bool {
	return slotTimePattern.MatchString(t)
}

// CanonicalSlotTime returns t in the stored form ("9:00 AM"), so "09:00 AM"
// and "9:00\tAM" name the same slot.
func CanonicalSlotTime(t string) (string, bool) {
	if !ValidSlotTime(t) {
		return "", false
	}
	parsed, err := time.Parse(clockLayout, strings.Join(strings.Fields(t), " "))
	if err != nil {
		return "", false
	}
	return parsed.Format(clockLayout), true
}

// clockMinutes converts a 12-hour time to minutes after midnight. Unparseable
// values sort last.
func clockMinutes(t string) int {
	parsed, err := time.Parse(clockLayout, strings.Join(strings.Fields(t), " "))
	if err != nil {
		return 24 * 60
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// SortChronologically orders slots by date, then by time of day.
// "9:00 AM" sorts before "10:00 AM".
func SortChronologically(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		return clockMinutes(slots[i].Time) < clockMinutes(slots[j].Time)
	})
}

// AvailableSlots returns every slot on date, booked ones included, in
// time-of-day order.
func (s *Service) AvailableSlots(ctx context.Context, date string) ([]Slot, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}

	slots, err := s.repo.SlotsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("slots for %s: %w", date, err)
	}
	if slots == nil {
		slots = []Slot{}
	}
	SortChronologically(slots)
	return slots, nil
}

// Overview lists slots from today onwards.
func (s *Service) Overview(ctx context.Context) ([]Slot, error) {
	today := s.now().Format(dateLayout)

	slots, err := s.repo.SlotsFrom(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("slot overview: %w", err)
	}
	if slots == nil {
		slots = []Slot{}
	}
	SortChronologically(slots)
	return slots, nil
}

func (s *Service) AddSlot(ctx context.Context, date, clock string) (*Slot, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}
	clock, ok := CanonicalSlotTime(clock)
	if !ok {
		return nil, ErrInvalidSlotTime
	}

	slot, err := s.repo.InsertSlot(ctx, date, clock)
	if err != nil {
		return nil, fmt.Errorf("add slot: %w", err)
	}

	s.logger.Info().
		Str("slot_id", slot.ID.String()).
		Str("date", date).
		Str("time", clock).
		Msg("slot added")
	return slot, nil
}

// DeleteSlot removes a free slot. Booked slots are refused.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteFreeSlot(ctx, id)
	if err != nil {
		return err
	}
	if deleted {
		s.logger.Info().Str("slot_id", id.String()).Msg("slot deleted")
		return nil
	}

	// Nothing deleted: tell missing and booked apart.
	if _, err := s.repo.GetSlotByID(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return ErrSlotBooked
}
