package booking

import (
	"context"
	"errors"
	"time"
)

type Service struct {
	repo         *Repository
	startHour    int
	endHour      int // exclusive
	slotDuration time.Duration
	maxPerDay    int
	now          func() time.Time
}

func NewService(repo *Repository, startHour, endHour int, slotDuration time.Duration, maxPerDay int) *Service {
	return &Service{
		repo:         repo,
		startHour:    startHour,
		endHour:      endHour,
		slotDuration: slotDuration,
		maxPerDay:    maxPerDay,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SlotTimes generates every slot start for the given calendar day, a
// pure function of configuration: starts at the business start hour and
// steps by the slot duration while the start stays before the end hour.
func (s *Service) SlotTimes(day time.Time) []time.Time {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), s.startHour, 0, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), s.endHour, 0, 0, 0, time.UTC)

	var starts []time.Time
	for current := start; current.Before(end); current = current.Add(s.slotDuration) {
		starts = append(starts, current)
	}
	return starts
}

// Slots returns the day's slots in ascending order, each marked
// unavailable when an appointment occupies its start.
func (s *Service) Slots(ctx context.Context, day time.Time) ([]Slot, error) {
	starts := s.SlotTimes(day)
	if len(starts) == 0 {
		return []Slot{}, nil
	}

	booked, err := s.repo.BookedStarts(ctx, starts[0], starts[len(starts)-1].Add(s.slotDuration))
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, len(starts))
	for i, start := range starts {
		slots[i] = Slot{
			Start:     start,
			End:       start.Add(s.slotDuration),
			Available: !booked[start],
		}
	}
	return slots, nil
}

// Book validates the slot lies exactly on a generated boundary, then
// lets the store decide the race: the per-day count is checked under the
// user row lock and slot uniqueness under the unique index.
func (s *Service) Book(ctx context.Context, userID string, slotStart time.Time, message string) (Appointment, error) {
	slotStart = slotStart.UTC()

	onGrid := false
	for _, start := range s.SlotTimes(slotStart) {
		if start.Equal(slotStart) {
			onGrid = true
			break
		}
	}
	if !onGrid {
		return Appointment{}, ErrInvalidSlot
	}

	return s.repo.Create(ctx, userID, slotStart, message, s.maxPerDay)
}

// ForUser lists the account's appointments ascending by slot start,
// optionally only those on or after fromDate.
func (s *Service) ForUser(ctx context.Context, userID string, fromDate *time.Time) ([]Appointment, error) {
	return s.repo.ListForUser(ctx, userID, fromDate)
}

func (s *Service) AllWithUsers(ctx context.Context) ([]AppointmentWithUser, error) {
	return s.repo.ListAllWithUsers(ctx)
}

func (s *Service) Cancel(ctx context.Context, userID, appointmentID string) error {
	return s.repo.Delete(ctx, appointmentID, userID)
}

func (s *Service) SlotDuration() time.Duration {
	return s.slotDuration
}

var ErrInvalidSlot = errors.New("slot start is not a valid slot boundary")
