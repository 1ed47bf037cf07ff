package booking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlotTimesCoversBusinessHours(t *testing.T) {
	svc := NewService(nil, 9, 17, 30*time.Minute, 1)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	starts := svc.SlotTimes(day)

	if len(starts) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(starts))
	}
	if want := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC); !starts[0].Equal(want) {
		t.Errorf("first slot = %v, want %v", starts[0], want)
	}
	if want := time.Date(2024, 6, 3, 16, 30, 0, 0, time.UTC); !starts[len(starts)-1].Equal(want) {
		t.Errorf("last slot = %v, want %v", starts[len(starts)-1], want)
	}

	for i := 1; i < len(starts); i++ {
		if got := starts[i].Sub(starts[i-1]); got != 30*time.Minute {
			t.Errorf("gap between slot %d and %d = %v, want 30m", i-1, i, got)
		}
	}
}

func TestSlotTimesRespectsConfig(t *testing.T) {
	tests := []struct {
		name      string
		startHour int
		endHour   int
		duration  time.Duration
		want      int
	}{
		{"hour slots", 9, 17, time.Hour, 8},
		{"short window", 10, 12, 30 * time.Minute, 4},
		{"single slot", 9, 10, time.Hour, 1},
		{"duration past end hour still bounded by start", 9, 10, 45 * time.Minute, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, tt.startHour, tt.endHour, tt.duration, 1)
			starts := svc.SlotTimes(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))
			if len(starts) != tt.want {
				t.Fatalf("got %d slots, want %d", len(starts), tt.want)
			}
			end := time.Date(2024, 6, 3, tt.endHour, 0, 0, 0, time.UTC)
			for _, s := range starts {
				if !s.Before(end) {
					t.Errorf("slot start %v is not before business end %v", s, end)
				}
			}
		})
	}
}

func TestSlotTimesIgnoresTimeOfDay(t *testing.T) {
	svc := NewService(nil, 9, 17, 30*time.Minute, 1)

	midnight := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	afternoon := time.Date(2024, 6, 3, 14, 42, 7, 0, time.UTC)

	a := svc.SlotTimes(midnight)
	b := svc.SlotTimes(afternoon)
	if len(a) != len(b) {
		t.Fatalf("slot counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Errorf("slot %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestBookRejectsOffGridSlot(t *testing.T) {
	svc := NewService(nil, 9, 17, 30*time.Minute, 1)

	tests := []struct {
		name string
		slot time.Time
	}{
		{"off-grid minute", time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC)},
		{"before business hours", time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC)},
		{"at business end", time.Date(2024, 6, 3, 17, 0, 0, 0, time.UTC)},
		{"with seconds", time.Date(2024, 6, 3, 9, 0, 30, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// off-grid requests never reach the repository
			_, err := svc.Book(context.Background(), "user", tt.slot, "")
			if !errors.Is(err, ErrInvalidSlot) {
				t.Fatalf("got %v, want ErrInvalidSlot", err)
			}
		})
	}
}
