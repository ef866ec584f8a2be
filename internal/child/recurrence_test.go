package child

import (
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Processo/internal/domain"
)

// --- NextRunAt ---

func TestNextRunAt(t *testing.T) {
	from := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  domain.Recurrence
		want time.Time
	}{
		{
			name: "daily",
			rec:  domain.Recurrence{Frequency: domain.RecurrenceDaily},
			want: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "daily with interval",
			rec:  domain.Recurrence{Frequency: domain.RecurrenceDaily, Interval: 3},
			want: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "weekly",
			rec:  domain.Recurrence{Frequency: domain.RecurrenceWeekly, Interval: 2},
			want: time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly clamps day to month length",
			rec:  domain.Recurrence{Frequency: domain.RecurrenceMonthly, Interval: 1, DayOfMonth: 31},
			// 31 января + месяц, день 31 прижат к 28 февраля
			want: time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRunAt(&tt.rec, from)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("nextRunAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextRunAt_FutureStartDate(t *testing.T) {
	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	got, err := NextRunAt(&domain.Recurrence{
		Frequency: domain.RecurrenceDaily,
		StartDate: &start,
	}, from)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(start) {
		t.Errorf("nextRunAt = %v, want startDate %v", got, start)
	}
}

func TestNextRunAt_Cron(t *testing.T) {
	// Понедельник, 9 марта 2026 — следующий запуск в 09:00 вторника
	from := time.Date(2026, 3, 9, 10, 30, 0, 0, time.UTC)

	got, err := NextRunAt(&domain.Recurrence{CronExpr: "0 9 * * 2"}, from)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("nextRunAt = %v, want %v", got, want)
	}
}

func TestNextRunAt_Invalid(t *testing.T) {
	from := time.Now()

	if _, err := NextRunAt(nil, from); !errors.Is(err, ErrBadRecurrence) {
		t.Errorf("nil descriptor: error = %v, want ErrBadRecurrence", err)
	}
	if _, err := NextRunAt(&domain.Recurrence{Frequency: "HOURLY"}, from); !errors.Is(err, ErrBadRecurrence) {
		t.Errorf("unknown frequency: error = %v, want ErrBadRecurrence", err)
	}
	if _, err := NextRunAt(&domain.Recurrence{CronExpr: "not a cron"}, from); !errors.Is(err, ErrBadRecurrence) {
		t.Errorf("bad cron: error = %v, want ErrBadRecurrence", err)
	}
}

// --- ValidateRecurrence ---

func TestValidateRecurrence(t *testing.T) {
	tests := []struct {
		name    string
		rec     *domain.Recurrence
		wantErr bool
	}{
		{"nil", nil, true},
		{"daily", &domain.Recurrence{Frequency: domain.RecurrenceDaily}, false},
		{"cron", &domain.Recurrence{CronExpr: "*/5 * * * *"}, false},
		{"bad cron", &domain.Recurrence{CronExpr: "sixty * * * *"}, true},
		{"unknown frequency", &domain.Recurrence{Frequency: "HOURLY"}, true},
		{"negative interval", &domain.Recurrence{Frequency: domain.RecurrenceWeekly, Interval: -1}, true},
		{"day of month out of range", &domain.Recurrence{Frequency: domain.RecurrenceMonthly, DayOfMonth: 32}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecurrence(tt.rec)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrBadRecurrence) {
				t.Errorf("error = %v, want ErrBadRecurrence", err)
			}
		})
	}
}
