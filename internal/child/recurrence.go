package child

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Processo/internal/domain"
)

// cronParser — парсер cron-выражений для SCHEDULED режима.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRunAt вычисляет следующее время запуска по дескриптору.
//
// Функция чистая и передетерминируема в любой момент: движку не нужен
// фоновый планировщик, достаточно поля nextRunAt для внешнего поллера.
//
// Отсчёт идёт от rec.StartDate, если он задан и позже from, иначе
// от from.
func NextRunAt(rec *domain.Recurrence, from time.Time) (time.Time, error) {
	if rec == nil {
		return time.Time{}, fmt.Errorf("%w: descriptor is nil", ErrBadRecurrence)
	}

	if rec.IsCron() {
		return nextCron(rec.CronExpr, from)
	}

	base := from
	if rec.StartDate != nil && rec.StartDate.After(from) {
		// Первый запуск ещё не наступил
		return rec.StartDate.UTC(), nil
	}

	interval := rec.Interval
	if interval <= 0 {
		interval = 1
	}

	switch rec.Frequency {
	case domain.RecurrenceDaily:
		return base.AddDate(0, 0, interval).UTC(), nil

	case domain.RecurrenceWeekly:
		return base.AddDate(0, 0, 7*interval).UTC(), nil

	case domain.RecurrenceMonthly:
		day := rec.DayOfMonth
		if day == 0 {
			day = base.Day()
		}
		// Якорь на первом числе целевого месяца, иначе AddDate
		// нормализует "31 февраля" в начало марта до прижатия
		next := time.Date(base.Year(), base.Month()+time.Month(interval), 1,
			base.Hour(), base.Minute(), base.Second(), 0, base.Location())
		return clampDayOfMonth(next, day).UTC(), nil

	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", ErrBadRecurrence, rec.Frequency)
	}
}

// nextCron вычисляет следующее время по cron-выражению.
func nextCron(expr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse cron %q: %v", ErrBadRecurrence, expr, err)
	}
	return schedule.Next(from).UTC(), nil
}

// clampDayOfMonth ставит день месяца, прижимая его к длине месяца
// (31 в апреле становится 30, 31 в феврале — 28/29).
func clampDayOfMonth(t time.Time, day int) time.Time {
	last := lastDayOfMonth(t.Year(), t.Month())
	if day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

// lastDayOfMonth возвращает число дней в месяце.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidateRecurrence проверяет дескриптор при создании конфигурации.
func ValidateRecurrence(rec *domain.Recurrence) error {
	if rec == nil {
		return fmt.Errorf("%w: descriptor is nil", ErrBadRecurrence)
	}
	if rec.IsCron() {
		if _, err := cronParser.Parse(rec.CronExpr); err != nil {
			return fmt.Errorf("%w: %v", ErrBadRecurrence, err)
		}
		return nil
	}
	switch rec.Frequency {
	case domain.RecurrenceDaily, domain.RecurrenceWeekly, domain.RecurrenceMonthly:
	default:
		return fmt.Errorf("%w: unknown frequency %q", ErrBadRecurrence, rec.Frequency)
	}
	if rec.Interval < 0 {
		return fmt.Errorf("%w: negative interval", ErrBadRecurrence)
	}
	if rec.DayOfMonth < 0 || rec.DayOfMonth > 31 {
		return fmt.Errorf("%w: day_of_month %d out of range", ErrBadRecurrence, rec.DayOfMonth)
	}
	return nil
}
