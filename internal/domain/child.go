package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecurrenceFrequency — частота повторения для RECURRENT конфигураций.
type RecurrenceFrequency string

const (
	RecurrenceDaily   RecurrenceFrequency = "DAILY"
	RecurrenceWeekly  RecurrenceFrequency = "WEEKLY"
	RecurrenceMonthly RecurrenceFrequency = "MONTHLY"
)

// Recurrence — дескриптор повторения дочернего процесса.
//
// Для RECURRENT режима используется Frequency/Interval/DayOfMonth,
// для SCHEDULED — CronExpr. Вычисление следующего запуска — чистая
// функция child.NextRunAt, пересчитываемая в любой момент.
type Recurrence struct {
	// Frequency — DAILY, WEEKLY или MONTHLY.
	Frequency RecurrenceFrequency `json:"frequency,omitempty"`

	// Interval — шаг повторения (каждые N дней/недель/месяцев).
	// 0 трактуется как 1.
	Interval int `json:"interval,omitempty"`

	// DayOfMonth — день месяца для MONTHLY (1..31, прижимается
	// к длине месяца).
	DayOfMonth int `json:"day_of_month,omitempty"`

	// StartDate — начало отсчёта. Если nil, отсчёт от "сейчас".
	StartDate *time.Time `json:"start_date,omitempty"`

	// CronExpr — cron-выражение для SCHEDULED режима.
	// Формат: "минуты часы дни месяцы дни_недели".
	CronExpr string `json:"cron_expr,omitempty"`
}

// IsCron возвращает true, если дескриптор задан cron-выражением.
func (r *Recurrence) IsCron() bool {
	return r != nil && r.CronExpr != ""
}

// ChildProcessConfig — декларативная связка родительского экземпляра
// с шаблоном дочернего процесса.
type ChildProcessConfig struct {
	// ID — уникальный идентификатор конфигурации.
	ID uuid.UUID `json:"id"`

	// ParentInstanceID — родительский экземпляр.
	ParentInstanceID uuid.UUID `json:"parent_instance_id"`

	// ChildTypeID — шаблон дочернего процесса.
	ChildTypeID uuid.UUID `json:"child_type_id"`

	// Mode — режим запуска.
	Mode ChildMode `json:"mode"`

	// TriggerStepOrder — order шага родителя, завершение которого
	// запускает дочерний процесс (только для TRIGGERED).
	TriggerStepOrder int `json:"trigger_step_order,omitempty"`

	// InputDataMapping — карта "поле formData родителя" →
	// "поле formData дочернего".
	InputDataMapping map[string]string `json:"input_data_mapping,omitempty"`

	// WaitForCompletion — родитель учитывает завершение дочернего
	// (информация для UI/отчётов, движок родителя не блокируется).
	WaitForCompletion bool `json:"wait_for_completion"`

	// Recurrence — дескриптор повторения для RECURRENT/SCHEDULED.
	Recurrence *Recurrence `json:"recurrence,omitempty"`

	// Enabled — выключенные конфигурации игнорируются планировщиком.
	Enabled bool `json:"enabled"`

	// RunCount — количество запусков по этой конфигурации.
	RunCount int `json:"run_count"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// NextRunAt — время следующего запуска (для внешнего планировщика).
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// IsDue проверяет, пора ли запускать конфигурацию.
func (c *ChildProcessConfig) IsDue(now time.Time) bool {
	if !c.Enabled || c.NextRunAt == nil {
		return false
	}
	return !now.Before(*c.NextRunAt)
}

// RecordRun фиксирует выполненный запуск и следующее время.
func (c *ChildProcessConfig) RecordRun(now time.Time, nextRun *time.Time) {
	c.RunCount++
	c.LastRunAt = &now
	c.NextRunAt = nextRun
}

// ChildProcessInstance — реализованная связь родитель↔дочерний.
//
// Дочерний ProcessInstance — самостоятельная сущность; связь хранит
// зеркало его статуса для родителя.
type ChildProcessInstance struct {
	// ID — уникальный идентификатор связи.
	ID uuid.UUID `json:"id"`

	// ParentInstanceID — родительский экземпляр.
	ParentInstanceID uuid.UUID `json:"parent_instance_id"`

	// ChildInstanceID — дочерний экземпляр.
	ChildInstanceID uuid.UUID `json:"child_instance_id"`

	// ConfigID — конфигурация, из которой создана связь
	// (nil для ad-hoc запуска).
	ConfigID *uuid.UUID `json:"config_id,omitempty"`

	// OriginStepExecutionID — шаг родителя, завершение которого
	// породило дочерний процесс (для TRIGGERED).
	OriginStepExecutionID *uuid.UUID `json:"origin_step_execution_id,omitempty"`

	// Status — зеркало статуса дочернего экземпляра.
	Status ChildEdgeStatus `json:"status"`

	// CreatedAt — время создания связи.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt — время достижения терминального статуса связи.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ApplyChildStatus зеркалирует статус дочернего экземпляра на связь.
// Возвращает true, если статус связи изменился (нужна запись в БД).
func (e *ChildProcessInstance) ApplyChildStatus(child InstanceStatus, now time.Time) bool {
	mapped := e.Status.MirrorInstanceStatus(child)
	if mapped == e.Status {
		return false
	}
	e.Status = mapped
	if mapped.IsTerminal() {
		e.CompletedAt = &now
	}
	return true
}
