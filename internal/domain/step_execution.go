package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepExecution — запись выполнения одного шага шаблона в рамках
// одного экземпляра процесса.
//
// StepExecution создаётся для каждого шага шаблона при создании
// экземпляра: шаг с order 1 — IN_PROGRESS, остальные — PENDING.
// В COMPLETED/REJECTED переходит только через движок. Назад сам
// не переходит: директива PREVIOUS реактивирует соседний
// StepExecution, а не откатывает текущий.
type StepExecution struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// InstanceID — ссылка на экземпляр процесса.
	InstanceID uuid.UUID `json:"instance_id"`

	// StepID — ссылка на шаг шаблона.
	StepID uuid.UUID `json:"step_id"`

	// StepOrder — order шага шаблона (денормализован для выборок).
	StepOrder int `json:"step_order"`

	// Status — текущий статус.
	Status StepExecStatus `json:"status"`

	// Action — токен действия, выбранный при завершении.
	Action string `json:"action,omitempty"`

	// Comment — комментарий исполнителя.
	Comment string `json:"comment,omitempty"`

	// Metadata — локальные данные шага (JSON). Для INPUT шагов
	// сливаются в formData экземпляра при завершении.
	Metadata map[string]any `json:"metadata,omitempty"`

	// ExecutorID — пользователь, завершивший шаг.
	ExecutorID *uuid.UUID `json:"executor_id,omitempty"`

	// ActivatedAt — время последней активации (перехода в IN_PROGRESS).
	ActivatedAt *time.Time `json:"activated_at,omitempty"`

	// CompletedAt — время завершения.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// DueAt — дедлайн SLA. Информационный, движок по нему не
	// переключает шаг.
	DueAt *time.Time `json:"due_at,omitempty"`

	// SignedAt — время, когда все подписи шага были собраны.
	SignedAt *time.Time `json:"signed_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// Activate переводит шаг в IN_PROGRESS и вычисляет DueAt по SLA шага.
// Вызывается и для первичной активации из PENDING, и для реактивации
// по директивам PREVIOUS / числовой order.
func (e *StepExecution) Activate(step *Step, now time.Time) {
	e.Status = StepExecInProgress
	e.ActivatedAt = &now
	if step != nil && step.SLAHours > 0 {
		due := now.Add(time.Duration(step.SLAHours) * time.Hour)
		e.DueAt = &due
	}
}

// Complete завершает шаг с данными действия.
func (e *StepExecution) Complete(action, comment string, metadata map[string]any, executorID uuid.UUID, now time.Time) {
	e.Status = StepExecCompleted
	e.Action = action
	e.Comment = comment
	if metadata != nil {
		e.Metadata = metadata
	}
	e.ExecutorID = &executorID
	e.CompletedAt = &now
}

// Reject завершает шаг отказом.
func (e *StepExecution) Reject(action, comment string, executorID uuid.UUID, now time.Time) {
	e.Status = StepExecRejected
	e.Action = action
	e.Comment = comment
	e.ExecutorID = &executorID
	e.CompletedAt = &now
}

// IsOverdue проверяет, просрочен ли активный шаг.
func (e *StepExecution) IsOverdue(now time.Time) bool {
	return e.Status == StepExecInProgress && e.DueAt != nil && now.After(*e.DueAt)
}
