package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessInstance — одно выполнение ProcessType.
//
// Инвариант: пока экземпляр IN_PROGRESS, ровно один его StepExecution
// находится в статусе IN_PROGRESS. После терминального статуса — ноль.
type ProcessInstance struct {
	// ID — уникальный идентификатор экземпляра.
	ID uuid.UUID `json:"id"`

	// TypeID — ссылка на шаблон процесса.
	TypeID uuid.UUID `json:"type_id"`

	// Code — человекочитаемый код, глобально уникальный,
	// последовательный в рамках года: "PRC-2026-00042".
	// Для дочерних процессов: "{parentCode}-SUB-01".
	Code string `json:"code"`

	// Status — текущий статус экземпляра.
	Status InstanceStatus `json:"status"`

	// CurrentStepOrder — order активного шага.
	CurrentStepOrder int `json:"current_step_order"`

	// FormData — свободная карта данных процесса. Мутируется только
	// движком при завершении INPUT шагов и оркестратором дочерних
	// процессов при spawn (data mapping).
	FormData map[string]any `json:"form_data,omitempty"`

	// CreatedByID — пользователь, создавший экземпляр.
	CreatedByID uuid.UUID `json:"created_by_id"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt — время достижения терминального статуса.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// InstanceCode формирует код экземпляра для года и номера в году.
func InstanceCode(year, seq int) string {
	return fmt.Sprintf("PRC-%d-%05d", year, seq)
}

// ChildCode формирует код дочернего экземпляра от кода родителя.
func ChildCode(parentCode string, seq int) string {
	return fmt.Sprintf("%s-SUB-%02d", parentCode, seq)
}

// IsFinished возвращает true, если экземпляр в терминальном статусе.
func (p *ProcessInstance) IsFinished() bool {
	return p.Status.IsTerminal()
}

// MarkCompleted переводит экземпляр в COMPLETED.
func (p *ProcessInstance) MarkCompleted(now time.Time) {
	p.Status = InstanceCompleted
	p.CompletedAt = &now
}

// MarkRejected переводит экземпляр в REJECTED.
func (p *ProcessInstance) MarkRejected(now time.Time) {
	p.Status = InstanceRejected
	p.CompletedAt = &now
}

// MarkCancelled переводит экземпляр в CANCELLED.
func (p *ProcessInstance) MarkCancelled(now time.Time) {
	p.Status = InstanceCancelled
	p.CompletedAt = &now
}

// MergeFormData сливает metadata завершённого INPUT шага в formData.
// Более поздние значения перекрывают ранние.
func (p *ProcessInstance) MergeFormData(data map[string]any) {
	if len(data) == 0 {
		return
	}
	if p.FormData == nil {
		p.FormData = make(map[string]any, len(data))
	}
	for k, v := range data {
		p.FormData[k] = v
	}
}
