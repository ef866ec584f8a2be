package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StepType — тип шага в шаблоне процесса.
type StepType string

const (
	// StepInput — шаг ввода данных. Metadata при завершении
	// сливается в formData экземпляра.
	StepInput StepType = "INPUT"

	// StepApproval — шаг согласования (aprovar/reprovar).
	StepApproval StepType = "APPROVAL"

	// StepUpload — шаг загрузки документов.
	StepUpload StepType = "UPLOAD"

	// StepReview — шаг просмотра/проверки.
	StepReview StepType = "REVIEW"

	// StepSignature — шаг сбора цифровых подписей.
	StepSignature StepType = "SIGNATURE"
)

// ProcessType — шаблон многошагового бизнес-процесса.
//
// ProcessType неизменяем после того, как на него ссылаются экземпляры:
// движок читает только снапшот шагов, привязанный к экземпляру.
type ProcessType struct {
	// ID — уникальный идентификатор шаблона.
	ID uuid.UUID `json:"id"`

	// Name — имя шаблона (например, "compra-direta", "ferias").
	Name string `json:"name"`

	// Description — описание назначения процесса.
	Description string `json:"description,omitempty"`

	// IsActive — флаг активности. Из неактивных шаблонов нельзя
	// создавать новые экземпляры.
	IsActive bool `json:"is_active"`

	// Steps — упорядоченный список шагов (order 1..N).
	Steps []Step `json:"steps,omitempty"`

	// FormFields — поля формы, заполняемые на INPUT шагах.
	FormFields []FormField `json:"form_fields,omitempty"`

	// CreatedAt — время создания шаблона.
	CreatedAt time.Time `json:"created_at"`
}

// StepByOrder возвращает шаг с заданным order или nil.
func (t *ProcessType) StepByOrder(order int) *Step {
	for i := range t.Steps {
		if t.Steps[i].Order == order {
			return &t.Steps[i]
		}
	}
	return nil
}

// Step — шаг шаблона процесса.
type Step struct {
	// ID — уникальный идентификатор шага.
	ID uuid.UUID `json:"id"`

	// TypeID — ссылка на родительский ProcessType.
	TypeID uuid.UUID `json:"type_id"`

	// Order — порядковый номер шага (1-based, уникален в рамках шаблона).
	Order int `json:"order"`

	// Name — человекочитаемое имя шага.
	Name string `json:"name"`

	// Type — тип шага: INPUT, APPROVAL, UPLOAD, REVIEW, SIGNATURE.
	Type StepType `json:"type"`

	// Actions — множество допустимых токенов действий
	// (например "aprovar", "reprovar", "concluir").
	Actions []string `json:"actions,omitempty"`

	// Conditions — карта токен действия → директива следующего шага.
	// Значение: число (order шага), "END" или "PREVIOUS".
	// Хранится как JSONB, парсится один раз в Directive (см. directive.go).
	Conditions map[string]json.RawMessage `json:"conditions,omitempty"`

	// AssignedToUserID — назначение на конкретного пользователя.
	// Взаимоисключимо с AssignedToSectorID.
	AssignedToUserID *uuid.UUID `json:"assigned_to_user_id,omitempty"`

	// AssignedToSectorID — назначение на сектор (любой его участник).
	AssignedToSectorID *uuid.UUID `json:"assigned_to_sector_id,omitempty"`

	// RequireAttachment — шаг нельзя завершить без вложений.
	RequireAttachment bool `json:"require_attachment"`

	// MinAttachments — минимальное количество вложений.
	MinAttachments int `json:"min_attachments,omitempty"`

	// MaxAttachments — максимальное количество вложений (0 — без лимита).
	MaxAttachments int `json:"max_attachments,omitempty"`

	// RequiresSignature — шаг нельзя завершить, пока не собраны
	// все требуемые подписи.
	RequiresSignature bool `json:"requires_signature"`

	// SLAHours — дедлайн шага в часах от активации (0 — без SLA).
	// Дедлайн информационный, движок по нему не переключает шаг.
	SLAHours int `json:"sla_hours,omitempty"`
}

// AllowsAction проверяет, входит ли токен в множество допустимых действий.
func (s *Step) AllowsAction(action string) bool {
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// MinRequiredAttachments возвращает действующий минимум вложений.
// RequireAttachment без явного MinAttachments означает минимум 1.
func (s *Step) MinRequiredAttachments() int {
	if !s.RequireAttachment {
		return 0
	}
	if s.MinAttachments > 0 {
		return s.MinAttachments
	}
	return 1
}

// FormFieldKind — тип поля формы.
type FormFieldKind string

const (
	FormFieldText   FormFieldKind = "TEXT"
	FormFieldNumber FormFieldKind = "NUMBER"
	FormFieldDate   FormFieldKind = "DATE"
	FormFieldSelect FormFieldKind = "SELECT"
)

// FormField — поле формы процесса.
type FormField struct {
	// ID — уникальный идентификатор поля.
	ID uuid.UUID `json:"id"`

	// TypeID — ссылка на родительский ProcessType.
	TypeID uuid.UUID `json:"type_id"`

	// Key — ключ в formData экземпляра.
	Key string `json:"key"`

	// Label — подпись для UI.
	Label string `json:"label"`

	// Kind — тип поля.
	Kind FormFieldKind `json:"kind"`

	// Required — обязательность заполнения.
	Required bool `json:"required"`

	// Options — варианты для SELECT.
	Options []string `json:"options,omitempty"`
}
