package api

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

// ProcessType DTOs

// CreateProcessTypeRequest — запрос на создание шаблона процесса.
type CreateProcessTypeRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	IsActive    *bool              `json:"is_active,omitempty"`
	Steps       []StepRequest      `json:"steps"`
	FormFields  []FormFieldRequest `json:"form_fields,omitempty"`
}

// StepRequest — шаг шаблона в запросе.
type StepRequest struct {
	Order              int                        `json:"order"`
	Name               string                     `json:"name"`
	Type               domain.StepType            `json:"type"`
	Actions            []string                   `json:"actions,omitempty"`
	Conditions         map[string]json.RawMessage `json:"conditions,omitempty"`
	AssignedToUserID   *uuid.UUID                 `json:"assigned_to_user_id,omitempty"`
	AssignedToSectorID *uuid.UUID                 `json:"assigned_to_sector_id,omitempty"`
	RequireAttachment  bool                       `json:"require_attachment,omitempty"`
	MinAttachments     int                        `json:"min_attachments,omitempty"`
	MaxAttachments     int                        `json:"max_attachments,omitempty"`
	RequiresSignature  bool                       `json:"requires_signature,omitempty"`
	SLAHours           int                        `json:"sla_hours,omitempty"`
}

// FormFieldRequest — поле формы в запросе.
type FormFieldRequest struct {
	Key      string               `json:"key"`
	Label    string               `json:"label"`
	Kind     domain.FormFieldKind `json:"kind"`
	Required bool                 `json:"required,omitempty"`
	Options  []string             `json:"options,omitempty"`
}

// Instance DTOs

// CreateInstanceRequest — запрос на создание экземпляра.
type CreateInstanceRequest struct {
	CreatedByID uuid.UUID      `json:"created_by_id"`
	FormData    map[string]any `json:"form_data,omitempty"`
}

// ActorRequest — операция уровня экземпляра (отмена).
type ActorRequest struct {
	ActorID uuid.UUID `json:"actor_id"`
}

// InstanceDetailResponse — экземпляр вместе с выполнениями шагов.
type InstanceDetailResponse struct {
	Instance       *domain.ProcessInstance `json:"instance"`
	StepExecutions []domain.StepExecution  `json:"step_executions"`
}

// StepExecution DTOs

// ExecuteStepRequest — запрос на выполнение шага.
type ExecuteStepRequest struct {
	ActorID  uuid.UUID      `json:"actor_id"`
	Action   string         `json:"action,omitempty"`
	Comment  string         `json:"comment,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateAttachmentRequest — регистрация вложения шага.
// Content — байты документа, base64 в JSON.
type CreateAttachmentRequest struct {
	Filename     string    `json:"filename"`
	UploadedByID uuid.UUID `json:"uploaded_by_id"`
	Content      []byte    `json:"content"`
}

// Signature DTOs

// CreateRequirementRequest — запрос на создание требования подписи.
type CreateRequirementRequest struct {
	AttachmentID *uuid.UUID           `json:"attachment_id,omitempty"`
	UserID       *uuid.UUID           `json:"user_id,omitempty"`
	SectorID     *uuid.UUID           `json:"sector_id,omitempty"`
	Order        int                  `json:"order"`
	Type         domain.SignatureType `json:"type,omitempty"`
}

// SignRequest — запрос на подписание требования.
type SignRequest struct {
	ActorID    uuid.UUID   `json:"actor_id"`
	ActorName  string      `json:"actor_name"`
	ActorEmail string      `json:"actor_email"`
	SectorIDs  []uuid.UUID `json:"sector_ids,omitempty"`
	Credential string      `json:"credential"`
}

// SignResponse — результат подписания.
type SignResponse struct {
	Record     *domain.SignatureRecord `json:"record"`
	AllSigned  bool                    `json:"all_signed"`
	StepSigned bool                    `json:"step_signed"`
}

// Child DTOs

// CreateChildConfigRequest — запрос на создание конфигурации
// дочернего процесса.
type CreateChildConfigRequest struct {
	ChildTypeID       uuid.UUID          `json:"child_type_id"`
	Mode              domain.ChildMode   `json:"mode"`
	TriggerStepOrder  int                `json:"trigger_step_order,omitempty"`
	InputDataMapping  map[string]string  `json:"input_data_mapping,omitempty"`
	WaitForCompletion bool               `json:"wait_for_completion,omitempty"`
	Recurrence        *domain.Recurrence `json:"recurrence,omitempty"`
}

// SpawnChildRequest — запрос на ручной запуск дочернего процесса.
type SpawnChildRequest struct {
	ActorID          uuid.UUID      `json:"actor_id"`
	OverrideFormData map[string]any `json:"override_form_data,omitempty"`
}
