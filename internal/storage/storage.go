package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

// Storage — точка входа в хранилище.
type Storage interface {
	// View выполняет fn в read-only транзакции.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// InTx выполняет fn в serializable read-write транзакции.
	// Конфликт сериализации возвращается как ErrConflict; никакие
	// частичные изменения при ошибке fn не видны.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx — операции хранилища в рамках одной транзакции.
type Tx interface {
	// --- Шаблоны процессов ---

	// ProcessType возвращает шаблон вместе с упорядоченными шагами
	// и полями формы.
	ProcessType(ctx context.Context, id uuid.UUID) (*domain.ProcessType, error)
	CreateProcessType(ctx context.Context, t *domain.ProcessType) error
	ListProcessTypes(ctx context.Context, onlyActive bool) ([]domain.ProcessType, error)

	// --- Экземпляры процессов ---

	Instance(ctx context.Context, id uuid.UUID) (*domain.ProcessInstance, error)
	CreateInstance(ctx context.Context, p *domain.ProcessInstance) error
	UpdateInstance(ctx context.Context, p *domain.ProcessInstance) error
	ListInstances(ctx context.Context, f InstanceFilter) ([]domain.ProcessInstance, error)

	// NextInstanceSeq возвращает следующий номер кода в рамках года.
	NextInstanceSeq(ctx context.Context, year int) (int, error)

	// --- Выполнения шагов ---

	StepExecution(ctx context.Context, id uuid.UUID) (*domain.StepExecution, error)
	StepExecutionByOrder(ctx context.Context, instanceID uuid.UUID, order int) (*domain.StepExecution, error)
	ListStepExecutions(ctx context.Context, instanceID uuid.UUID) ([]domain.StepExecution, error)
	CreateStepExecution(ctx context.Context, e *domain.StepExecution) error
	UpdateStepExecution(ctx context.Context, e *domain.StepExecution) error

	// --- Вложения (метаданные) ---

	Attachment(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	Attachments(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.Attachment, error)
	CreateAttachment(ctx context.Context, a *domain.Attachment) error
	UpdateAttachment(ctx context.Context, a *domain.Attachment) error

	// AttachmentData возвращает байты вложения.
	AttachmentData(ctx context.Context, attachmentID uuid.UUID) ([]byte, error)

	// --- Подписи ---

	Requirement(ctx context.Context, id uuid.UUID) (*domain.SignatureRequirement, error)
	// Requirements возвращает требования шага, упорядоченные по order.
	Requirements(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.SignatureRequirement, error)
	CreateRequirement(ctx context.Context, r *domain.SignatureRequirement) error
	// RecordsByStep возвращает записи подписей по всем требованиям шага.
	RecordsByStep(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.SignatureRecord, error)
	CreateSignatureRecord(ctx context.Context, r *domain.SignatureRecord) error

	// --- Дочерние процессы ---

	ChildConfig(ctx context.Context, id uuid.UUID) (*domain.ChildProcessConfig, error)
	CreateChildConfig(ctx context.Context, c *domain.ChildProcessConfig) error
	UpdateChildConfig(ctx context.Context, c *domain.ChildProcessConfig) error
	ChildConfigsByParent(ctx context.Context, parentID uuid.UUID) ([]domain.ChildProcessConfig, error)
	// TriggeredConfigs возвращает включённые TRIGGERED конфигурации
	// родителя с заданным trigger_step_order.
	TriggeredConfigs(ctx context.Context, parentID uuid.UUID, stepOrder int) ([]domain.ChildProcessConfig, error)
	// DueChildConfigs возвращает включённые RECURRENT/SCHEDULED
	// конфигурации с next_run_at <= now.
	DueChildConfigs(ctx context.Context, now time.Time, limit int) ([]domain.ChildProcessConfig, error)

	ChildEdge(ctx context.Context, id uuid.UUID) (*domain.ChildProcessInstance, error)
	ChildEdgeByChildInstance(ctx context.Context, childInstanceID uuid.UUID) (*domain.ChildProcessInstance, error)
	ChildEdgesByParent(ctx context.Context, parentID uuid.UUID) ([]domain.ChildProcessInstance, error)
	CreateChildEdge(ctx context.Context, e *domain.ChildProcessInstance) error
	UpdateChildEdge(ctx context.Context, e *domain.ChildProcessInstance) error

	// NextChildSeq возвращает следующий номер дочернего процесса
	// в рамках родителя.
	NextChildSeq(ctx context.Context, parentID uuid.UUID) (int, error)
}

// InstanceFilter — параметры выборки экземпляров.
type InstanceFilter struct {
	TypeID      *uuid.UUID
	Status      domain.InstanceStatus
	CreatedByID *uuid.UUID
	Limit       int
	Offset      int
}
