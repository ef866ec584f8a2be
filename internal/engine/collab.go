package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

// Authorizer — внешний контроль доступа. Вызывается до любой мутации.
// nil-ошибка означает "разрешено".
type Authorizer interface {
	// Authorize проверяет право актора выполнить шаг экземпляра.
	// step может быть nil для операций уровня экземпляра (отмена).
	Authorize(ctx context.Context, actorID uuid.UUID, instance *domain.ProcessInstance, step *domain.Step) error
}

// Events — шина уведомлений. Доставка best-effort: ошибки публикации
// логируются и никогда не валят переход.
type Events interface {
	TaskAssigned(ctx context.Context, instanceID uuid.UUID, code string, stepOrder int, userID, sectorID *uuid.UUID) error
	StepCompleted(ctx context.Context, instanceID uuid.UUID, code string, stepOrder int, action string) error
	ProcessCompleted(ctx context.Context, instanceID uuid.UUID, code string) error
	ProcessRejected(ctx context.Context, instanceID uuid.UUID, code string, action string) error
}

// Audit — внешний журнал аудита, fire-and-forget.
type Audit interface {
	Record(ctx context.Context, action, resource string, resourceID, actorID uuid.UUID, details map[string]any) error
}

// ChildSpawner — хук оркестратора дочерних процессов: реагирует на
// завершение шага (TRIGGERED конфигурации). Вызывается после коммита
// перехода; ошибки логируются и не влияют на переход.
type ChildSpawner interface {
	OnStepCompleted(ctx context.Context, instance *domain.ProcessInstance, exec *domain.StepExecution) error
}
