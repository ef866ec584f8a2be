package domain

// InstanceStatus — статус экземпляра процесса.
//
// Жизненный цикл:
//
//	IN_PROGRESS → COMPLETED
//	            ↘ REJECTED
//	            ↘ CANCELLED (внешняя отмена, не через ExecuteStep)
type InstanceStatus string

const (
	// InstanceInProgress — процесс выполняется, ровно один шаг активен.
	InstanceInProgress InstanceStatus = "IN_PROGRESS"

	// InstanceCompleted — процесс успешно завершён.
	InstanceCompleted InstanceStatus = "COMPLETED"

	// InstanceRejected — процесс завершён отказом (действие "reprovar"
	// или директива END под отклоняющим действием).
	InstanceRejected InstanceStatus = "REJECTED"

	// InstanceCancelled — процесс отменён извне.
	InstanceCancelled InstanceStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceCompleted, InstanceRejected, InstanceCancelled:
		return true
	default:
		return false
	}
}

// StepExecStatus — статус выполнения одного шага.
//
// Жизненный цикл:
//
//	PENDING → IN_PROGRESS → COMPLETED
//	                      ↘ REJECTED
//
// IN_PROGRESS достижим повторно: директива PREVIOUS или числовая
// директива реактивируют уже завершённый StepExecution.
type StepExecStatus string

const (
	// StepExecPending — шаг создан, очередь до него не дошла.
	StepExecPending StepExecStatus = "PENDING"

	// StepExecInProgress — шаг активен, ожидает действия исполнителя.
	StepExecInProgress StepExecStatus = "IN_PROGRESS"

	// StepExecCompleted — шаг выполнен.
	StepExecCompleted StepExecStatus = "COMPLETED"

	// StepExecRejected — шаг завершён отказом.
	StepExecRejected StepExecStatus = "REJECTED"
)

// IsTerminal возвращает true, если шаг завершён.
// Терминальность здесь условная: движок может реактивировать шаг.
func (s StepExecStatus) IsTerminal() bool {
	switch s {
	case StepExecCompleted, StepExecRejected:
		return true
	default:
		return false
	}
}

// ChildEdgeStatus — статус связи родитель↔дочерний процесс.
//
// Статус зеркалируется из дочернего ProcessInstance:
//
//	PENDING → ACTIVE → COMPLETED
//	                 ↘ CANCELLED
//	                 ↘ FAILED (дочерний REJECTED)
type ChildEdgeStatus string

const (
	ChildEdgePending   ChildEdgeStatus = "PENDING"
	ChildEdgeActive    ChildEdgeStatus = "ACTIVE"
	ChildEdgeCompleted ChildEdgeStatus = "COMPLETED"
	ChildEdgeCancelled ChildEdgeStatus = "CANCELLED"
	ChildEdgeFailed    ChildEdgeStatus = "FAILED"
)

// IsTerminal возвращает true, если связь в финальном статусе.
func (s ChildEdgeStatus) IsTerminal() bool {
	switch s {
	case ChildEdgeCompleted, ChildEdgeCancelled, ChildEdgeFailed:
		return true
	default:
		return false
	}
}

// MirrorInstanceStatus отображает статус дочернего экземпляра на статус связи.
// Возвращает текущий статус связи без изменений, если отображения нет
// (IN_PROGRESS при уже активной связи).
func (s ChildEdgeStatus) MirrorInstanceStatus(child InstanceStatus) ChildEdgeStatus {
	switch child {
	case InstanceCompleted:
		return ChildEdgeCompleted
	case InstanceCancelled:
		return ChildEdgeCancelled
	case InstanceRejected:
		return ChildEdgeFailed
	case InstanceInProgress:
		if s == ChildEdgePending {
			return ChildEdgeActive
		}
	}
	return s
}

// ChildMode — режим создания дочернего процесса.
type ChildMode string

const (
	// ChildModeManual — запуск вручную через API/CLI.
	ChildModeManual ChildMode = "MANUAL"

	// ChildModeTriggered — запуск при завершении заданного шага родителя.
	ChildModeTriggered ChildMode = "TRIGGERED"

	// ChildModeRecurrent — периодический запуск по дескриптору recurrence.
	ChildModeRecurrent ChildMode = "RECURRENT"

	// ChildModeScheduled — запуск по cron-выражению.
	ChildModeScheduled ChildMode = "SCHEDULED"
)

// SignatureType — порядок сбора подписей в рамках одного вложения.
type SignatureType string

const (
	// SignatureSequential — подписи собираются строго по order.
	SignatureSequential SignatureType = "SEQUENTIAL"

	// SignatureParallel — подписи собираются в любом порядке.
	SignatureParallel SignatureType = "PARALLEL"
)

// SignatureRecordStatus — статус записи о подписи.
type SignatureRecordStatus string

const (
	SignatureRecordCompleted SignatureRecordStatus = "COMPLETED"
	SignatureRecordFailed    SignatureRecordStatus = "FAILED"
)
