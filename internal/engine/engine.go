package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// Engine — движок выполнения процессов.
type Engine struct {
	store  storage.Storage
	auth   Authorizer
	events Events
	audit  Audit
	logger *slog.Logger
	now    func() time.Time

	// children устанавливается оркестратором дочерних процессов
	// после конструирования (разрывает циклическую зависимость).
	children ChildSpawner
}

// Config — конфигурация Engine.
type Config struct {
	Store      storage.Storage
	Authorizer Authorizer
	Events     Events
	Audit      Audit
	Logger     *slog.Logger

	// Now — источник времени (для тестов). По умолчанию time.Now.
	Now func() time.Time
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:  cfg.Store,
		auth:   cfg.Authorizer,
		events: cfg.Events,
		audit:  cfg.Audit,
		logger: logger,
		now:    now,
	}
}

// SetChildSpawner подключает хук дочерних процессов.
func (e *Engine) SetChildSpawner(s ChildSpawner) {
	e.children = s
}

// CreateInstanceInput — параметры нового экземпляра.
type CreateInstanceInput struct {
	TypeID      uuid.UUID
	CreatedByID uuid.UUID
	FormData    map[string]any
}

// CreateInstance создаёт экземпляр процесса: генерирует годовой код,
// создаёт StepExecution для каждого шага шаблона (первый IN_PROGRESS,
// остальные PENDING) и публикует task.assigned для первого шага.
func (e *Engine) CreateInstance(ctx context.Context, in CreateInstanceInput) (*domain.ProcessInstance, error) {
	var (
		inst  *domain.ProcessInstance
		first *domain.Step
	)

	err := e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		year := e.now().Year()
		seq, err := tx.NextInstanceSeq(ctx, year)
		if err != nil {
			return fmt.Errorf("next instance seq: %w", err)
		}

		inst, first, err = e.createInstanceTx(ctx, tx, in, domain.InstanceCode(year, seq))
		return err
	})
	if err != nil {
		return nil, err
	}

	e.emitAssigned(ctx, inst, first)
	e.auditRecord(ctx, "process.create", "process_instance", inst.ID, in.CreatedByID, map[string]any{
		"code": inst.Code,
	})

	return inst, nil
}

// CreateInstanceTx — путь создания экземпляра внутри уже открытой
// транзакции, с явным кодом. Используется оркестратором дочерних
// процессов: дочерний экземпляр проходит ровно тот же путь создания,
// что и корневой.
//
// События и аудит не публикуются — это делает вызывающий после коммита.
func (e *Engine) CreateInstanceTx(ctx context.Context, tx storage.Tx, in CreateInstanceInput, code string) (*domain.ProcessInstance, *domain.Step, error) {
	return e.createInstanceTx(ctx, tx, in, code)
}

func (e *Engine) createInstanceTx(ctx context.Context, tx storage.Tx, in CreateInstanceInput, code string) (*domain.ProcessInstance, *domain.Step, error) {
	ptype, err := tx.ProcessType(ctx, in.TypeID)
	if err != nil {
		return nil, nil, fmt.Errorf("load process type: %w", err)
	}
	if !ptype.IsActive {
		return nil, nil, fmt.Errorf("%w: process type %q is not active", ErrInvalidState, ptype.Name)
	}
	if len(ptype.Steps) == 0 {
		return nil, nil, fmt.Errorf("%w: process type %q has no steps", ErrInvalidConfiguration, ptype.Name)
	}
	first := ptype.StepByOrder(1)
	if first == nil {
		return nil, nil, fmt.Errorf("%w: process type %q has no step with order 1", ErrInvalidConfiguration, ptype.Name)
	}

	now := e.now()
	inst := &domain.ProcessInstance{
		ID:               uuid.New(),
		TypeID:           ptype.ID,
		Code:             code,
		Status:           domain.InstanceInProgress,
		CurrentStepOrder: first.Order,
		FormData:         in.FormData,
		CreatedByID:      in.CreatedByID,
		CreatedAt:        now,
	}
	if err := tx.CreateInstance(ctx, inst); err != nil {
		return nil, nil, fmt.Errorf("create instance: %w", err)
	}

	for i := range ptype.Steps {
		step := &ptype.Steps[i]
		exec := &domain.StepExecution{
			ID:         uuid.New(),
			InstanceID: inst.ID,
			StepID:     step.ID,
			StepOrder:  step.Order,
			Status:     domain.StepExecPending,
			CreatedAt:  now,
		}
		if step.Order == first.Order {
			exec.Activate(step, now)
		}
		if err := tx.CreateStepExecution(ctx, exec); err != nil {
			return nil, nil, fmt.Errorf("create step execution order %d: %w", step.Order, err)
		}
	}

	return inst, first, nil
}

// CancelInstance — внешняя отмена экземпляра. Не достижима из
// ExecuteStep; движок обязан считать CANCELLED терминальным.
// Активный шаг возвращается в PENDING, чтобы сохранить инвариант
// "ноль IN_PROGRESS шагов у терминального экземпляра".
func (e *Engine) CancelInstance(ctx context.Context, instanceID, actorID uuid.UUID) (*domain.ProcessInstance, error) {
	var inst *domain.ProcessInstance

	err := e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		inst, err = tx.Instance(ctx, instanceID)
		if err != nil {
			return fmt.Errorf("load instance: %w", err)
		}
		if inst.IsFinished() {
			return fmt.Errorf("%w: instance %s is already %s", ErrInvalidState, inst.Code, inst.Status)
		}
		if e.auth != nil {
			if err := e.auth.Authorize(ctx, actorID, inst, nil); err != nil {
				return fmt.Errorf("%w: %v", ErrForbidden, err)
			}
		}

		active, err := tx.StepExecutionByOrder(ctx, inst.ID, inst.CurrentStepOrder)
		if err != nil {
			return fmt.Errorf("load active step: %w", err)
		}
		if active.Status == domain.StepExecInProgress {
			active.Status = domain.StepExecPending
			if err := tx.UpdateStepExecution(ctx, active); err != nil {
				return fmt.Errorf("deactivate step: %w", err)
			}
		}

		inst.MarkCancelled(e.now())
		return tx.UpdateInstance(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	e.auditRecord(ctx, "process.cancel", "process_instance", inst.ID, actorID, map[string]any{
		"code": inst.Code,
	})

	return inst, nil
}

// emitAssigned публикует task.assigned для активированного шага.
func (e *Engine) emitAssigned(ctx context.Context, inst *domain.ProcessInstance, step *domain.Step) {
	if e.events == nil || step == nil {
		return
	}
	err := e.events.TaskAssigned(ctx, inst.ID, inst.Code, step.Order, step.AssignedToUserID, step.AssignedToSectorID)
	if err != nil {
		e.logger.Warn("failed to publish task.assigned",
			"instance_id", inst.ID,
			"step_order", step.Order,
			"error", err,
		)
	}
}

// auditRecord пишет событие аудита, не влияя на результат операции.
func (e *Engine) auditRecord(ctx context.Context, action, resource string, resourceID, actorID uuid.UUID, details map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, action, resource, resourceID, actorID, details); err != nil {
		e.logger.Warn("failed to write audit entry", "action", action, "resource_id", resourceID, "error", err)
	}
}
