package child

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/storage"
)

// Events — события оркестратора. Best-effort, ошибки логируются.
type Events interface {
	TaskAssigned(ctx context.Context, instanceID uuid.UUID, code string, stepOrder int, userID, sectorID *uuid.UUID) error
}

// Orchestrator — оркестратор дочерних процессов.
//
// Реализует engine.ChildSpawner: движок дёргает OnStepCompleted после
// коммита каждого перехода.
type Orchestrator struct {
	store  storage.Storage
	engine *engine.Engine
	events Events
	logger *slog.Logger
	now    func() time.Time
}

// Config — конфигурация Orchestrator.
type Config struct {
	Store  storage.Storage
	Engine *engine.Engine
	Events Events
	Logger *slog.Logger

	// Now — источник времени (для тестов). По умолчанию time.Now.
	Now func() time.Time
}

// New создаёт Orchestrator и подключает его к движку.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	o := &Orchestrator{
		store:  cfg.Store,
		engine: cfg.Engine,
		events: cfg.Events,
		logger: logger,
		now:    now,
	}
	if cfg.Engine != nil {
		cfg.Engine.SetChildSpawner(o)
	}
	return o
}

// CreateConfigInput — параметры новой конфигурации.
type CreateConfigInput struct {
	ParentInstanceID uuid.UUID
	ChildTypeID      uuid.UUID
	Mode             domain.ChildMode
	TriggerStepOrder int
	InputDataMapping map[string]string
	WaitForCompletion bool
	Recurrence       *domain.Recurrence
}

// CreateConfig создаёт конфигурацию дочернего процесса.
//
// Отклоняется, если родитель CANCELLED или шаблон дочернего неактивен.
// Для RECURRENT/SCHEDULED сразу вычисляется nextRunAt.
func (o *Orchestrator) CreateConfig(ctx context.Context, in CreateConfigInput) (*domain.ChildProcessConfig, error) {
	now := o.now()

	cfg := &domain.ChildProcessConfig{
		ID:                uuid.New(),
		ParentInstanceID:  in.ParentInstanceID,
		ChildTypeID:       in.ChildTypeID,
		Mode:              in.Mode,
		TriggerStepOrder:  in.TriggerStepOrder,
		InputDataMapping:  in.InputDataMapping,
		WaitForCompletion: in.WaitForCompletion,
		Recurrence:        in.Recurrence,
		Enabled:           true,
		CreatedAt:         now,
	}

	if in.Mode == domain.ChildModeRecurrent || in.Mode == domain.ChildModeScheduled {
		if err := ValidateRecurrence(in.Recurrence); err != nil {
			return nil, err
		}
		next, err := NextRunAt(in.Recurrence, now)
		if err != nil {
			return nil, err
		}
		cfg.NextRunAt = &next
	}

	err := o.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		parent, err := tx.Instance(ctx, in.ParentInstanceID)
		if err != nil {
			return fmt.Errorf("load parent instance: %w", err)
		}
		if parent.Status == domain.InstanceCancelled {
			return ErrParentCancelled
		}

		ptype, err := tx.ProcessType(ctx, in.ChildTypeID)
		if err != nil {
			return fmt.Errorf("load child type: %w", err)
		}
		if !ptype.IsActive {
			return ErrChildTypeInactive
		}

		return tx.CreateChildConfig(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// SpawnInput — параметры запуска дочернего процесса.
type SpawnInput struct {
	// ConfigID — конфигурация-источник. nil для ad-hoc запуска.
	ConfigID *uuid.UUID

	ParentInstanceID uuid.UUID

	// ChildTypeID — шаблон для ad-hoc запуска (когда ConfigID nil).
	ChildTypeID uuid.UUID

	// OriginStepExecutionID — шаг родителя, породивший запуск.
	OriginStepExecutionID *uuid.UUID

	// OverrideFormData — явные данные поверх data mapping.
	OverrideFormData map[string]any

	ActorID uuid.UUID
}

// SpawnChild запускает дочерний процесс.
//
// Порядок: применить inputDataMapping из formData родителя, наложить
// override, создать дочерний экземпляр через общий путь создания,
// создать связь ACTIVE, обновить runCount конфигурации. Всё — в одной
// транзакции.
func (o *Orchestrator) SpawnChild(ctx context.Context, in SpawnInput) (*domain.ChildProcessInstance, error) {
	var (
		edge      *domain.ChildProcessInstance
		childInst *domain.ProcessInstance
		firstStep *domain.Step
	)

	err := o.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		parent, err := tx.Instance(ctx, in.ParentInstanceID)
		if err != nil {
			return fmt.Errorf("load parent instance: %w", err)
		}
		if parent.Status == domain.InstanceCancelled {
			return ErrParentCancelled
		}

		childTypeID := in.ChildTypeID
		var cfg *domain.ChildProcessConfig
		var mapping map[string]string
		if in.ConfigID != nil {
			cfg, err = tx.ChildConfig(ctx, *in.ConfigID)
			if err != nil {
				return fmt.Errorf("load child config: %w", err)
			}
			childTypeID = cfg.ChildTypeID
			mapping = cfg.InputDataMapping
		}

		formData := mapFormData(parent.FormData, mapping)
		for k, v := range in.OverrideFormData {
			formData[k] = v
		}

		seq, err := tx.NextChildSeq(ctx, parent.ID)
		if err != nil {
			return fmt.Errorf("next child seq: %w", err)
		}
		code := domain.ChildCode(parent.Code, seq)

		childInst, firstStep, err = o.engine.CreateInstanceTx(ctx, tx, engine.CreateInstanceInput{
			TypeID:      childTypeID,
			CreatedByID: in.ActorID,
			FormData:    formData,
		}, code)
		if err != nil {
			return fmt.Errorf("create child instance: %w", err)
		}

		now := o.now()
		edge = &domain.ChildProcessInstance{
			ID:                    uuid.New(),
			ParentInstanceID:      parent.ID,
			ChildInstanceID:       childInst.ID,
			ConfigID:              in.ConfigID,
			OriginStepExecutionID: in.OriginStepExecutionID,
			Status:                domain.ChildEdgeActive,
			CreatedAt:             now,
		}
		if err := tx.CreateChildEdge(ctx, edge); err != nil {
			return fmt.Errorf("create child edge: %w", err)
		}

		if cfg != nil {
			var nextRun *time.Time
			if cfg.Recurrence != nil && (cfg.Mode == domain.ChildModeRecurrent || cfg.Mode == domain.ChildModeScheduled) {
				n, err := NextRunAt(cfg.Recurrence, now)
				if err != nil {
					// Некорректный дескриптор — не трогаем nextRunAt
					o.logger.Warn("failed to compute next run", "config_id", cfg.ID, "error", err)
				} else {
					nextRun = &n
				}
			}
			cfg.RecordRun(now, nextRun)
			if err := tx.UpdateChildConfig(ctx, cfg); err != nil {
				return fmt.Errorf("update child config: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("spawned child process",
		"parent_id", in.ParentInstanceID,
		"child_id", childInst.ID,
		"child_code", childInst.Code,
	)

	if o.events != nil && firstStep != nil {
		err := o.events.TaskAssigned(ctx, childInst.ID, childInst.Code, firstStep.Order, firstStep.AssignedToUserID, firstStep.AssignedToSectorID)
		if err != nil {
			o.logger.Warn("failed to publish task.assigned", "instance_id", childInst.ID, "error", err)
		}
	}

	return edge, nil
}

// SyncChildStatus зеркалирует статус дочернего экземпляра на связь.
//
// Идемпотентно: повторный вызов без изменения дочернего статуса
// не делает записи.
func (o *Orchestrator) SyncChildStatus(ctx context.Context, childInstanceID uuid.UUID) (*domain.ChildProcessInstance, error) {
	var edge *domain.ChildProcessInstance

	err := o.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		edge, err = tx.ChildEdgeByChildInstance(ctx, childInstanceID)
		if err != nil {
			return fmt.Errorf("load child edge: %w", err)
		}
		childInst, err := tx.Instance(ctx, childInstanceID)
		if err != nil {
			return fmt.Errorf("load child instance: %w", err)
		}

		if !edge.ApplyChildStatus(childInst.Status, o.now()) {
			return nil // изменений нет — записи нет
		}
		return tx.UpdateChildEdge(ctx, edge)
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// ListChildren возвращает связи родителя со свежесинхронизированными
// статусами: потребители API никогда не видят устаревшую связь.
func (o *Orchestrator) ListChildren(ctx context.Context, parentInstanceID uuid.UUID) ([]domain.ChildProcessInstance, error) {
	var edges []domain.ChildProcessInstance

	err := o.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		edges, err = tx.ChildEdgesByParent(ctx, parentInstanceID)
		if err != nil {
			return err
		}

		now := o.now()
		for i := range edges {
			childInst, err := tx.Instance(ctx, edges[i].ChildInstanceID)
			if err != nil {
				return fmt.Errorf("load child instance %s: %w", edges[i].ChildInstanceID, err)
			}
			if edges[i].ApplyChildStatus(childInst.Status, now) {
				if err := tx.UpdateChildEdge(ctx, &edges[i]); err != nil {
					return fmt.Errorf("sync child edge %s: %w", edges[i].ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// OnStepCompleted — хук движка: запускает TRIGGERED конфигурации,
// чей trigger_step_order совпал с завершённым шагом.
func (o *Orchestrator) OnStepCompleted(ctx context.Context, inst *domain.ProcessInstance, exec *domain.StepExecution) error {
	var configs []domain.ChildProcessConfig
	err := o.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		configs, err = tx.TriggeredConfigs(ctx, inst.ID, exec.StepOrder)
		return err
	})
	if err != nil {
		return fmt.Errorf("list triggered configs: %w", err)
	}

	for i := range configs {
		cfg := &configs[i]
		_, err := o.SpawnChild(ctx, SpawnInput{
			ConfigID:              &cfg.ID,
			ParentInstanceID:      inst.ID,
			OriginStepExecutionID: &exec.ID,
			ActorID:               inst.CreatedByID,
		})
		if err != nil {
			// Ошибка одного триггера не блокирует остальные
			o.logger.Error("failed to spawn triggered child",
				"config_id", cfg.ID,
				"parent_id", inst.ID,
				"error", err,
			)
		}
	}
	return nil
}

// mapFormData применяет inputDataMapping к formData родителя.
// Отсутствующие в источнике поля пропускаются.
func mapFormData(parent map[string]any, mapping map[string]string) map[string]any {
	out := make(map[string]any, len(mapping))
	for src, dst := range mapping {
		if v, ok := parent[src]; ok {
			out[dst] = v
		}
	}
	return out
}
