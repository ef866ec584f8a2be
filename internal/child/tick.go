package child

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// tickBatchSize — максимум конфигураций за один проход.
const tickBatchSize = 100

// Tick обрабатывает созревшие RECURRENT/SCHEDULED конфигурации.
//
// Ошибка одной конфигурации логируется и не блокирует остальные.
// Возвращает число успешно запущенных дочерних процессов.
func (o *Orchestrator) Tick(ctx context.Context) (int, error) {
	now := o.now()

	var due []domain.ChildProcessConfig
	err := o.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		due, err = tx.DueChildConfigs(ctx, now, tickBatchSize)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("list due configs: %w", err)
	}

	spawned := 0
	for i := range due {
		cfg := &due[i]
		if err := o.runDueConfig(ctx, cfg); err != nil {
			o.logger.Error("failed to run due config",
				"config_id", cfg.ID,
				"parent_id", cfg.ParentInstanceID,
				"error", err,
			)
			continue
		}
		spawned++
	}

	if len(due) > 0 {
		o.logger.Info("scheduler tick", "due", len(due), "spawned", spawned)
	}
	return spawned, nil
}

func (o *Orchestrator) runDueConfig(ctx context.Context, cfg *domain.ChildProcessConfig) error {
	var actor uuid.UUID

	// Родитель в терминальном статусе: конфигурация отключается,
	// чтобы планировщик не возвращался к ней каждый тик.
	err := o.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		parent, err := tx.Instance(ctx, cfg.ParentInstanceID)
		if err != nil {
			return fmt.Errorf("load parent instance: %w", err)
		}
		actor = parent.CreatedByID
		if parent.Status.IsTerminal() {
			return ErrParentCancelled
		}
		return nil
	})
	if err != nil {
		// Отключаем только при терминальном родителе; преходящая ошибка
		// хранилища оставляет конфигурацию на повтор в следующем тике.
		if errors.Is(err, ErrParentCancelled) {
			if disableErr := o.disableConfig(ctx, cfg); disableErr != nil {
				o.logger.Warn("failed to disable config", "config_id", cfg.ID, "error", disableErr)
			}
		}
		return err
	}

	_, err = o.SpawnChild(ctx, SpawnInput{
		ConfigID:         &cfg.ID,
		ParentInstanceID: cfg.ParentInstanceID,
		ActorID:          actor,
	})
	return err
}

func (o *Orchestrator) disableConfig(ctx context.Context, cfg *domain.ChildProcessConfig) error {
	return o.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		fresh, err := tx.ChildConfig(ctx, cfg.ID)
		if err != nil {
			return err
		}
		fresh.Enabled = false
		fresh.NextRunAt = nil
		return tx.UpdateChildConfig(ctx, fresh)
	})
}
