package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

const configColumns = `id, parent_instance_id, child_type_id, mode, trigger_step_order,
       input_data_mapping, wait_for_completion, recurrence, enabled,
       run_count, last_run_at, next_run_at, created_at`

const edgeColumns = `id, parent_instance_id, child_instance_id, config_id,
       origin_step_execution_id, status, created_at, completed_at`

// ChildConfig возвращает конфигурацию дочернего процесса по ID.
func (t *tx) ChildConfig(ctx context.Context, id uuid.UUID) (*domain.ChildProcessConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM child_process_configs
		WHERE id = $1
	`
	return scanConfig(t.q.QueryRow(ctx, query, id))
}

// CreateChildConfig создаёт конфигурацию дочернего процесса.
func (t *tx) CreateChildConfig(ctx context.Context, c *domain.ChildProcessConfig) error {
	mappingJSON, err := marshalMap(c.InputDataMapping)
	if err != nil {
		return fmt.Errorf("marshal input data mapping: %w", err)
	}
	recurrenceJSON, err := marshalRecurrence(c.Recurrence)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO child_process_configs (id, parent_instance_id, child_type_id, mode,
		                                   trigger_step_order, input_data_mapping,
		                                   wait_for_completion, recurrence, enabled,
		                                   run_count, last_run_at, next_run_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = t.q.Exec(ctx, query,
		c.ID,
		c.ParentInstanceID,
		c.ChildTypeID,
		c.Mode,
		c.TriggerStepOrder,
		mappingJSON,
		c.WaitForCompletion,
		recurrenceJSON,
		c.Enabled,
		c.RunCount,
		c.LastRunAt,
		c.NextRunAt,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert child config: %w", err)
	}
	return nil
}

// UpdateChildConfig обновляет мутируемые поля конфигурации.
func (t *tx) UpdateChildConfig(ctx context.Context, c *domain.ChildProcessConfig) error {
	query := `
		UPDATE child_process_configs
		SET enabled = $2, run_count = $3, last_run_at = $4, next_run_at = $5
		WHERE id = $1
	`
	result, err := t.q.Exec(ctx, query,
		c.ID,
		c.Enabled,
		c.RunCount,
		c.LastRunAt,
		c.NextRunAt,
	)
	if err != nil {
		return fmt.Errorf("update child config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ChildConfigsByParent возвращает конфигурации родителя, старые первыми.
func (t *tx) ChildConfigsByParent(ctx context.Context, parentID uuid.UUID) ([]domain.ChildProcessConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM child_process_configs
		WHERE parent_instance_id = $1
		ORDER BY created_at ASC
	`
	return t.queryConfigs(ctx, query, parentID)
}

// TriggeredConfigs возвращает включённые TRIGGERED конфигурации
// родителя с заданным trigger_step_order.
func (t *tx) TriggeredConfigs(ctx context.Context, parentID uuid.UUID, stepOrder int) ([]domain.ChildProcessConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM child_process_configs
		WHERE parent_instance_id = $1
		  AND mode = 'TRIGGERED'
		  AND trigger_step_order = $2
		  AND enabled
		ORDER BY created_at ASC
	`
	return t.queryConfigs(ctx, query, parentID, stepOrder)
}

// DueChildConfigs возвращает включённые RECURRENT/SCHEDULED
// конфигурации с next_run_at <= now, самые просроченные первыми.
func (t *tx) DueChildConfigs(ctx context.Context, now time.Time, limit int) ([]domain.ChildProcessConfig, error) {
	query := `
		SELECT ` + configColumns + `
		FROM child_process_configs
		WHERE mode IN ('RECURRENT', 'SCHEDULED')
		  AND enabled
		  AND next_run_at IS NOT NULL
		  AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
	`
	return t.queryConfigs(ctx, query, now, limit)
}

func (t *tx) queryConfigs(ctx context.Context, query string, args ...any) ([]domain.ChildProcessConfig, error) {
	rows, err := t.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list child configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.ChildProcessConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// ChildEdge возвращает связь родитель↔дочерний по ID.
func (t *tx) ChildEdge(ctx context.Context, id uuid.UUID) (*domain.ChildProcessInstance, error) {
	query := `
		SELECT ` + edgeColumns + `
		FROM child_process_instances
		WHERE id = $1
	`
	return scanEdge(t.q.QueryRow(ctx, query, id))
}

// ChildEdgeByChildInstance возвращает связь по дочернему экземпляру.
func (t *tx) ChildEdgeByChildInstance(ctx context.Context, childInstanceID uuid.UUID) (*domain.ChildProcessInstance, error) {
	query := `
		SELECT ` + edgeColumns + `
		FROM child_process_instances
		WHERE child_instance_id = $1
	`
	return scanEdge(t.q.QueryRow(ctx, query, childInstanceID))
}

// ChildEdgesByParent возвращает связи родителя, старые первыми.
func (t *tx) ChildEdgesByParent(ctx context.Context, parentID uuid.UUID) ([]domain.ChildProcessInstance, error) {
	query := `
		SELECT ` + edgeColumns + `
		FROM child_process_instances
		WHERE parent_instance_id = $1
		ORDER BY created_at ASC
	`
	rows, err := t.q.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.ChildProcessInstance
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, *e)
	}
	return edges, rows.Err()
}

// CreateChildEdge создаёт связь родитель↔дочерний.
func (t *tx) CreateChildEdge(ctx context.Context, e *domain.ChildProcessInstance) error {
	query := `
		INSERT INTO child_process_instances (id, parent_instance_id, child_instance_id,
		                                     config_id, origin_step_execution_id,
		                                     status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.q.Exec(ctx, query,
		e.ID,
		e.ParentInstanceID,
		e.ChildInstanceID,
		e.ConfigID,
		e.OriginStepExecutionID,
		e.Status,
		e.CreatedAt,
		e.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert child edge: %w", err)
	}
	return nil
}

// UpdateChildEdge обновляет зеркальный статус связи.
func (t *tx) UpdateChildEdge(ctx context.Context, e *domain.ChildProcessInstance) error {
	query := `
		UPDATE child_process_instances
		SET status = $2, completed_at = $3
		WHERE id = $1
	`
	result, err := t.q.Exec(ctx, query, e.ID, e.Status, e.CompletedAt)
	if err != nil {
		return fmt.Errorf("update child edge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// NextChildSeq возвращает следующий номер дочернего процесса
// в рамках родителя.
func (t *tx) NextChildSeq(ctx context.Context, parentID uuid.UUID) (int, error) {
	query := `
		INSERT INTO child_sequences (parent_instance_id, last)
		VALUES ($1, 1)
		ON CONFLICT (parent_instance_id) DO UPDATE SET last = child_sequences.last + 1
		RETURNING last
	`
	var seq int
	if err := t.q.QueryRow(ctx, query, parentID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next child seq: %w", err)
	}
	return seq, nil
}

// scanConfig сканирует одну строку в ChildProcessConfig.
func scanConfig(row pgx.Row) (*domain.ChildProcessConfig, error) {
	var c domain.ChildProcessConfig
	var mappingJSON, recurrenceJSON []byte

	err := row.Scan(
		&c.ID,
		&c.ParentInstanceID,
		&c.ChildTypeID,
		&c.Mode,
		&c.TriggerStepOrder,
		&mappingJSON,
		&c.WaitForCompletion,
		&recurrenceJSON,
		&c.Enabled,
		&c.RunCount,
		&c.LastRunAt,
		&c.NextRunAt,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan child config: %w", err)
	}

	if mappingJSON != nil {
		if err := json.Unmarshal(mappingJSON, &c.InputDataMapping); err != nil {
			return nil, fmt.Errorf("unmarshal input data mapping: %w", err)
		}
	}
	if recurrenceJSON != nil {
		c.Recurrence = &domain.Recurrence{}
		if err := json.Unmarshal(recurrenceJSON, c.Recurrence); err != nil {
			return nil, fmt.Errorf("unmarshal recurrence: %w", err)
		}
	}

	return &c, nil
}

// scanEdge сканирует одну строку в ChildProcessInstance.
func scanEdge(row pgx.Row) (*domain.ChildProcessInstance, error) {
	var e domain.ChildProcessInstance

	err := row.Scan(
		&e.ID,
		&e.ParentInstanceID,
		&e.ChildInstanceID,
		&e.ConfigID,
		&e.OriginStepExecutionID,
		&e.Status,
		&e.CreatedAt,
		&e.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan child edge: %w", err)
	}

	return &e, nil
}

// marshalRecurrence сериализует дескриптор, сохраняя NULL для nil.
func marshalRecurrence(r *domain.Recurrence) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal recurrence: %w", err)
	}
	return data, nil
}
