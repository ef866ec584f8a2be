package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

const executionColumns = `id, instance_id, step_id, step_order, status, action, comment,
       metadata, executor_id, activated_at, completed_at, due_at, signed_at, created_at`

// StepExecution возвращает выполнение шага по ID.
func (t *tx) StepExecution(ctx context.Context, id uuid.UUID) (*domain.StepExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM step_executions
		WHERE id = $1
	`
	return scanExecution(t.q.QueryRow(ctx, query, id))
}

// StepExecutionByOrder возвращает выполнение шага экземпляра по order.
func (t *tx) StepExecutionByOrder(ctx context.Context, instanceID uuid.UUID, order int) (*domain.StepExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM step_executions
		WHERE instance_id = $1 AND step_order = $2
	`
	return scanExecution(t.q.QueryRow(ctx, query, instanceID, order))
}

// ListStepExecutions возвращает выполнения шагов экземпляра по order.
func (t *tx) ListStepExecutions(ctx context.Context, instanceID uuid.UUID) ([]domain.StepExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM step_executions
		WHERE instance_id = $1
		ORDER BY step_order ASC
	`
	rows, err := t.q.Query(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list step executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.StepExecution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *e)
	}
	return execs, rows.Err()
}

// CreateStepExecution создаёт выполнение шага.
func (t *tx) CreateStepExecution(ctx context.Context, e *domain.StepExecution) error {
	metaJSON, err := marshalMap(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO step_executions (id, instance_id, step_id, step_order, status, action,
		                             comment, metadata, executor_id, activated_at,
		                             completed_at, due_at, signed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = t.q.Exec(ctx, query,
		e.ID,
		e.InstanceID,
		e.StepID,
		e.StepOrder,
		e.Status,
		e.Action,
		e.Comment,
		metaJSON,
		e.ExecutorID,
		e.ActivatedAt,
		e.CompletedAt,
		e.DueAt,
		e.SignedAt,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert step execution: %w", err)
	}
	return nil
}

// UpdateStepExecution обновляет выполнение шага.
func (t *tx) UpdateStepExecution(ctx context.Context, e *domain.StepExecution) error {
	metaJSON, err := marshalMap(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		UPDATE step_executions
		SET status = $2, action = $3, comment = $4, metadata = $5, executor_id = $6,
		    activated_at = $7, completed_at = $8, due_at = $9, signed_at = $10
		WHERE id = $1
	`
	result, err := t.q.Exec(ctx, query,
		e.ID,
		e.Status,
		e.Action,
		e.Comment,
		metaJSON,
		e.ExecutorID,
		e.ActivatedAt,
		e.CompletedAt,
		e.DueAt,
		e.SignedAt,
	)
	if err != nil {
		return fmt.Errorf("update step execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanExecution сканирует одну строку в StepExecution.
func scanExecution(row pgx.Row) (*domain.StepExecution, error) {
	var e domain.StepExecution
	var metaJSON []byte

	err := row.Scan(
		&e.ID,
		&e.InstanceID,
		&e.StepID,
		&e.StepOrder,
		&e.Status,
		&e.Action,
		&e.Comment,
		&metaJSON,
		&e.ExecutorID,
		&e.ActivatedAt,
		&e.CompletedAt,
		&e.DueAt,
		&e.SignedAt,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan step execution: %w", err)
	}

	if metaJSON != nil {
		if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &e, nil
}
