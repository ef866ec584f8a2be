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

const instanceColumns = `id, type_id, code, status, current_step_order, form_data,
       created_by_id, created_at, completed_at`

// Instance возвращает экземпляр процесса по ID.
func (t *tx) Instance(ctx context.Context, id uuid.UUID) (*domain.ProcessInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM process_instances
		WHERE id = $1
	`
	return scanInstance(t.q.QueryRow(ctx, query, id))
}

// CreateInstance создаёт экземпляр процесса.
func (t *tx) CreateInstance(ctx context.Context, p *domain.ProcessInstance) error {
	formJSON, err := marshalMap(p.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}

	query := `
		INSERT INTO process_instances (id, type_id, code, status, current_step_order,
		                               form_data, created_by_id, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = t.q.Exec(ctx, query,
		p.ID,
		p.TypeID,
		p.Code,
		p.Status,
		p.CurrentStepOrder,
		formJSON,
		p.CreatedByID,
		p.CreatedAt,
		p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// UpdateInstance обновляет мутируемые поля экземпляра.
func (t *tx) UpdateInstance(ctx context.Context, p *domain.ProcessInstance) error {
	formJSON, err := marshalMap(p.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}

	query := `
		UPDATE process_instances
		SET status = $2, current_step_order = $3, form_data = $4, completed_at = $5
		WHERE id = $1
	`
	result, err := t.q.Exec(ctx, query,
		p.ID,
		p.Status,
		p.CurrentStepOrder,
		formJSON,
		p.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListInstances возвращает экземпляры с фильтрацией, новые первыми.
func (t *tx) ListInstances(ctx context.Context, f storage.InstanceFilter) ([]domain.ProcessInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM process_instances
		WHERE ($1::uuid IS NULL OR type_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::uuid IS NULL OR created_by_id = $3)
		ORDER BY created_at DESC, code DESC
		LIMIT $4 OFFSET $5
	`
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := t.q.Query(ctx, query,
		nullUUID(f.TypeID),
		nullString(string(f.Status)),
		nullUUID(f.CreatedByID),
		limit,
		f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []domain.ProcessInstance
	for rows.Next() {
		p, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *p)
	}
	return instances, rows.Err()
}

// NextInstanceSeq возвращает следующий номер кода в рамках года.
func (t *tx) NextInstanceSeq(ctx context.Context, year int) (int, error) {
	query := `
		INSERT INTO instance_sequences (year, last)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last = instance_sequences.last + 1
		RETURNING last
	`
	var seq int
	if err := t.q.QueryRow(ctx, query, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next instance seq: %w", err)
	}
	return seq, nil
}

// scanInstance сканирует одну строку в ProcessInstance.
func scanInstance(row pgx.Row) (*domain.ProcessInstance, error) {
	var p domain.ProcessInstance
	var formJSON []byte

	err := row.Scan(
		&p.ID,
		&p.TypeID,
		&p.Code,
		&p.Status,
		&p.CurrentStepOrder,
		&formJSON,
		&p.CreatedByID,
		&p.CreatedAt,
		&p.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}

	if formJSON != nil {
		if err := json.Unmarshal(formJSON, &p.FormData); err != nil {
			return nil, fmt.Errorf("unmarshal form data: %w", err)
		}
	}

	return &p, nil
}

// marshalMap сериализует карту, сохраняя NULL для nil.
func marshalMap[V any](m map[string]V) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
