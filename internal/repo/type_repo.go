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

const typeColumns = `id, name, description, is_active, steps, form_fields, created_at`

// ProcessType возвращает шаблон вместе со снапшотом шагов и полей формы.
func (t *tx) ProcessType(ctx context.Context, id uuid.UUID) (*domain.ProcessType, error) {
	query := `
		SELECT ` + typeColumns + `
		FROM process_types
		WHERE id = $1
	`
	return scanType(t.q.QueryRow(ctx, query, id))
}

// CreateProcessType создаёт шаблон процесса.
func (t *tx) CreateProcessType(ctx context.Context, pt *domain.ProcessType) error {
	stepsJSON, err := json.Marshal(pt.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	fieldsJSON, err := json.Marshal(pt.FormFields)
	if err != nil {
		return fmt.Errorf("marshal form fields: %w", err)
	}

	query := `
		INSERT INTO process_types (id, name, description, is_active, steps, form_fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = t.q.Exec(ctx, query,
		pt.ID,
		pt.Name,
		pt.Description,
		pt.IsActive,
		stepsJSON,
		fieldsJSON,
		pt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert process type: %w", err)
	}
	return nil
}

// ListProcessTypes возвращает шаблоны, старые первыми.
func (t *tx) ListProcessTypes(ctx context.Context, onlyActive bool) ([]domain.ProcessType, error) {
	query := `
		SELECT ` + typeColumns + `
		FROM process_types
		WHERE ($1 = FALSE OR is_active)
		ORDER BY created_at ASC
	`
	rows, err := t.q.Query(ctx, query, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("list process types: %w", err)
	}
	defer rows.Close()

	var types []domain.ProcessType
	for rows.Next() {
		pt, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *pt)
	}
	return types, rows.Err()
}

// scanType сканирует одну строку в ProcessType.
func scanType(row pgx.Row) (*domain.ProcessType, error) {
	var pt domain.ProcessType
	var stepsJSON, fieldsJSON []byte

	err := row.Scan(
		&pt.ID,
		&pt.Name,
		&pt.Description,
		&pt.IsActive,
		&stepsJSON,
		&fieldsJSON,
		&pt.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan process type: %w", err)
	}

	if err := json.Unmarshal(stepsJSON, &pt.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &pt.FormFields); err != nil {
		return nil, fmt.Errorf("unmarshal form fields: %w", err)
	}

	return &pt, nil
}

// --- Helpers ---

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
