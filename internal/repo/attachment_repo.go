package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

const attachmentColumns = `id, step_execution_id, filename, size, uploaded_by_id,
       is_signed, signed_at, created_at`

// Attachment возвращает метаданные вложения по ID.
func (t *tx) Attachment(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	query := `
		SELECT ` + attachmentColumns + `
		FROM attachments
		WHERE id = $1
	`
	return scanAttachment(t.q.QueryRow(ctx, query, id))
}

// Attachments возвращает вложения шага в порядке загрузки.
func (t *tx) Attachments(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.Attachment, error) {
	query := `
		SELECT ` + attachmentColumns + `
		FROM attachments
		WHERE step_execution_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := t.q.Query(ctx, query, stepExecutionID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

// CreateAttachment создаёт метаданные вложения.
func (t *tx) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	query := `
		INSERT INTO attachments (id, step_execution_id, filename, size, uploaded_by_id,
		                         is_signed, signed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.q.Exec(ctx, query,
		a.ID,
		a.StepExecutionID,
		a.Filename,
		a.Size,
		a.UploadedByID,
		a.IsSigned,
		a.SignedAt,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

// UpdateAttachment обновляет статус подписания вложения.
func (t *tx) UpdateAttachment(ctx context.Context, a *domain.Attachment) error {
	query := `
		UPDATE attachments
		SET is_signed = $2, signed_at = $3
		WHERE id = $1
	`
	result, err := t.q.Exec(ctx, query, a.ID, a.IsSigned, a.SignedAt)
	if err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanAttachment сканирует одну строку в Attachment.
func scanAttachment(row pgx.Row) (*domain.Attachment, error) {
	var a domain.Attachment

	err := row.Scan(
		&a.ID,
		&a.StepExecutionID,
		&a.Filename,
		&a.Size,
		&a.UploadedByID,
		&a.IsSigned,
		&a.SignedAt,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan attachment: %w", err)
	}

	return &a, nil
}
