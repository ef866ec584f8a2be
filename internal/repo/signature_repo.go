package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

const requirementColumns = `id, step_execution_id, attachment_id, user_id, sector_id,
       sign_order, sign_type, created_at`

const recordColumns = `id, requirement_id, signer_id, signer_name, signer_email,
       status, document_hash, signature_hash, signature_token, signed_at`

// Requirement возвращает требование подписи по ID.
func (t *tx) Requirement(ctx context.Context, id uuid.UUID) (*domain.SignatureRequirement, error) {
	query := `
		SELECT ` + requirementColumns + `
		FROM signature_requirements
		WHERE id = $1
	`
	return scanRequirement(t.q.QueryRow(ctx, query, id))
}

// Requirements возвращает требования шага, упорядоченные по order.
func (t *tx) Requirements(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.SignatureRequirement, error) {
	query := `
		SELECT ` + requirementColumns + `
		FROM signature_requirements
		WHERE step_execution_id = $1
		ORDER BY sign_order ASC, id ASC
	`
	rows, err := t.q.Query(ctx, query, stepExecutionID)
	if err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	defer rows.Close()

	var reqs []domain.SignatureRequirement
	for rows.Next() {
		r, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *r)
	}
	return reqs, rows.Err()
}

// CreateRequirement создаёт требование подписи.
func (t *tx) CreateRequirement(ctx context.Context, r *domain.SignatureRequirement) error {
	query := `
		INSERT INTO signature_requirements (id, step_execution_id, attachment_id,
		                                    user_id, sector_id, sign_order, sign_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := t.q.Exec(ctx, query,
		r.ID,
		r.StepExecutionID,
		r.AttachmentID,
		r.UserID,
		r.SectorID,
		r.Order,
		r.Type,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert requirement: %w", err)
	}
	return nil
}

// RecordsByStep возвращает записи подписей по всем требованиям шага.
func (t *tx) RecordsByStep(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.SignatureRecord, error) {
	query := `
		SELECT ` + prefixColumns("r", recordColumns) + `
		FROM signature_records r
		JOIN signature_requirements q ON q.id = r.requirement_id
		WHERE q.step_execution_id = $1
		ORDER BY r.signed_at ASC
	`
	rows, err := t.q.Query(ctx, query, stepExecutionID)
	if err != nil {
		return nil, fmt.Errorf("list signature records: %w", err)
	}
	defer rows.Close()

	var records []domain.SignatureRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// CreateSignatureRecord создаёт запись подписи. Записи неизменяемы:
// UPDATE для этой таблицы не существует.
func (t *tx) CreateSignatureRecord(ctx context.Context, r *domain.SignatureRecord) error {
	query := `
		INSERT INTO signature_records (id, requirement_id, signer_id, signer_name,
		                               signer_email, status, document_hash,
		                               signature_hash, signature_token, signed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.q.Exec(ctx, query,
		r.ID,
		r.RequirementID,
		r.SignerID,
		r.SignerName,
		r.SignerEmail,
		r.Status,
		r.DocumentHash,
		r.SignatureHash,
		r.SignatureToken,
		r.SignedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signature record: %w", err)
	}
	return nil
}

// prefixColumns добавляет алиас таблицы к каждой колонке списка.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// scanRequirement сканирует одну строку в SignatureRequirement.
func scanRequirement(row pgx.Row) (*domain.SignatureRequirement, error) {
	var r domain.SignatureRequirement

	err := row.Scan(
		&r.ID,
		&r.StepExecutionID,
		&r.AttachmentID,
		&r.UserID,
		&r.SectorID,
		&r.Order,
		&r.Type,
		&r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan requirement: %w", err)
	}

	return &r, nil
}

// scanRecord сканирует одну строку в SignatureRecord.
func scanRecord(row pgx.Row) (*domain.SignatureRecord, error) {
	var r domain.SignatureRecord

	err := row.Scan(
		&r.ID,
		&r.RequirementID,
		&r.SignerID,
		&r.SignerName,
		&r.SignerEmail,
		&r.Status,
		&r.DocumentHash,
		&r.SignatureHash,
		&r.SignatureToken,
		&r.SignedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan signature record: %w", err)
	}

	return &r, nil
}
