package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Processo/internal/storage"
)

// PutBytes сохраняет байты вложения. Повторная загрузка того же
// вложения перезаписывает содержимое. Реализует api.BlobStore.
func (s *Store) PutBytes(ctx context.Context, attachmentID uuid.UUID, data []byte) error {
	query := `
		INSERT INTO attachment_blobs (attachment_id, data)
		VALUES ($1, $2)
		ON CONFLICT (attachment_id) DO UPDATE SET data = EXCLUDED.data
	`
	if _, err := s.pool.Exec(ctx, query, attachmentID, data); err != nil {
		return fmt.Errorf("insert attachment blob: %w", err)
	}
	return nil
}

func (t *tx) AttachmentData(ctx context.Context, attachmentID uuid.UUID) ([]byte, error) {
	query := `SELECT data FROM attachment_blobs WHERE attachment_id = $1`

	var data []byte
	err := t.q.QueryRow(ctx, query, attachmentID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select attachment blob: %w", err)
	}
	return data, nil
}
