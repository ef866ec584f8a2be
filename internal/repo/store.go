package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Processo/internal/storage"
)

// Store — реализация storage.Storage на PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Storage = (*Store)(nil)

// NewStore создаёт Store поверх готового пула.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// View выполняет fn в read-only транзакции.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

// InTx выполняет fn в serializable read-write транзакции.
// Конфликт сериализации возвращается как storage.ErrConflict;
// повтор — на усмотрение вызывающего.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
}

func (s *Store) run(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx storage.Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(ctx, &tx{q: pgtx}); err != nil {
		return translateErr(err)
	}

	if err := pgtx.Commit(ctx); err != nil {
		return translateErr(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// tx — операции хранилища над одной pgx-транзакцией.
type tx struct {
	q pgx.Tx
}

var _ storage.Tx = (*tx)(nil)

// translateErr приводит ошибки PostgreSQL к ошибкам storage.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001": // serialization_failure
			return fmt.Errorf("%w: %s", storage.ErrConflict, pgErr.Message)
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, pgErr.Message)
		}
	}
	return err
}
