package storage

import "errors"

// Общие ошибки хранилища.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict — транзакция не прошла из-за конкурентного изменения.
	// Вызывающий может безопасно повторить операцию.
	ErrConflict = errors.New("concurrent modification")
)
