// Package repo — хранилище на PostgreSQL.
//
// Реализует storage.Storage поверх pgxpool: View открывает read-only
// транзакцию, InTx — serializable read-write. Конфликт сериализации
// (SQLSTATE 40001) транслируется в storage.ErrConflict, нарушение
// уникальности (23505) — в storage.ErrAlreadyExists.
//
// Шаги и поля формы шаблона хранятся JSONB-снапшотом в строке
// process_types: шаблон неизменяем после публикации, движок всегда
// читает его целиком.
package repo
