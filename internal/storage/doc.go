// Package storage определяет контракт хранилища Processo.
//
// Движок, резолвер подписей и оркестратор дочерних процессов работают
// только через интерфейсы Storage/Tx. Реализации:
//   - internal/repo — PostgreSQL (pgx/v5), основная
//   - internal/storage/mem — in-memory, для тестов и dev-режима
//
// Всё, что трогает больше одной строки за переход, выполняется внутри
// одного InTx: это основной механизм корректности при конкурентных
// вызовах (см. событие ErrConflict).
package storage
