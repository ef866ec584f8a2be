// Package mem — хранилище в памяти.
//
// Полная реализация storage.Storage поверх map под одним мьютексом.
// Используется в тестах и в dev-режиме (STORE=memory). Мутации внутри
// InTx буферизуются и применяются атомарно при успешном завершении fn;
// ошибка fn откатывает всё.
package mem
