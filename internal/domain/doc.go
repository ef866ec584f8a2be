// Package domain содержит основные сущности Processo.
//
// Здесь нет бизнес-логики переходов — только типы, статусы и
// небольшие методы-мутаторы. Машина состояний живёт в internal/engine,
// подписи — в internal/signature, дочерние процессы — в internal/child.
//
// Основные сущности:
//   - ProcessType / Step — шаблон процесса (read-only во время выполнения)
//   - ProcessInstance / StepExecution — выполняющийся процесс и его шаги
//   - ChildProcessConfig / ChildProcessInstance — дочерние процессы
//   - SignatureRequirement / SignatureRecord — цифровые подписи
package domain
