// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает structured logging через slog; Prometheus метрики
// объявляются в main каждого сервиса и экспортируются на /metrics.
// Все сервисы используют единый формат логирования.
package telemetry
