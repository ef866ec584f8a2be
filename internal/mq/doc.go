// Package mq — интеграция с RabbitMQ.
//
// Шина здесь исходящая: движок, резолвер подписей и оркестратор
// публикуют доменные события и записи аудита; потребители внешние
// (уведомления, отчётность). Включает:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go — exchanges и очереди
//   - publisher.go — типизированная публикация событий
package mq
