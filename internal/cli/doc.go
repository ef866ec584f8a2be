// Package cli реализует инструмент командной строки Processo.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Processo API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления шаблонами процессов, экземплярами,
// шагами, подписями и дочерними процессами.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Processo API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	types, err := client.ListProcessTypes()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: processo instance list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - type:      list, create, show, steps
//   - instance:  list, start, show, cancel
//   - step:      execute, attach, requirements, require, sign
//   - child:     configs, configure, list, spawn
//
// Каждая группа создаётся через фабричную функцию (NewTypeCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
