// Package api — HTTP API сервиса.
//
// Обработчики тонкие: парсинг запроса, вызов движка/резолвера/
// оркестратора, маппинг ошибок в HTTP коды. Вся доменная логика
// живёт в internal/engine, internal/signature и internal/child.
package api
