// Package cache — абстракция кеша со сроком жизни записей.
//
// Два варианта: in-memory для single-node и разработки, Redis для
// нескольких реплик API. Выбор — переменная окружения CACHE
// ("memory" по умолчанию, "redis" при заданном REDIS_URL).
// Основной потребитель — rate limiter в HTTP middleware.
package cache
