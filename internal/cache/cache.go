package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound — ключ отсутствует или истёк.
var ErrNotFound = errors.New("cache: key not found")

// Cache — кеш со сроком жизни записей.
type Cache interface {
	// Get возвращает значение ключа или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set записывает значение с TTL. ttl <= 0 означает без срока.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Del удаляет ключ. Отсутствие ключа не является ошибкой.
	Del(ctx context.Context, key string) error

	// Incr атомарно увеличивает счётчик и возвращает новое значение.
	// Несуществующий ключ создаётся со значением 1 и заданным TTL.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
