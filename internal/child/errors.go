package child

import "errors"

// Ошибки оркестратора дочерних процессов.
var (
	// ErrParentCancelled — нельзя конфигурировать дочерние процессы
	// у отменённого родителя.
	ErrParentCancelled = errors.New("parent instance is cancelled")

	// ErrChildTypeInactive — шаблон дочернего процесса неактивен.
	ErrChildTypeInactive = errors.New("child process type is not active")

	// ErrBadRecurrence — дескриптор повторения некорректен.
	ErrBadRecurrence = errors.New("invalid recurrence descriptor")
)
