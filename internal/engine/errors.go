package engine

import "errors"

// Таксономия ошибок движка. Все они возвращаются синхронно и означают,
// что состояние не изменилось (валидация до мутации либо полный откат
// транзакции).
var (
	// ErrInvalidState — шаг или экземпляр не в рабочем состоянии
	// (шаг не IN_PROGRESS, экземпляр терминален).
	ErrInvalidState = errors.New("invalid state")

	// ErrForbidden — актор не авторизован выполнять шаг.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidAction — действие не входит в множество допустимых
	// действий шага.
	ErrInvalidAction = errors.New("invalid action")

	// ErrPreconditionFailed — не выполнен гейтинг по вложениям
	// или подписям.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidConfiguration — шаблон ссылается на несуществующий
	// order, искажённая директива, PREVIOUS с первого шага.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
