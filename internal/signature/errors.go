package signature

import "errors"

// Ошибки резолвера подписей.
var (
	// ErrAlreadySigned — требование уже имеет завершённую подпись.
	ErrAlreadySigned = errors.New("requirement already signed")

	// ErrOutOfOrder — попытка подписать вне очереди при SEQUENTIAL порядке.
	ErrOutOfOrder = errors.New("signature out of order")

	// ErrNotAResolvedSigner — актор не входит в подписанты требования.
	ErrNotAResolvedSigner = errors.New("not a resolved signer")

	// ErrIdentity — повторная проверка идентичности актора не прошла.
	ErrIdentity = errors.New("identity verification failed")
)
