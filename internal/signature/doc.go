// Package signature — резолвер требований цифровых подписей.
//
// Требования разрешаются по-вложениям, а не по-шагам: один шаг может
// нести несколько документов с независимыми панелями подписантов.
// Поэтому AttachmentID требования nullable (nil = глобально для шага),
// а "все требования выполнены" считается вложение-за-вложением.
//
// Чистые функции (ScopedRequirements, CanSign, IsUnlocked, Outstanding)
// работают только с domain-типами — их использует и движок для гейтинга
// завершения шага. Сервис Resolver добавляет персистентность, проверку
// идентичности и события.
package signature
