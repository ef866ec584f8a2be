// Package access — политика назначений.
//
// Реализация Authorizer для движка и проверки идентичности для
// резолвера подписей поверх интерфейса Directory. Сама иерархия
// пользователей и секторов — внешняя система; здесь только правило
// "шаг выполняет назначенный пользователь или участник назначенного
// сектора".
package access
