// Package engine — машина состояний выполнения процессов.
//
// Engine отвечает за:
//   - Создание экземпляров: снапшот шагов шаблона, генерация кода,
//     активация первого шага
//   - ExecuteStep: валидация предусловий, завершение активного шага,
//     разрешение директивы ветвления, активация следующего шага или
//     терминализация экземпляра
//   - Внешнюю отмену (CancelInstance)
//
// Каждый переход, который трогает больше одной строки, выполняется
// внутри одной serializable транзакции хранилища: второй конкурентный
// ExecuteStep по тому же шагу обязан упасть на предусловии 1, потому
// что запись первой транзакции становится видимой атомарно.
//
// Побочные эффекты (события, аудит, триггеры дочерних процессов)
// выполняются после коммита и никогда не валят переход.
package engine
