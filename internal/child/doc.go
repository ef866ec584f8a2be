// Package child — оркестрация дочерних процессов.
//
// Оркестратор реагирует на завершение шагов родителя (TRIGGERED),
// запускает дочерние экземпляры вручную (MANUAL) и по расписанию
// (RECURRENT/SCHEDULED), отображает данные родителя в дочерний
// formData и держит зеркало статуса дочернего экземпляра на связи
// родитель↔дочерний.
//
// Дочерний экземпляр создаётся через тот же путь, что и корневой
// (engine.CreateInstanceTx): те же снапшоты шагов, тот же инвариант
// единственного активного шага.
package child
