package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/signature"
	"github.com/shaiso/Processo/internal/storage"
)

// Токен отклоняющего действия. Действие "reprovar" на терминальном
// переходе даёт статус REJECTED вместо COMPLETED.
const rejectingAction = "reprovar"

// ExecuteStepInput — параметры выполнения шага.
type ExecuteStepInput struct {
	StepExecutionID uuid.UUID

	// Action — выбранный токен действия (может быть пустым).
	Action string

	// Comment — комментарий исполнителя.
	Comment string

	// Metadata — локальные данные шага; для INPUT шагов сливаются
	// в formData экземпляра.
	Metadata map[string]any

	// ActorID — исполнитель.
	ActorID uuid.UUID
}

// executeOutcome — результат перехода для пост-коммитных эффектов.
type executeOutcome struct {
	instance *domain.ProcessInstance
	exec     *domain.StepExecution
	nextStep *domain.Step // nil, если переход терминальный
	terminal bool
	rejected bool
}

// ExecuteStep применяет действие к активному StepExecution.
//
// Предусловия (в порядке проверки, без мутаций до полной валидации):
//  1. Шаг существует и IN_PROGRESS, экземпляр IN_PROGRESS
//  2. Актор авторизован (внешний Authorizer)
//  3. Действие входит в allowed actions шага
//  4. Гейтинг по вложениям (minAttachments)
//  5. Гейтинг по подписям (все требования закрыты)
//
// Весь переход — одна serializable транзакция; любая ошибка
// откатывает его целиком.
func (e *Engine) ExecuteStep(ctx context.Context, in ExecuteStepInput) (*domain.StepExecution, error) {
	var out executeOutcome

	err := e.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return e.executeStepTx(ctx, tx, in, &out)
	})
	if err != nil {
		return nil, err
	}

	e.afterExecute(ctx, in, &out)
	return out.exec, nil
}

// executeStepTx — транзакционная часть ExecuteStep.
func (e *Engine) executeStepTx(ctx context.Context, tx storage.Tx, in ExecuteStepInput, out *executeOutcome) error {
	// 1. Состояние шага и экземпляра
	exec, err := tx.StepExecution(ctx, in.StepExecutionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: step execution %s not found", ErrInvalidState, in.StepExecutionID)
		}
		return fmt.Errorf("load step execution: %w", err)
	}
	if exec.Status != domain.StepExecInProgress {
		return fmt.Errorf("%w: step execution is %s, want IN_PROGRESS", ErrInvalidState, exec.Status)
	}

	inst, err := tx.Instance(ctx, exec.InstanceID)
	if err != nil {
		return fmt.Errorf("load instance: %w", err)
	}
	if inst.Status != domain.InstanceInProgress {
		return fmt.Errorf("%w: instance %s is %s", ErrInvalidState, inst.Code, inst.Status)
	}

	ptype, err := tx.ProcessType(ctx, inst.TypeID)
	if err != nil {
		return fmt.Errorf("load process type: %w", err)
	}
	step := ptype.StepByOrder(exec.StepOrder)
	if step == nil {
		return fmt.Errorf("%w: template has no step with order %d", ErrInvalidConfiguration, exec.StepOrder)
	}

	// 2. Авторизация
	if e.auth != nil {
		if err := e.auth.Authorize(ctx, in.ActorID, inst, step); err != nil {
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}

	// 3. Допустимость действия
	if in.Action != "" && !step.AllowsAction(in.Action) {
		return fmt.Errorf("%w: action %q is not allowed on step %d", ErrInvalidAction, in.Action, step.Order)
	}

	// 4. Гейтинг по вложениям
	if minAtt := step.MinRequiredAttachments(); minAtt > 0 {
		atts, err := tx.Attachments(ctx, exec.ID)
		if err != nil {
			return fmt.Errorf("count attachments: %w", err)
		}
		if len(atts) < minAtt {
			return fmt.Errorf("%w: step requires %d attachment(s), has %d", ErrPreconditionFailed, minAtt, len(atts))
		}
	}

	// 5. Гейтинг по подписям: подписи собираются до выполнения шага,
	// движок только проверяет их полноту
	if step.RequiresSignature {
		reqs, err := tx.Requirements(ctx, exec.ID)
		if err != nil {
			return fmt.Errorf("load signature requirements: %w", err)
		}
		records, err := tx.RecordsByStep(ctx, exec.ID)
		if err != nil {
			return fmt.Errorf("load signature records: %w", err)
		}
		if pending := signature.Outstanding(reqs, records); len(pending) > 0 {
			return fmt.Errorf("%w: %d signature requirement(s) outstanding", ErrPreconditionFailed, len(pending))
		}
	}

	// Директива ветвления разрешается до любых мутаций
	dir, err := step.ResolveDirective(in.Action)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	now := e.now()
	exec.Complete(in.Action, in.Comment, in.Metadata, in.ActorID, now)

	if step.Type == domain.StepInput {
		inst.MergeFormData(in.Metadata)
	}

	// Переход
	shouldEnd := false
	nextOrder := 0
	switch dir.Kind {
	case domain.DirectiveEnd:
		shouldEnd = true

	case domain.DirectivePrevious:
		if exec.StepOrder <= 1 {
			return fmt.Errorf("%w: PREVIOUS directive on first step", ErrInvalidConfiguration)
		}
		nextOrder = exec.StepOrder - 1
		if ptype.StepByOrder(nextOrder) == nil {
			return fmt.Errorf("%w: template has no step with order %d", ErrInvalidConfiguration, nextOrder)
		}

	case domain.DirectiveOrder:
		if ptype.StepByOrder(dir.Order) == nil {
			return fmt.Errorf("%w: directive targets missing order %d", ErrInvalidConfiguration, dir.Order)
		}
		// Директива на собственный order завершила бы и тут же
		// активировала один и тот же шаг: запись завершения затёрла бы
		// активацию, оставив экземпляр без активного шага.
		if dir.Order == exec.StepOrder {
			return fmt.Errorf("%w: directive targets its own step order %d", ErrInvalidConfiguration, dir.Order)
		}
		nextOrder = dir.Order

	default: // DirectiveNone — следующий по порядку
		nextOrder = exec.StepOrder + 1
	}

	if !shouldEnd {
		nextStep := ptype.StepByOrder(nextOrder)
		if nextStep != nil {
			nextExec, err := tx.StepExecutionByOrder(ctx, inst.ID, nextOrder)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					// Шаг есть в шаблоне, но выполнение не создано —
					// экземпляр рассинхронизирован с шаблоном
					return fmt.Errorf("%w: no step execution for order %d", ErrInvalidConfiguration, nextOrder)
				}
				return fmt.Errorf("load next step execution: %w", err)
			}
			nextExec.Activate(nextStep, now)
			if err := tx.UpdateStepExecution(ctx, nextExec); err != nil {
				return fmt.Errorf("activate next step: %w", err)
			}
			inst.CurrentStepOrder = nextOrder
			out.nextStep = nextStep
		} else {
			// Проход за последний шаг — терминализация по умолчанию
			out.terminal = true
		}
	} else {
		out.terminal = true
	}

	if out.terminal {
		// Двойное правило отклонения: явная директива END или
		// действие "reprovar" дают REJECTED, иначе COMPLETED.
		out.rejected = dir.Kind == domain.DirectiveEnd || in.Action == rejectingAction
		if out.rejected {
			exec.Status = domain.StepExecRejected
			inst.MarkRejected(now)
		} else {
			inst.MarkCompleted(now)
		}
	}

	if err := tx.UpdateStepExecution(ctx, exec); err != nil {
		return fmt.Errorf("complete step: %w", err)
	}
	if err := tx.UpdateInstance(ctx, inst); err != nil {
		return fmt.Errorf("update instance: %w", err)
	}

	out.instance = inst
	out.exec = exec
	return nil
}

// afterExecute — пост-коммитные эффекты: события, аудит, триггеры
// дочерних процессов. Ни один из них не влияет на результат перехода.
func (e *Engine) afterExecute(ctx context.Context, in ExecuteStepInput, out *executeOutcome) {
	inst, exec := out.instance, out.exec

	if e.events != nil {
		if err := e.events.StepCompleted(ctx, inst.ID, inst.Code, exec.StepOrder, exec.Action); err != nil {
			e.logger.Warn("failed to publish step.completed", "instance_id", inst.ID, "error", err)
		}
		switch {
		case out.terminal && out.rejected:
			if err := e.events.ProcessRejected(ctx, inst.ID, inst.Code, exec.Action); err != nil {
				e.logger.Warn("failed to publish process.rejected", "instance_id", inst.ID, "error", err)
			}
		case out.terminal:
			if err := e.events.ProcessCompleted(ctx, inst.ID, inst.Code); err != nil {
				e.logger.Warn("failed to publish process.completed", "instance_id", inst.ID, "error", err)
			}
		}
	}
	if out.nextStep != nil {
		e.emitAssigned(ctx, inst, out.nextStep)
	}

	e.auditRecord(ctx, "step.execute", "step_execution", exec.ID, in.ActorID, map[string]any{
		"instance_code": inst.Code,
		"step_order":    exec.StepOrder,
		"action":        exec.Action,
		"terminal":      out.terminal,
	})

	if e.children != nil {
		if err := e.children.OnStepCompleted(ctx, inst, exec); err != nil {
			e.logger.Warn("child spawn hook failed", "instance_id", inst.ID, "step_order", exec.StepOrder, "error", err)
		}
	}
}
