package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
	"github.com/shaiso/Processo/internal/storage/mem"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// --- Helpers ---

func newTestEngine(store storage.Storage) *Engine {
	return New(Config{
		Store: store,
		Now:   func() time.Time { return testNow },
	})
}

// seedType создаёт шаблон с заданными шагами.
func seedType(t *testing.T, store storage.Storage, steps ...domain.Step) *domain.ProcessType {
	t.Helper()

	pt := &domain.ProcessType{
		ID:        uuid.New(),
		Name:      "compra de material",
		IsActive:  true,
		CreatedAt: testNow,
	}
	for i := range steps {
		steps[i].ID = uuid.New()
		steps[i].TypeID = pt.ID
		if steps[i].Name == "" {
			steps[i].Name = fmt.Sprintf("etapa %d", steps[i].Order)
		}
	}
	pt.Steps = steps

	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateProcessType(ctx, pt)
	})
	if err != nil {
		t.Fatalf("seed type: %v", err)
	}
	return pt
}

// linearSteps возвращает n обычных шагов без условий.
func linearSteps(n int) []domain.Step {
	steps := make([]domain.Step, n)
	for i := range steps {
		steps[i] = domain.Step{Order: i + 1, Type: domain.StepApproval}
	}
	return steps
}

func execByOrder(t *testing.T, store storage.Storage, instanceID uuid.UUID, order int) *domain.StepExecution {
	t.Helper()

	var exec *domain.StepExecution
	err := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		exec, err = tx.StepExecutionByOrder(ctx, instanceID, order)
		return err
	})
	if err != nil {
		t.Fatalf("load step execution order %d: %v", order, err)
	}
	return exec
}

func reloadInstance(t *testing.T, store storage.Storage, id uuid.UUID) *domain.ProcessInstance {
	t.Helper()

	var inst *domain.ProcessInstance
	err := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		inst, err = tx.Instance(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("load instance: %v", err)
	}
	return inst
}

// assertSingleActive проверяет инвариант "ровно один активный шаг
// у живого экземпляра, ноль у терминального".
func assertSingleActive(t *testing.T, store storage.Storage, inst *domain.ProcessInstance) {
	t.Helper()

	var execs []domain.StepExecution
	err := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		execs, err = tx.ListStepExecutions(ctx, inst.ID)
		return err
	})
	if err != nil {
		t.Fatalf("list step executions: %v", err)
	}

	active := 0
	for _, e := range execs {
		if e.Status == domain.StepExecInProgress {
			active++
		}
	}

	want := 1
	if inst.Status.IsTerminal() {
		want = 0
	}
	if active != want {
		t.Errorf("instance %s has %d active steps, want %d", inst.Status, active, want)
	}
}

func execute(t *testing.T, e *Engine, execID, actorID uuid.UUID, action string) *domain.StepExecution {
	t.Helper()

	exec, err := e.ExecuteStep(context.Background(), ExecuteStepInput{
		StepExecutionID: execID,
		Action:          action,
		ActorID:         actorID,
	})
	if err != nil {
		t.Fatalf("execute step: %v", err)
	}
	return exec
}

// --- CreateInstance ---

func TestCreateInstance(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)
	pt := seedType(t, store, linearSteps(3)...)
	creator := uuid.New()

	inst, err := e.CreateInstance(context.Background(), CreateInstanceInput{
		TypeID:      pt.ID,
		CreatedByID: creator,
		FormData:    map[string]any{"valor": 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inst.Code != "PRC-2026-00001" {
		t.Errorf("code = %q, want PRC-2026-00001", inst.Code)
	}
	if inst.Status != domain.InstanceInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", inst.Status)
	}
	if inst.CurrentStepOrder != 1 {
		t.Errorf("current step = %d, want 1", inst.CurrentStepOrder)
	}

	first := execByOrder(t, store, inst.ID, 1)
	if first.Status != domain.StepExecInProgress {
		t.Errorf("first step status = %s, want IN_PROGRESS", first.Status)
	}
	for order := 2; order <= 3; order++ {
		if got := execByOrder(t, store, inst.ID, order).Status; got != domain.StepExecPending {
			t.Errorf("step %d status = %s, want PENDING", order, got)
		}
	}

	// Второй экземпляр того же года получает следующий номер
	second, err := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: creator})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Code != "PRC-2026-00002" {
		t.Errorf("second code = %q, want PRC-2026-00002", second.Code)
	}
}

func TestCreateInstance_SLADue(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(1)
	steps[0].SLAHours = 48
	pt := seedType(t, store, steps...)

	inst, err := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := execByOrder(t, store, inst.ID, 1)
	if first.DueAt == nil {
		t.Fatal("dueAt should be set from SLA")
	}
	if want := testNow.Add(48 * time.Hour); !first.DueAt.Equal(want) {
		t.Errorf("dueAt = %v, want %v", first.DueAt, want)
	}
}

func TestCreateInstance_InactiveType(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	pt := &domain.ProcessType{
		ID:        uuid.New(),
		Name:      "arquivado",
		IsActive:  false,
		Steps:     []domain.Step{{ID: uuid.New(), Order: 1, Name: "etapa 1", Type: domain.StepApproval}},
		CreatedAt: testNow,
	}
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateProcessType(ctx, pt)
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: uuid.New()})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

// --- ExecuteStep: линейное продвижение ---

func TestExecuteStep_LinearFlow(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)
	pt := seedType(t, store, linearSteps(3)...)
	actor := uuid.New()

	inst, err := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	if err != nil {
		t.Fatal(err)
	}

	for order := 1; order <= 3; order++ {
		exec := execByOrder(t, store, inst.ID, order)
		done := execute(t, e, exec.ID, actor, "")
		if done.Status != domain.StepExecCompleted {
			t.Errorf("step %d status = %s, want COMPLETED", order, done.Status)
		}
		assertSingleActive(t, store, reloadInstance(t, store, inst.ID))
	}

	final := reloadInstance(t, store, inst.ID)
	if final.Status != domain.InstanceCompleted {
		t.Errorf("instance status = %s, want COMPLETED", final.Status)
	}
	if final.CompletedAt == nil || !final.CompletedAt.Equal(testNow) {
		t.Errorf("completedAt = %v, want %v", final.CompletedAt, testNow)
	}
}

func TestExecuteStep_SecondCallFails(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)
	pt := seedType(t, store, linearSteps(2)...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	execute(t, e, exec.ID, actor, "")

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, ActorID: actor})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

func TestExecuteStep_PendingStepFails(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)
	pt := seedType(t, store, linearSteps(2)...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	second := execByOrder(t, store, inst.ID, 2)

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: second.ID, ActorID: actor})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

// --- ExecuteStep: директивы ---

func TestExecuteStep_OrderDirective(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(4)
	steps[0].Actions = []string{"urgente"}
	steps[0].Conditions = map[string]json.RawMessage{"urgente": json.RawMessage(`4`)}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	execute(t, e, exec.ID, actor, "urgente")

	got := reloadInstance(t, store, inst.ID)
	if got.CurrentStepOrder != 4 {
		t.Errorf("current step = %d, want 4", got.CurrentStepOrder)
	}
	if s := execByOrder(t, store, inst.ID, 4).Status; s != domain.StepExecInProgress {
		t.Errorf("step 4 status = %s, want IN_PROGRESS", s)
	}
	// Пропущенные шаги остаются PENDING
	for _, order := range []int{2, 3} {
		if s := execByOrder(t, store, inst.ID, order).Status; s != domain.StepExecPending {
			t.Errorf("step %d status = %s, want PENDING", order, s)
		}
	}
}

func TestExecuteStep_SelfOrderDirective(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(3)
	steps[1].Actions = []string{"refazer"}
	steps[1].Conditions = map[string]json.RawMessage{"refazer": json.RawMessage(`2`)}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	execute(t, e, execByOrder(t, store, inst.ID, 1).ID, actor, "")

	exec := execByOrder(t, store, inst.ID, 2)
	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, Action: "refazer", ActorID: actor})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}

	// Транзакция откатилась целиком: шаг всё ещё активен,
	// экземпляр не остался без активного шага
	if s := execByOrder(t, store, inst.ID, 2).Status; s != domain.StepExecInProgress {
		t.Errorf("step 2 status = %s, want IN_PROGRESS after rollback", s)
	}
	got := reloadInstance(t, store, inst.ID)
	if got.Status != domain.InstanceInProgress {
		t.Errorf("instance status = %s, want IN_PROGRESS", got.Status)
	}
	assertSingleActive(t, store, got)
}

func TestExecuteStep_PreviousDirective(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(3)
	steps[1].Actions = []string{"devolver"}
	steps[1].Conditions = map[string]json.RawMessage{"devolver": json.RawMessage(`"PREVIOUS"`)}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	execute(t, e, execByOrder(t, store, inst.ID, 1).ID, actor, "")

	execute(t, e, execByOrder(t, store, inst.ID, 2).ID, actor, "devolver")

	got := reloadInstance(t, store, inst.ID)
	if got.CurrentStepOrder != 1 {
		t.Errorf("current step = %d, want 1", got.CurrentStepOrder)
	}
	if s := execByOrder(t, store, inst.ID, 1).Status; s != domain.StepExecInProgress {
		t.Errorf("step 1 status = %s, want IN_PROGRESS after reactivation", s)
	}
	assertSingleActive(t, store, got)
}

func TestExecuteStep_PreviousOnFirstStep(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(2)
	steps[0].Actions = []string{"devolver"}
	steps[0].Conditions = map[string]json.RawMessage{"devolver": json.RawMessage(`"PREVIOUS"`)}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, Action: "devolver", ActorID: actor})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}

	// Транзакция откатилась целиком: шаг всё ещё активен
	if s := execByOrder(t, store, inst.ID, 1).Status; s != domain.StepExecInProgress {
		t.Errorf("step 1 status = %s, want IN_PROGRESS after rollback", s)
	}
}

func TestExecuteStep_EndDirectiveRejects(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(3)
	steps[0].Actions = []string{"rejeitar"}
	steps[0].Conditions = map[string]json.RawMessage{"rejeitar": json.RawMessage(`"END"`)}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	done := execute(t, e, exec.ID, actor, "rejeitar")
	if done.Status != domain.StepExecRejected {
		t.Errorf("step status = %s, want REJECTED", done.Status)
	}

	got := reloadInstance(t, store, inst.ID)
	if got.Status != domain.InstanceRejected {
		t.Errorf("instance status = %s, want REJECTED", got.Status)
	}
	assertSingleActive(t, store, got)
}

func TestExecuteStep_ReprovarOnLastStepRejects(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(1)
	steps[0].Actions = []string{"aprovar", "reprovar"}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	execute(t, e, execByOrder(t, store, inst.ID, 1).ID, actor, "reprovar")

	if got := reloadInstance(t, store, inst.ID); got.Status != domain.InstanceRejected {
		t.Errorf("instance status = %s, want REJECTED", got.Status)
	}
}

func TestExecuteStep_ForwardDirectiveBeatsReprovar(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	// reprovar с числовой директивой — процесс продолжается,
	// отклонения нет
	steps := linearSteps(3)
	steps[0].Actions = []string{"reprovar"}
	steps[0].Conditions = map[string]json.RawMessage{"reprovar": json.RawMessage(`3`)}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	execute(t, e, execByOrder(t, store, inst.ID, 1).ID, actor, "reprovar")

	got := reloadInstance(t, store, inst.ID)
	if got.Status != domain.InstanceInProgress {
		t.Errorf("instance status = %s, want IN_PROGRESS", got.Status)
	}
	if got.CurrentStepOrder != 3 {
		t.Errorf("current step = %d, want 3", got.CurrentStepOrder)
	}
}

func TestExecuteStep_InvalidAction(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(1)
	steps[0].Actions = []string{"aprovar"}
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, Action: "carimbar", ActorID: actor})
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("error = %v, want ErrInvalidAction", err)
	}
}

// --- ExecuteStep: гейтинг ---

func TestExecuteStep_AttachmentGate(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(2)
	steps[0].RequireAttachment = true
	steps[0].MinAttachments = 2
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, ActorID: actor})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("error = %v, want ErrPreconditionFailed", err)
	}

	// Добавляем два вложения — гейт открывается
	errTx := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		for i := 0; i < 2; i++ {
			att := &domain.Attachment{
				ID:              uuid.New(),
				StepExecutionID: exec.ID,
				Filename:        fmt.Sprintf("doc-%d.pdf", i),
				UploadedByID:    actor,
				CreatedAt:       testNow,
			}
			if err := tx.CreateAttachment(ctx, att); err != nil {
				return err
			}
		}
		return nil
	})
	if errTx != nil {
		t.Fatal(errTx)
	}

	execute(t, e, exec.ID, actor, "")
}

func TestExecuteStep_SignatureGate(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(2)
	steps[0].RequiresSignature = true
	pt := seedType(t, store, steps...)
	actor := uuid.New()
	signer := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	exec := execByOrder(t, store, inst.ID, 1)

	req := &domain.SignatureRequirement{
		ID:              uuid.New(),
		StepExecutionID: exec.ID,
		UserID:          &signer,
		Order:           1,
		Type:            domain.SignatureSequential,
		CreatedAt:       testNow,
	}
	errTx := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateRequirement(ctx, req)
	})
	if errTx != nil {
		t.Fatal(errTx)
	}

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, ActorID: actor})
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("error = %v, want ErrPreconditionFailed", err)
	}

	// Закрываем требование — шаг проходит
	errTx = store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateSignatureRecord(ctx, &domain.SignatureRecord{
			ID:            uuid.New(),
			RequirementID: req.ID,
			SignerID:      signer,
			Status:        domain.SignatureRecordCompleted,
			SignedAt:      testNow,
		})
	})
	if errTx != nil {
		t.Fatal(errTx)
	}

	execute(t, e, exec.ID, actor, "")
}

// --- ExecuteStep: INPUT шаги ---

func TestExecuteStep_InputMergesFormData(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)

	steps := linearSteps(2)
	steps[0].Type = domain.StepInput
	pt := seedType(t, store, steps...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{
		TypeID:      pt.ID,
		CreatedByID: actor,
		FormData:    map[string]any{"valor": 100, "setor": "compras"},
	})
	exec := execByOrder(t, store, inst.ID, 1)

	_, err := e.ExecuteStep(context.Background(), ExecuteStepInput{
		StepExecutionID: exec.ID,
		ActorID:         actor,
		Metadata:        map[string]any{"valor": 250, "urgencia": "alta"},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := reloadInstance(t, store, inst.ID)
	if got.FormData["valor"] != 250 {
		t.Errorf("formData[valor] = %v, want 250", got.FormData["valor"])
	}
	if got.FormData["urgencia"] != "alta" {
		t.Errorf("formData[urgencia] = %v, want alta", got.FormData["urgencia"])
	}
	if got.FormData["setor"] != "compras" {
		t.Errorf("formData[setor] = %v, want compras", got.FormData["setor"])
	}
}

// --- Авторизация ---

type denyAll struct{}

func (denyAll) Authorize(ctx context.Context, actorID uuid.UUID, inst *domain.ProcessInstance, step *domain.Step) error {
	return errors.New("nope")
}

func TestExecuteStep_Forbidden(t *testing.T) {
	store := mem.New()
	pt := seedType(t, store, linearSteps(1)...)
	actor := uuid.New()

	e := New(Config{
		Store:      store,
		Authorizer: denyAll{},
		Now:        func() time.Time { return testNow },
	})

	inst, err := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})
	if err != nil {
		t.Fatal(err)
	}
	exec := execByOrder(t, store, inst.ID, 1)

	_, err = e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, ActorID: actor})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

// --- CancelInstance ---

func TestCancelInstance(t *testing.T) {
	store := mem.New()
	e := newTestEngine(store)
	pt := seedType(t, store, linearSteps(2)...)
	actor := uuid.New()

	inst, _ := e.CreateInstance(context.Background(), CreateInstanceInput{TypeID: pt.ID, CreatedByID: actor})

	cancelled, err := e.CancelInstance(context.Background(), inst.ID, actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.InstanceCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if cancelled.CompletedAt == nil || !cancelled.CompletedAt.Equal(testNow) {
		t.Errorf("completedAt = %v, want %v", cancelled.CompletedAt, testNow)
	}

	// Активный шаг вернулся в PENDING
	if s := execByOrder(t, store, inst.ID, 1).Status; s != domain.StepExecPending {
		t.Errorf("step 1 status = %s, want PENDING", s)
	}
	assertSingleActive(t, store, cancelled)

	// Повторная отмена и выполнение шага невозможны
	if _, err := e.CancelInstance(context.Background(), inst.ID, actor); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second cancel error = %v, want ErrInvalidState", err)
	}
	exec := execByOrder(t, store, inst.ID, 1)
	if _, err := e.ExecuteStep(context.Background(), ExecuteStepInput{StepExecutionID: exec.ID, ActorID: actor}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("execute after cancel error = %v, want ErrInvalidState", err)
	}
}
