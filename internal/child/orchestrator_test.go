package child

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/storage"
	"github.com/shaiso/Processo/internal/storage/mem"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// --- Helpers ---

func newTestOrchestrator(store storage.Storage) (*engine.Engine, *Orchestrator) {
	e := engine.New(engine.Config{
		Store: store,
		Now:   func() time.Time { return testNow },
	})
	o := New(Config{
		Store:  store,
		Engine: e,
		Now:    func() time.Time { return testNow },
	})
	return e, o
}

func seedType(t *testing.T, store storage.Storage, name string, stepCount int) *domain.ProcessType {
	t.Helper()

	pt := &domain.ProcessType{
		ID:        uuid.New(),
		Name:      name,
		IsActive:  true,
		CreatedAt: testNow,
	}
	for i := 1; i <= stepCount; i++ {
		pt.Steps = append(pt.Steps, domain.Step{
			ID:     uuid.New(),
			TypeID: pt.ID,
			Name:   fmt.Sprintf("etapa %d", i),
			Order:  i,
			Type:   domain.StepApproval,
		})
	}
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateProcessType(ctx, pt)
	})
	if err != nil {
		t.Fatalf("seed type: %v", err)
	}
	return pt
}

func startInstance(t *testing.T, e *engine.Engine, typeID uuid.UUID, formData map[string]any) *domain.ProcessInstance {
	t.Helper()

	inst, err := e.CreateInstance(context.Background(), engine.CreateInstanceInput{
		TypeID:      typeID,
		CreatedByID: uuid.New(),
		FormData:    formData,
	})
	if err != nil {
		t.Fatalf("create instance: %v", err)
	}
	return inst
}

// completeSteps выполняет все шаги экземпляра по порядку.
func completeSteps(t *testing.T, store storage.Storage, e *engine.Engine, instanceID uuid.UUID, actor uuid.UUID) {
	t.Helper()

	var execs []domain.StepExecution
	err := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		execs, err = tx.ListStepExecutions(ctx, instanceID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, exec := range execs {
		if _, err := e.ExecuteStep(context.Background(), engine.ExecuteStepInput{
			StepExecutionID: exec.ID,
			ActorID:         actor,
		}); err != nil {
			t.Fatalf("execute step %d: %v", exec.StepOrder, err)
		}
	}
}

func reloadConfig(t *testing.T, store storage.Storage, id uuid.UUID) *domain.ChildProcessConfig {
	t.Helper()

	var cfg *domain.ChildProcessConfig
	err := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		cfg, err = tx.ChildConfig(ctx, id)
		return err
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func childInstanceOf(t *testing.T, store storage.Storage, edge *domain.ChildProcessInstance) *domain.ProcessInstance {
	t.Helper()

	var inst *domain.ProcessInstance
	err := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		inst, err = tx.Instance(ctx, edge.ChildInstanceID)
		return err
	})
	if err != nil {
		t.Fatalf("load child instance: %v", err)
	}
	return inst
}

// --- CreateConfig ---

func TestCreateConfig_Manual(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeManual,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Enabled {
		t.Error("config should be enabled")
	}
	if cfg.NextRunAt != nil {
		t.Errorf("nextRunAt = %v, want nil for MANUAL", cfg.NextRunAt)
	}
}

func TestCreateConfig_Recurrent(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeRecurrent,
		Recurrence:       &domain.Recurrence{Frequency: domain.RecurrenceDaily, Interval: 1},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NextRunAt == nil {
		t.Fatal("nextRunAt should be set for RECURRENT")
	}
	if want := testNow.AddDate(0, 0, 1); !cfg.NextRunAt.Equal(want) {
		t.Errorf("nextRunAt = %v, want %v", cfg.NextRunAt, want)
	}
}

func TestCreateConfig_BadRecurrence(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	_, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeRecurrent,
	})
	if !errors.Is(err, ErrBadRecurrence) {
		t.Errorf("error = %v, want ErrBadRecurrence", err)
	}
}

func TestCreateConfig_ParentCancelled(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	if _, err := e.CancelInstance(context.Background(), parent.ID, parent.CreatedByID); err != nil {
		t.Fatal(err)
	}

	_, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeManual,
	})
	if !errors.Is(err, ErrParentCancelled) {
		t.Errorf("error = %v, want ErrParentCancelled", err)
	}
}

func TestCreateConfig_InactiveChildType(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	parent := startInstance(t, e, parentType.ID, nil)

	inactive := &domain.ProcessType{
		ID:        uuid.New(),
		Name:      "arquivado",
		IsActive:  false,
		Steps:     []domain.Step{{ID: uuid.New(), Order: 1, Name: "etapa 1", Type: domain.StepApproval}},
		CreatedAt: testNow,
	}
	err := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateProcessType(ctx, inactive)
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      inactive.ID,
		Mode:             domain.ChildModeManual,
	})
	if !errors.Is(err, ErrChildTypeInactive) {
		t.Errorf("error = %v, want ErrChildTypeInactive", err)
	}
}

// --- SpawnChild ---

func TestSpawnChild(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, map[string]any{"valor": 100, "setor": "compras"})

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeManual,
		InputDataMapping: map[string]string{"valor": "orcamento"},
	})
	if err != nil {
		t.Fatal(err)
	}

	edge, err := o.SpawnChild(context.Background(), SpawnInput{
		ConfigID:         &cfg.ID,
		ParentInstanceID: parent.ID,
		OverrideFormData: map[string]any{"origem": "manual"},
		ActorID:          parent.CreatedByID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edge.Status != domain.ChildEdgeActive {
		t.Errorf("edge status = %s, want ACTIVE", edge.Status)
	}

	child := childInstanceOf(t, store, edge)
	if want := parent.Code + "-SUB-01"; child.Code != want {
		t.Errorf("child code = %q, want %q", child.Code, want)
	}
	if child.Status != domain.InstanceInProgress {
		t.Errorf("child status = %s, want IN_PROGRESS", child.Status)
	}

	// Маппинг применён, override наложен, непромапленные поля не утекли
	if child.FormData["orcamento"] != 100 {
		t.Errorf("formData[orcamento] = %v, want 100", child.FormData["orcamento"])
	}
	if child.FormData["origem"] != "manual" {
		t.Errorf("formData[origem] = %v, want manual", child.FormData["origem"])
	}
	if _, ok := child.FormData["setor"]; ok {
		t.Error("unmapped parent field leaked into child formData")
	}

	got := reloadConfig(t, store, cfg.ID)
	if got.RunCount != 1 || got.LastRunAt == nil {
		t.Errorf("runCount = %d, lastRunAt = %v, want 1 run recorded", got.RunCount, got.LastRunAt)
	}

	// Второй запуск получает следующий номер
	second, err := o.SpawnChild(context.Background(), SpawnInput{
		ConfigID:         &cfg.ID,
		ParentInstanceID: parent.ID,
		ActorID:          parent.CreatedByID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := parent.Code + "-SUB-02"; childInstanceOf(t, store, second).Code != want {
		t.Errorf("second child code = %q, want %q", childInstanceOf(t, store, second).Code, want)
	}
}

func TestSpawnChild_AdHoc(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	edge, err := o.SpawnChild(context.Background(), SpawnInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		ActorID:          parent.CreatedByID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edge.ConfigID != nil {
		t.Error("ad-hoc edge should have no config")
	}
}

func TestSpawnChild_ParentCancelled(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	if _, err := e.CancelInstance(context.Background(), parent.ID, parent.CreatedByID); err != nil {
		t.Fatal(err)
	}

	_, err := o.SpawnChild(context.Background(), SpawnInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		ActorID:          parent.CreatedByID,
	})
	if !errors.Is(err, ErrParentCancelled) {
		t.Errorf("error = %v, want ErrParentCancelled", err)
	}
}

// --- SyncChildStatus ---

func TestSyncChildStatus(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	edge, err := o.SpawnChild(context.Background(), SpawnInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		ActorID:          parent.CreatedByID,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Дочерний ещё идёт — статус связи не меняется
	synced, err := o.SyncChildStatus(context.Background(), edge.ChildInstanceID)
	if err != nil {
		t.Fatal(err)
	}
	if synced.Status != domain.ChildEdgeActive {
		t.Errorf("edge status = %s, want ACTIVE", synced.Status)
	}

	completeSteps(t, store, e, edge.ChildInstanceID, parent.CreatedByID)

	synced, err = o.SyncChildStatus(context.Background(), edge.ChildInstanceID)
	if err != nil {
		t.Fatal(err)
	}
	if synced.Status != domain.ChildEdgeCompleted {
		t.Errorf("edge status = %s, want COMPLETED", synced.Status)
	}
	if synced.CompletedAt == nil {
		t.Error("completedAt should be set on terminal edge")
	}

	// Повторная синхронизация идемпотентна
	again, err := o.SyncChildStatus(context.Background(), edge.ChildInstanceID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != domain.ChildEdgeCompleted || !again.CompletedAt.Equal(*synced.CompletedAt) {
		t.Errorf("repeated sync changed edge: %+v", again)
	}
}

func TestSyncChildStatus_CancelledChild(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	edge, err := o.SpawnChild(context.Background(), SpawnInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		ActorID:          parent.CreatedByID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.CancelInstance(context.Background(), edge.ChildInstanceID, parent.CreatedByID); err != nil {
		t.Fatal(err)
	}

	synced, err := o.SyncChildStatus(context.Background(), edge.ChildInstanceID)
	if err != nil {
		t.Fatal(err)
	}
	if synced.Status != domain.ChildEdgeCancelled {
		t.Errorf("edge status = %s, want CANCELLED", synced.Status)
	}
}

// --- ListChildren ---

func TestListChildren_SyncsStatuses(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	edge, err := o.SpawnChild(context.Background(), SpawnInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		ActorID:          parent.CreatedByID,
	})
	if err != nil {
		t.Fatal(err)
	}
	completeSteps(t, store, e, edge.ChildInstanceID, parent.CreatedByID)

	edges, err := o.ListChildren(context.Background(), parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].Status != domain.ChildEdgeCompleted {
		t.Errorf("edge status = %s, want COMPLETED after sync", edges[0].Status)
	}
}

// --- TRIGGERED ---

func TestOnStepCompleted_SpawnsTriggered(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, map[string]any{"valor": 42})

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeTriggered,
		TriggerStepOrder: 1,
		InputDataMapping: map[string]string{"valor": "valor"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Завершение шага 1 родителя запускает дочерний через хук движка
	var exec *domain.StepExecution
	errTx := store.View(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		exec, err = tx.StepExecutionByOrder(ctx, parent.ID, 1)
		return err
	})
	if errTx != nil {
		t.Fatal(errTx)
	}
	if _, err := e.ExecuteStep(context.Background(), engine.ExecuteStepInput{
		StepExecutionID: exec.ID,
		ActorID:         parent.CreatedByID,
	}); err != nil {
		t.Fatal(err)
	}

	edges, err := o.ListChildren(context.Background(), parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1 triggered child", len(edges))
	}
	if edges[0].ConfigID == nil || *edges[0].ConfigID != cfg.ID {
		t.Errorf("edge configID = %v, want %s", edges[0].ConfigID, cfg.ID)
	}
	if edges[0].OriginStepExecutionID == nil || *edges[0].OriginStepExecutionID != exec.ID {
		t.Errorf("edge origin = %v, want %s", edges[0].OriginStepExecutionID, exec.ID)
	}
	if childInstanceOf(t, store, &edges[0]).FormData["valor"] != 42 {
		t.Error("triggered child should inherit mapped formData")
	}
}

// --- Tick ---

func TestTick_SpawnsDueConfig(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeRecurrent,
		Recurrence:       &domain.Recurrence{Frequency: domain.RecurrenceDaily, Interval: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Конфигурация ещё не созрела
	if n, err := o.Tick(context.Background()); err != nil || n != 0 {
		t.Fatalf("tick = %d, %v, want 0 spawned", n, err)
	}

	// Сдвигаем nextRunAt в прошлое
	due := testNow.Add(-time.Minute)
	errTx := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		fresh, err := tx.ChildConfig(ctx, cfg.ID)
		if err != nil {
			return err
		}
		fresh.NextRunAt = &due
		return tx.UpdateChildConfig(ctx, fresh)
	})
	if errTx != nil {
		t.Fatal(errTx)
	}

	n, err := o.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("tick spawned %d, want 1", n)
	}

	got := reloadConfig(t, store, cfg.ID)
	if got.RunCount != 1 {
		t.Errorf("runCount = %d, want 1", got.RunCount)
	}
	if got.NextRunAt == nil || !got.NextRunAt.After(testNow) {
		t.Errorf("nextRunAt = %v, want advanced past now", got.NextRunAt)
	}

	edges, err := o.ListChildren(context.Background(), parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 1 {
		t.Errorf("got %d edges, want 1", len(edges))
	}
}

func TestTick_DisablesConfigOfTerminalParent(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 1)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeRecurrent,
		Recurrence:       &domain.Recurrence{Frequency: domain.RecurrenceDaily, Interval: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	completeSteps(t, store, e, parent.ID, parent.CreatedByID)

	due := testNow.Add(-time.Minute)
	errTx := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		fresh, err := tx.ChildConfig(ctx, cfg.ID)
		if err != nil {
			return err
		}
		fresh.NextRunAt = &due
		return tx.UpdateChildConfig(ctx, fresh)
	})
	if errTx != nil {
		t.Fatal(errTx)
	}

	n, err := o.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("tick spawned %d, want 0 for terminal parent", n)
	}

	got := reloadConfig(t, store, cfg.ID)
	if got.Enabled {
		t.Error("config of terminal parent should be disabled")
	}
	if got.NextRunAt != nil {
		t.Errorf("nextRunAt = %v, want nil on disabled config", got.NextRunAt)
	}
}

// flakyStore отдаёт преходящую ошибку на каждый View после первого
// (первый — выборка созревших конфигураций в Tick).
type flakyStore struct {
	storage.Storage
	views int
	fail  error
}

func (f *flakyStore) View(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	f.views++
	if f.views > 1 {
		return f.fail
	}
	return f.Storage.View(ctx, fn)
}

func TestTick_KeepsConfigOnTransientError(t *testing.T) {
	store := mem.New()
	e, o := newTestOrchestrator(store)
	parentType := seedType(t, store, "processo pai", 2)
	childType := seedType(t, store, "processo filho", 1)
	parent := startInstance(t, e, parentType.ID, nil)

	cfg, err := o.CreateConfig(context.Background(), CreateConfigInput{
		ParentInstanceID: parent.ID,
		ChildTypeID:      childType.ID,
		Mode:             domain.ChildModeRecurrent,
		Recurrence:       &domain.Recurrence{Frequency: domain.RecurrenceDaily, Interval: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	due := testNow.Add(-time.Minute)
	errTx := store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		fresh, err := tx.ChildConfig(ctx, cfg.ID)
		if err != nil {
			return err
		}
		fresh.NextRunAt = &due
		return tx.UpdateChildConfig(ctx, fresh)
	})
	if errTx != nil {
		t.Fatal(errTx)
	}

	// Загрузка родителя падает: конфигурация остаётся включённой
	// и созревшей, а не отключается навсегда
	_, fo := newTestOrchestrator(&flakyStore{Storage: store, fail: errors.New("storage indisponivel")})
	n, err := fo.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("tick spawned %d, want 0 on transient error", n)
	}

	got := reloadConfig(t, store, cfg.ID)
	if !got.Enabled {
		t.Error("config should stay enabled after transient error")
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(due) {
		t.Errorf("nextRunAt = %v, want untouched %v", got.NextRunAt, due)
	}

	// Следующий тик на здоровом хранилище запускает дочерний процесс
	n, err = o.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("retry tick spawned %d, want 1", n)
	}
}
