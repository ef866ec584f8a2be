package mem

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// tx — операции над одним состоянием. Чтение и запись работают
// с клонами, чтобы вызывающие никогда не делили память с хранилищем.
type tx struct {
	st *state
}

var _ storage.Tx = (*tx)(nil)

// --- Шаблоны процессов ---

func (t *tx) ProcessType(ctx context.Context, id uuid.UUID) (*domain.ProcessType, error) {
	pt, ok := t.st.types[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneType(pt), nil
}

func (t *tx) CreateProcessType(ctx context.Context, pt *domain.ProcessType) error {
	if _, ok := t.st.types[pt.ID]; ok {
		return storage.ErrAlreadyExists
	}
	t.st.types[pt.ID] = cloneType(pt)
	return nil
}

func (t *tx) ListProcessTypes(ctx context.Context, onlyActive bool) ([]domain.ProcessType, error) {
	out := make([]domain.ProcessType, 0, len(t.st.types))
	for _, pt := range t.st.types {
		if onlyActive && !pt.IsActive {
			continue
		}
		out = append(out, *cloneType(pt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Экземпляры процессов ---

func (t *tx) Instance(ctx context.Context, id uuid.UUID) (*domain.ProcessInstance, error) {
	p, ok := t.st.instances[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneInstance(p), nil
}

func (t *tx) CreateInstance(ctx context.Context, p *domain.ProcessInstance) error {
	if _, ok := t.st.instances[p.ID]; ok {
		return storage.ErrAlreadyExists
	}
	for _, other := range t.st.instances {
		if other.Code == p.Code {
			return storage.ErrAlreadyExists
		}
	}
	t.st.instances[p.ID] = cloneInstance(p)
	return nil
}

func (t *tx) UpdateInstance(ctx context.Context, p *domain.ProcessInstance) error {
	if _, ok := t.st.instances[p.ID]; !ok {
		return storage.ErrNotFound
	}
	t.st.instances[p.ID] = cloneInstance(p)
	return nil
}

func (t *tx) ListInstances(ctx context.Context, f storage.InstanceFilter) ([]domain.ProcessInstance, error) {
	out := make([]domain.ProcessInstance, 0, len(t.st.instances))
	for _, p := range t.st.instances {
		if f.TypeID != nil && p.TypeID != *f.TypeID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.CreatedByID != nil && p.CreatedByID != *f.CreatedByID {
			continue
		}
		out = append(out, *cloneInstance(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.ProcessInstance{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *tx) NextInstanceSeq(ctx context.Context, year int) (int, error) {
	t.st.instanceSeq[year]++
	return t.st.instanceSeq[year], nil
}

// --- Выполнения шагов ---

func (t *tx) StepExecution(ctx context.Context, id uuid.UUID) (*domain.StepExecution, error) {
	e, ok := t.st.executions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneExecution(e), nil
}

func (t *tx) StepExecutionByOrder(ctx context.Context, instanceID uuid.UUID, order int) (*domain.StepExecution, error) {
	for _, e := range t.st.executions {
		if e.InstanceID == instanceID && e.StepOrder == order {
			return cloneExecution(e), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (t *tx) ListStepExecutions(ctx context.Context, instanceID uuid.UUID) ([]domain.StepExecution, error) {
	var out []domain.StepExecution
	for _, e := range t.st.executions {
		if e.InstanceID == instanceID {
			out = append(out, *cloneExecution(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (t *tx) CreateStepExecution(ctx context.Context, e *domain.StepExecution) error {
	if _, ok := t.st.executions[e.ID]; ok {
		return storage.ErrAlreadyExists
	}
	t.st.executions[e.ID] = cloneExecution(e)
	return nil
}

func (t *tx) UpdateStepExecution(ctx context.Context, e *domain.StepExecution) error {
	if _, ok := t.st.executions[e.ID]; !ok {
		return storage.ErrNotFound
	}
	t.st.executions[e.ID] = cloneExecution(e)
	return nil
}

// --- Вложения ---

func (t *tx) Attachment(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	a, ok := t.st.attachments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (t *tx) Attachments(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.Attachment, error) {
	var out []domain.Attachment
	for _, a := range t.st.attachments {
		if a.StepExecutionID == stepExecutionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *tx) AttachmentData(ctx context.Context, attachmentID uuid.UUID) ([]byte, error) {
	data, ok := t.st.blobs[attachmentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (t *tx) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	if _, ok := t.st.attachments[a.ID]; ok {
		return storage.ErrAlreadyExists
	}
	c := *a
	t.st.attachments[a.ID] = &c
	return nil
}

func (t *tx) UpdateAttachment(ctx context.Context, a *domain.Attachment) error {
	if _, ok := t.st.attachments[a.ID]; !ok {
		return storage.ErrNotFound
	}
	c := *a
	t.st.attachments[a.ID] = &c
	return nil
}

// --- Подписи ---

func (t *tx) Requirement(ctx context.Context, id uuid.UUID) (*domain.SignatureRequirement, error) {
	r, ok := t.st.reqs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (t *tx) Requirements(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.SignatureRequirement, error) {
	var out []domain.SignatureRequirement
	for _, r := range t.st.reqs {
		if r.StepExecutionID == stepExecutionID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order == out[j].Order {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Order < out[j].Order
	})
	return out, nil
}

func (t *tx) CreateRequirement(ctx context.Context, r *domain.SignatureRequirement) error {
	if _, ok := t.st.reqs[r.ID]; ok {
		return storage.ErrAlreadyExists
	}
	c := *r
	t.st.reqs[r.ID] = &c
	return nil
}

func (t *tx) RecordsByStep(ctx context.Context, stepExecutionID uuid.UUID) ([]domain.SignatureRecord, error) {
	var out []domain.SignatureRecord
	for _, rec := range t.st.records {
		req, ok := t.st.reqs[rec.RequirementID]
		if !ok || req.StepExecutionID != stepExecutionID {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.Before(out[j].SignedAt) })
	return out, nil
}

func (t *tx) CreateSignatureRecord(ctx context.Context, r *domain.SignatureRecord) error {
	if _, ok := t.st.records[r.ID]; ok {
		return storage.ErrAlreadyExists
	}
	c := *r
	t.st.records[r.ID] = &c
	return nil
}

// --- Дочерние процессы ---

func (t *tx) ChildConfig(ctx context.Context, id uuid.UUID) (*domain.ChildProcessConfig, error) {
	c, ok := t.st.configs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneConfig(c), nil
}

func (t *tx) CreateChildConfig(ctx context.Context, c *domain.ChildProcessConfig) error {
	if _, ok := t.st.configs[c.ID]; ok {
		return storage.ErrAlreadyExists
	}
	t.st.configs[c.ID] = cloneConfig(c)
	return nil
}

func (t *tx) UpdateChildConfig(ctx context.Context, c *domain.ChildProcessConfig) error {
	if _, ok := t.st.configs[c.ID]; !ok {
		return storage.ErrNotFound
	}
	t.st.configs[c.ID] = cloneConfig(c)
	return nil
}

func (t *tx) ChildConfigsByParent(ctx context.Context, parentID uuid.UUID) ([]domain.ChildProcessConfig, error) {
	var out []domain.ChildProcessConfig
	for _, c := range t.st.configs {
		if c.ParentInstanceID == parentID {
			out = append(out, *cloneConfig(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) TriggeredConfigs(ctx context.Context, parentID uuid.UUID, stepOrder int) ([]domain.ChildProcessConfig, error) {
	var out []domain.ChildProcessConfig
	for _, c := range t.st.configs {
		if c.ParentInstanceID != parentID || !c.Enabled {
			continue
		}
		if c.Mode != domain.ChildModeTriggered || c.TriggerStepOrder != stepOrder {
			continue
		}
		out = append(out, *cloneConfig(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) DueChildConfigs(ctx context.Context, now time.Time, limit int) ([]domain.ChildProcessConfig, error) {
	var out []domain.ChildProcessConfig
	for _, c := range t.st.configs {
		if c.Mode != domain.ChildModeRecurrent && c.Mode != domain.ChildModeScheduled {
			continue
		}
		if !c.IsDue(now) {
			continue
		}
		out = append(out, *cloneConfig(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextRunAt.Before(*out[j].NextRunAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) ChildEdge(ctx context.Context, id uuid.UUID) (*domain.ChildProcessInstance, error) {
	e, ok := t.st.edges[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (t *tx) ChildEdgeByChildInstance(ctx context.Context, childInstanceID uuid.UUID) (*domain.ChildProcessInstance, error) {
	for _, e := range t.st.edges {
		if e.ChildInstanceID == childInstanceID {
			c := *e
			return &c, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (t *tx) ChildEdgesByParent(ctx context.Context, parentID uuid.UUID) ([]domain.ChildProcessInstance, error) {
	var out []domain.ChildProcessInstance
	for _, e := range t.st.edges {
		if e.ParentInstanceID == parentID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *tx) CreateChildEdge(ctx context.Context, e *domain.ChildProcessInstance) error {
	if _, ok := t.st.edges[e.ID]; ok {
		return storage.ErrAlreadyExists
	}
	c := *e
	t.st.edges[e.ID] = &c
	return nil
}

func (t *tx) UpdateChildEdge(ctx context.Context, e *domain.ChildProcessInstance) error {
	if _, ok := t.st.edges[e.ID]; !ok {
		return storage.ErrNotFound
	}
	c := *e
	t.st.edges[e.ID] = &c
	return nil
}

func (t *tx) NextChildSeq(ctx context.Context, parentID uuid.UUID) (int, error) {
	t.st.childSeq[parentID]++
	return t.st.childSeq[parentID], nil
}
