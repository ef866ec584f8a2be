package mem

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// Store — хранилище в памяти.
//
// Все транзакции выполняются под одним мьютексом, поэтому изоляция
// тривиально serializable и storage.ErrConflict здесь не возникает.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	types       map[uuid.UUID]*domain.ProcessType
	instances   map[uuid.UUID]*domain.ProcessInstance
	executions  map[uuid.UUID]*domain.StepExecution
	attachments map[uuid.UUID]*domain.Attachment
	reqs        map[uuid.UUID]*domain.SignatureRequirement
	records     map[uuid.UUID]*domain.SignatureRecord
	configs     map[uuid.UUID]*domain.ChildProcessConfig
	edges       map[uuid.UUID]*domain.ChildProcessInstance
	blobs       map[uuid.UUID][]byte

	instanceSeq map[int]int       // год → последний номер
	childSeq    map[uuid.UUID]int // родитель → последний номер
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{state: newState()}
}

func newState() *state {
	return &state{
		types:       make(map[uuid.UUID]*domain.ProcessType),
		instances:   make(map[uuid.UUID]*domain.ProcessInstance),
		executions:  make(map[uuid.UUID]*domain.StepExecution),
		attachments: make(map[uuid.UUID]*domain.Attachment),
		reqs:        make(map[uuid.UUID]*domain.SignatureRequirement),
		records:     make(map[uuid.UUID]*domain.SignatureRecord),
		configs:     make(map[uuid.UUID]*domain.ChildProcessConfig),
		edges:       make(map[uuid.UUID]*domain.ChildProcessInstance),
		blobs:       make(map[uuid.UUID][]byte),
		instanceSeq: make(map[int]int),
		childSeq:    make(map[uuid.UUID]int),
	}
}

// View выполняет fn над текущим состоянием. Мутации через Tx внутри
// View технически возможны, но по контракту вызывающие не пишут.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, &tx{st: s.state})
}

// InTx выполняет fn над снапшотом состояния; при успехе снапшот
// становится текущим состоянием, при ошибке отбрасывается.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state.clone()
	if err := fn(ctx, &tx{st: snap}); err != nil {
		return err
	}
	s.state = snap
	return nil
}

// PutBytes сохраняет байты вложения. Реализует api.BlobStore
// (dev-режим и тесты). Чтение байтов идёт через Tx.AttachmentData.
func (s *Store) PutBytes(ctx context.Context, attachmentID uuid.UUID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.state.blobs[attachmentID] = buf
	return nil
}

func (st *state) clone() *state {
	out := newState()
	for id, v := range st.types {
		out.types[id] = cloneType(v)
	}
	for id, v := range st.instances {
		out.instances[id] = cloneInstance(v)
	}
	for id, v := range st.executions {
		out.executions[id] = cloneExecution(v)
	}
	for id, v := range st.attachments {
		c := *v
		out.attachments[id] = &c
	}
	for id, v := range st.reqs {
		c := *v
		out.reqs[id] = &c
	}
	for id, v := range st.records {
		c := *v
		out.records[id] = &c
	}
	for id, v := range st.configs {
		out.configs[id] = cloneConfig(v)
	}
	for id, v := range st.edges {
		c := *v
		out.edges[id] = &c
	}
	for id, v := range st.blobs {
		out.blobs[id] = v
	}
	for k, v := range st.instanceSeq {
		out.instanceSeq[k] = v
	}
	for k, v := range st.childSeq {
		out.childSeq[k] = v
	}
	return out
}

// --- Клонирование сущностей ---

func cloneType(t *domain.ProcessType) *domain.ProcessType {
	c := *t
	if t.Steps != nil {
		c.Steps = make([]domain.Step, len(t.Steps))
		for i := range t.Steps {
			c.Steps[i] = cloneStep(&t.Steps[i])
		}
	}
	if t.FormFields != nil {
		c.FormFields = make([]domain.FormField, len(t.FormFields))
		copy(c.FormFields, t.FormFields)
	}
	return &c
}

func cloneStep(s *domain.Step) domain.Step {
	c := *s
	if s.Actions != nil {
		c.Actions = make([]string, len(s.Actions))
		copy(c.Actions, s.Actions)
	}
	if s.Conditions != nil {
		c.Conditions = make(map[string]json.RawMessage, len(s.Conditions))
		for k, v := range s.Conditions {
			c.Conditions[k] = v
		}
	}
	return c
}

func cloneInstance(p *domain.ProcessInstance) *domain.ProcessInstance {
	c := *p
	c.FormData = cloneMap(p.FormData)
	return &c
}

func cloneExecution(e *domain.StepExecution) *domain.StepExecution {
	c := *e
	c.Metadata = cloneMap(e.Metadata)
	return &c
}

func cloneConfig(cfg *domain.ChildProcessConfig) *domain.ChildProcessConfig {
	c := *cfg
	if cfg.InputDataMapping != nil {
		c.InputDataMapping = make(map[string]string, len(cfg.InputDataMapping))
		for k, v := range cfg.InputDataMapping {
			c.InputDataMapping[k] = v
		}
	}
	if cfg.Recurrence != nil {
		r := *cfg.Recurrence
		c.Recurrence = &r
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
