package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/child"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// CreateChildConfig создаёт конфигурацию дочернего процесса.
// POST /api/v1/instances/{id}/child-configs
func (h *Handler) CreateChildConfig(w http.ResponseWriter, r *http.Request) {
	parentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	var req CreateChildConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ChildTypeID == uuid.Nil {
		BadRequest(w, "child_type_id is required")
		return
	}

	cfg, err := h.orchestrator.CreateConfig(r.Context(), child.CreateConfigInput{
		ParentInstanceID:  parentID,
		ChildTypeID:       req.ChildTypeID,
		Mode:              req.Mode,
		TriggerStepOrder:  req.TriggerStepOrder,
		InputDataMapping:  req.InputDataMapping,
		WaitForCompletion: req.WaitForCompletion,
		Recurrence:        req.Recurrence,
	})
	if HandleServiceError(w, h.logger, err, "process instance not found") {
		return
	}

	Created(w, cfg)
}

// ListChildConfigs возвращает конфигурации дочерних процессов экземпляра.
// GET /api/v1/instances/{id}/child-configs
func (h *Handler) ListChildConfigs(w http.ResponseWriter, r *http.Request) {
	parentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	var configs []domain.ChildProcessConfig
	err = h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		configs, err = tx.ChildConfigsByParent(ctx, parentID)
		return err
	})
	if HandleServiceError(w, h.logger, err, "process instance not found") {
		return
	}

	List(w, configs, len(configs))
}

// ListChildren возвращает дочерние процессы экземпляра со
// сверенными статусами.
// GET /api/v1/instances/{id}/children
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	parentID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	edges, err := h.orchestrator.ListChildren(r.Context(), parentID)
	if HandleServiceError(w, h.logger, err, "process instance not found") {
		return
	}

	List(w, edges, len(edges))
}

// SpawnChild запускает дочерний процесс по конфигурации вручную.
// POST /api/v1/child-configs/{id}/spawn
func (h *Handler) SpawnChild(w http.ResponseWriter, r *http.Request) {
	configID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid config id")
		return
	}

	var req SpawnChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ActorID == uuid.Nil {
		BadRequest(w, "actor_id is required")
		return
	}

	var cfg *domain.ChildProcessConfig
	err = h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		cfg, err = tx.ChildConfig(ctx, configID)
		return err
	})
	if HandleServiceError(w, h.logger, err, "child config not found") {
		return
	}

	edge, err := h.orchestrator.SpawnChild(r.Context(), child.SpawnInput{
		ConfigID:         &cfg.ID,
		ParentInstanceID: cfg.ParentInstanceID,
		ChildTypeID:      cfg.ChildTypeID,
		OverrideFormData: req.OverrideFormData,
		ActorID:          req.ActorID,
	})
	if HandleServiceError(w, h.logger, err, "child config not found") {
		return
	}

	Created(w, edge)
}
