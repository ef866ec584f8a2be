package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/storage"
)

// CreateInstance создаёт экземпляр процесса.
// POST /api/v1/process-types/{id}/instances
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	typeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid process type id")
		return
	}

	var req CreateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.CreatedByID == uuid.Nil {
		BadRequest(w, "created_by_id is required")
		return
	}

	inst, err := h.engine.CreateInstance(r.Context(), engine.CreateInstanceInput{
		TypeID:      typeID,
		CreatedByID: req.CreatedByID,
		FormData:    req.FormData,
	})
	if HandleServiceError(w, h.logger, err, "process type not found") {
		return
	}

	Created(w, inst)
}

// ListInstances возвращает экземпляры с фильтрацией.
// GET /api/v1/instances?status=&type_id=&created_by=&limit=&offset=
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter storage.InstanceFilter
	filter.Status = domain.InstanceStatus(q.Get("status"))
	if v := q.Get("type_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid type_id")
			return
		}
		filter.TypeID = &id
	}
	if v := q.Get("created_by"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid created_by")
			return
		}
		filter.CreatedByID = &id
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	var instances []domain.ProcessInstance
	err := h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		instances, err = tx.ListInstances(ctx, filter)
		return err
	})
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	List(w, instances, len(instances))
}

// GetInstance возвращает экземпляр вместе с выполнениями шагов.
// GET /api/v1/instances/{id}
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	var detail InstanceDetailResponse
	err = h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		inst, err := tx.Instance(ctx, id)
		if err != nil {
			return err
		}
		execs, err := tx.ListStepExecutions(ctx, id)
		if err != nil {
			return err
		}
		detail = InstanceDetailResponse{Instance: inst, StepExecutions: execs}
		return nil
	})
	if HandleServiceError(w, h.logger, err, "instance not found") {
		return
	}

	Success(w, detail)
}

// CancelInstance — внешняя отмена экземпляра.
// POST /api/v1/instances/{id}/cancel
func (h *Handler) CancelInstance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid instance id")
		return
	}

	var req ActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ActorID == uuid.Nil {
		BadRequest(w, "actor_id is required")
		return
	}

	inst, err := h.engine.CancelInstance(r.Context(), id, req.ActorID)
	if HandleServiceError(w, h.logger, err, "instance not found") {
		return
	}

	Success(w, inst)
}
