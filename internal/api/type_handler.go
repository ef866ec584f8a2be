package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// ListProcessTypes возвращает список шаблонов процессов.
// GET /api/v1/process-types?active=true
func (h *Handler) ListProcessTypes(w http.ResponseWriter, r *http.Request) {
	onlyActive := r.URL.Query().Get("active") == "true"

	var types []domain.ProcessType
	err := h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		types, err = tx.ListProcessTypes(ctx, onlyActive)
		return err
	})
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	List(w, types, len(types))
}

// CreateProcessType создаёт шаблон процесса вместе с шагами.
// POST /api/v1/process-types
func (h *Handler) CreateProcessType(w http.ResponseWriter, r *http.Request) {
	var req CreateProcessTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if len(req.Steps) == 0 {
		BadRequest(w, "at least one step is required")
		return
	}

	pt := &domain.ProcessType{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	if req.IsActive != nil {
		pt.IsActive = *req.IsActive
	}

	seen := make(map[int]bool, len(req.Steps))
	for _, s := range req.Steps {
		if s.Order < 1 {
			BadRequest(w, "step order must be >= 1")
			return
		}
		if seen[s.Order] {
			BadRequest(w, "duplicate step order")
			return
		}
		seen[s.Order] = true
		if s.AssignedToUserID != nil && s.AssignedToSectorID != nil {
			BadRequest(w, "step may be assigned to a user or a sector, not both")
			return
		}

		// Директивы валидируются при создании, а не при выполнении
		for action, raw := range s.Conditions {
			d, err := domain.ParseDirective(raw)
			if err != nil {
				BadRequest(w, "invalid directive for action "+action+": "+err.Error())
				return
			}
			if d.Kind == domain.DirectiveOrder && d.Order == s.Order {
				BadRequest(w, "directive for action "+action+" targets its own step")
				return
			}
		}

		pt.Steps = append(pt.Steps, domain.Step{
			ID:                 uuid.New(),
			TypeID:             pt.ID,
			Order:              s.Order,
			Name:               s.Name,
			Type:               s.Type,
			Actions:            s.Actions,
			Conditions:         s.Conditions,
			AssignedToUserID:   s.AssignedToUserID,
			AssignedToSectorID: s.AssignedToSectorID,
			RequireAttachment:  s.RequireAttachment,
			MinAttachments:     s.MinAttachments,
			MaxAttachments:     s.MaxAttachments,
			RequiresSignature:  s.RequiresSignature,
			SLAHours:           s.SLAHours,
		})
	}
	if !seen[1] {
		BadRequest(w, "a step with order 1 is required")
		return
	}

	for _, f := range req.FormFields {
		if f.Key == "" {
			BadRequest(w, "form field key is required")
			return
		}
		pt.FormFields = append(pt.FormFields, domain.FormField{
			ID:       uuid.New(),
			TypeID:   pt.ID,
			Key:      f.Key,
			Label:    f.Label,
			Kind:     f.Kind,
			Required: f.Required,
			Options:  f.Options,
		})
	}

	err := h.store.InTx(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateProcessType(ctx, pt)
	})
	if HandleServiceError(w, h.logger, err, "") {
		return
	}

	Created(w, pt)
}

// GetProcessType возвращает шаблон с упорядоченными шагами.
// GET /api/v1/process-types/{id}
func (h *Handler) GetProcessType(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid process type id")
		return
	}

	var pt *domain.ProcessType
	err = h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		pt, err = tx.ProcessType(ctx, id)
		return err
	})
	if HandleServiceError(w, h.logger, err, "process type not found") {
		return
	}

	Success(w, pt)
}

// ListTypeSteps возвращает упорядоченные шаги шаблона.
// GET /api/v1/process-types/{id}/steps
func (h *Handler) ListTypeSteps(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid process type id")
		return
	}

	var pt *domain.ProcessType
	err = h.store.View(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		pt, err = tx.ProcessType(ctx, id)
		return err
	})
	if HandleServiceError(w, h.logger, err, "process type not found") {
		return
	}

	List(w, pt.Steps, len(pt.Steps))
}
