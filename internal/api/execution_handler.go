package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/engine"
	"github.com/shaiso/Processo/internal/storage"
)

// ExecuteStep применяет действие к активному шагу.
// POST /api/v1/step-executions/{id}/execute
func (h *Handler) ExecuteStep(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid step execution id")
		return
	}

	var req ExecuteStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ActorID == uuid.Nil {
		BadRequest(w, "actor_id is required")
		return
	}

	exec, err := h.engine.ExecuteStep(r.Context(), engine.ExecuteStepInput{
		StepExecutionID: id,
		Action:          req.Action,
		Comment:         req.Comment,
		Metadata:        req.Metadata,
		ActorID:         req.ActorID,
	})
	if HandleServiceError(w, h.logger, err, "step execution not found") {
		return
	}

	Success(w, exec)
}

// CreateAttachment регистрирует вложение шага и сохраняет его байты.
// POST /api/v1/step-executions/{id}/attachments
func (h *Handler) CreateAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid step execution id")
		return
	}

	var req CreateAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Filename == "" {
		BadRequest(w, "filename is required")
		return
	}
	if len(req.Content) == 0 {
		BadRequest(w, "content is required")
		return
	}

	att := &domain.Attachment{
		ID:              uuid.New(),
		StepExecutionID: id,
		Filename:        req.Filename,
		Size:            int64(len(req.Content)),
		UploadedByID:    req.UploadedByID,
		CreatedAt:       time.Now(),
	}

	err = h.store.InTx(r.Context(), func(ctx context.Context, tx storage.Tx) error {
		exec, err := tx.StepExecution(ctx, id)
		if err != nil {
			return err
		}
		if exec.Status != domain.StepExecInProgress {
			return fmt.Errorf("%w: attachments are accepted only on an active step", engine.ErrInvalidState)
		}

		// Верхняя граница вложений проверяется при загрузке
		ptype, err := typeByInstance(ctx, tx, exec.InstanceID)
		if err != nil {
			return err
		}
		if step := ptype.StepByOrder(exec.StepOrder); step != nil && step.MaxAttachments > 0 {
			existing, err := tx.Attachments(ctx, id)
			if err != nil {
				return err
			}
			if len(existing) >= step.MaxAttachments {
				return fmt.Errorf("%w: step accepts at most %d attachments", engine.ErrPreconditionFailed, step.MaxAttachments)
			}
		}

		return tx.CreateAttachment(ctx, att)
	})
	if HandleServiceError(w, h.logger, err, "step execution not found") {
		return
	}

	if err := h.blobs.PutBytes(r.Context(), att.ID, req.Content); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, att)
}

// typeByInstance загружает шаблон экземпляра.
func typeByInstance(ctx context.Context, tx storage.Tx, instanceID uuid.UUID) (*domain.ProcessType, error) {
	inst, err := tx.Instance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return tx.ProcessType(ctx, inst.TypeID)
}
