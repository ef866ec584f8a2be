package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/signature"
)

// ListRequirements возвращает требования подписи шага.
// GET /api/v1/step-executions/{id}/signature-requirements?attachment_id=
func (h *Handler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid step execution id")
		return
	}

	var attachmentID *uuid.UUID
	if v := r.URL.Query().Get("attachment_id"); v != "" {
		aid, err := uuid.Parse(v)
		if err != nil {
			BadRequest(w, "invalid attachment_id")
			return
		}
		attachmentID = &aid
	}

	reqs, err := h.resolver.ResolveRequirements(r.Context(), id, attachmentID)
	if HandleServiceError(w, h.logger, err, "step execution not found") {
		return
	}

	List(w, reqs, len(reqs))
}

// CreateRequirement создаёт требование подписи для шага.
// POST /api/v1/step-executions/{id}/signature-requirements
func (h *Handler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid step execution id")
		return
	}

	var req CreateRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	created, err := h.resolver.CreateRequirement(r.Context(), signature.RequirementInput{
		StepExecutionID: id,
		AttachmentID:    req.AttachmentID,
		UserID:          req.UserID,
		SectorID:        req.SectorID,
		Order:           req.Order,
		Type:            req.Type,
	})
	if HandleServiceError(w, h.logger, err, "step execution not found") {
		return
	}

	Created(w, created)
}

// Sign выполняет подписание требования.
// POST /api/v1/signature-requirements/{id}/sign
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid requirement id")
		return
	}

	var req SignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.ActorID == uuid.Nil {
		BadRequest(w, "actor_id is required")
		return
	}
	if req.ActorEmail == "" {
		BadRequest(w, "actor_email is required")
		return
	}

	result, err := h.resolver.RecordSignature(r.Context(), signature.SignInput{
		RequirementID: id,
		Actor: signature.Actor{
			ID:        req.ActorID,
			Name:      req.ActorName,
			Email:     req.ActorEmail,
			SectorIDs: req.SectorIDs,
		},
		Credential: req.Credential,
	})
	if HandleServiceError(w, h.logger, err, "requirement not found") {
		return
	}

	Success(w, SignResponse{
		Record:     result.Record,
		AllSigned:  result.AllSigned,
		StepSigned: result.StepSigned,
	})
}
