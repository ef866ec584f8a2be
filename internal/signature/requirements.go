package signature

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// Ошибки создания требований.
var (
	// ErrBadAssignee — требование должно назначаться либо пользователю,
	// либо сектору, ровно одному из двух.
	ErrBadAssignee = errors.New("requirement needs exactly one of user or sector")

	// ErrDuplicateOrder — требование с таким order уже есть в этой
	// области (step execution + attachment).
	ErrDuplicateOrder = errors.New("duplicate requirement order")
)

// RequirementInput — параметры нового требования подписи.
type RequirementInput struct {
	StepExecutionID uuid.UUID
	AttachmentID    *uuid.UUID
	UserID          *uuid.UUID
	SectorID        *uuid.UUID
	Order           int
	Type            domain.SignatureType
}

// CreateRequirement создаёт требование подписи.
//
// Валидация: ровно один из UserID/SectorID, order >= 1, уникальность
// (step, attachment, order). Тип по умолчанию — SEQUENTIAL.
func (r *Resolver) CreateRequirement(ctx context.Context, in RequirementInput) (*domain.SignatureRequirement, error) {
	if (in.UserID == nil) == (in.SectorID == nil) {
		return nil, ErrBadAssignee
	}
	if in.Order < 1 {
		return nil, fmt.Errorf("order must be >= 1, got %d", in.Order)
	}
	sigType := in.Type
	if sigType == "" {
		sigType = domain.SignatureSequential
	}

	req := &domain.SignatureRequirement{
		ID:              uuid.New(),
		StepExecutionID: in.StepExecutionID,
		AttachmentID:    in.AttachmentID,
		UserID:          in.UserID,
		SectorID:        in.SectorID,
		Order:           in.Order,
		Type:            sigType,
		CreatedAt:       r.now(),
	}

	err := r.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		// Шаг должен существовать
		if _, err := tx.StepExecution(ctx, in.StepExecutionID); err != nil {
			return fmt.Errorf("load step execution: %w", err)
		}

		existing, err := tx.Requirements(ctx, in.StepExecutionID)
		if err != nil {
			return fmt.Errorf("load requirements: %w", err)
		}
		for i := range existing {
			if existing[i].Order == in.Order && existing[i].SameScope(req) {
				return ErrDuplicateOrder
			}
		}

		return tx.CreateRequirement(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	return req, nil
}
