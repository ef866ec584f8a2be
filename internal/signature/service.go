package signature

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
	"github.com/shaiso/Processo/internal/storage"
)

// IdentityVerifier — повторная проверка учётных данных подписанта.
// Реализуется внешней системой контроля доступа; вызывается до любой
// мутации состояния.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, userID uuid.UUID, credential string) error
}

// Events — исходящие события подписей. Доставка best-effort,
// ошибки логируются и никогда не влияют на результат подписания.
type Events interface {
	SignatureCompleted(ctx context.Context, stepExecutionID, requirementID, signerID uuid.UUID) error
	SignaturePending(ctx context.Context, stepExecutionID, requirementID uuid.UUID, userID, sectorID *uuid.UUID) error
}

// Audit — журнал аудита, fire-and-forget.
type Audit interface {
	Record(ctx context.Context, action, resource string, resourceID, actorID uuid.UUID, details map[string]any) error
}

// Actor — подписант с снапшотом идентичности и секторами.
type Actor struct {
	ID        uuid.UUID
	Name      string
	Email     string
	SectorIDs []uuid.UUID
}

// SignInput — входные данные RecordSignature.
type SignInput struct {
	RequirementID uuid.UUID
	Actor         Actor

	// Credential — пароль/код для повторной проверки идентичности.
	Credential string
}

// SignResult — результат успешного подписания.
type SignResult struct {
	Record *domain.SignatureRecord

	// AllSigned — все требования области (вложения) теперь выполнены.
	AllSigned bool

	// StepSigned — все требования шага выполнены (проставлен signedAt).
	StepSigned bool
}

// Resolver — сервис подписей поверх хранилища.
type Resolver struct {
	store    storage.Storage
	identity IdentityVerifier
	events   Events
	audit    Audit
	logger   *slog.Logger
	now      func() time.Time
}

// Config — конфигурация Resolver.
type Config struct {
	Store    storage.Storage
	Identity IdentityVerifier
	Events   Events
	Audit    Audit
	Logger   *slog.Logger

	// Now — источник времени (для тестов). По умолчанию time.Now.
	Now func() time.Time
}

// New создаёт Resolver.
func New(cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		store:    cfg.Store,
		identity: cfg.Identity,
		events:   cfg.Events,
		audit:    cfg.Audit,
		logger:   logger,
		now:      now,
	}
}

// ResolveRequirements возвращает требования шага, отфильтрованные
// по вложению (nil — все) и упорядоченные по order.
func (r *Resolver) ResolveRequirements(ctx context.Context, stepExecutionID uuid.UUID, attachmentID *uuid.UUID) ([]domain.SignatureRequirement, error) {
	var out []domain.SignatureRequirement
	err := r.store.View(ctx, func(ctx context.Context, tx storage.Tx) error {
		reqs, err := tx.Requirements(ctx, stepExecutionID)
		if err != nil {
			return err
		}
		out = ScopedRequirements(reqs, attachmentID)
		return nil
	})
	return out, err
}

// RecordSignature выполняет подписание требования.
//
// Порядок проверок: идентичность (до любой мутации), AlreadySigned,
// NotAResolvedSigner, OutOfOrder. Запись, флаг isSigned вложения и
// signedAt шага обновляются в одной транзакции — неуспешная попытка
// никогда не оставляет частичной записи.
func (r *Resolver) RecordSignature(ctx context.Context, in SignInput) (*SignResult, error) {
	if r.identity != nil {
		if err := r.identity.VerifyIdentity(ctx, in.Actor.ID, in.Credential); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIdentity, err)
		}
	}

	var (
		result   SignResult
		nextReq  *domain.SignatureRequirement
		stepExec uuid.UUID
	)

	err := r.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		req, err := tx.Requirement(ctx, in.RequirementID)
		if err != nil {
			return fmt.Errorf("load requirement: %w", err)
		}
		stepExec = req.StepExecutionID

		all, err := tx.Requirements(ctx, req.StepExecutionID)
		if err != nil {
			return fmt.Errorf("load requirements: %w", err)
		}
		records, err := tx.RecordsByStep(ctx, req.StepExecutionID)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}

		for _, rec := range records {
			if rec.RequirementID == req.ID && rec.Status == domain.SignatureRecordCompleted {
				return ErrAlreadySigned
			}
		}
		if !CanSign(req, in.Actor.ID, in.Actor.SectorIDs) {
			return ErrNotAResolvedSigner
		}
		if !IsUnlocked(req, all, records) {
			return ErrOutOfOrder
		}

		docHash, err := documentHash(ctx, tx, req)
		if err != nil {
			return err
		}

		now := r.now()
		rec := &domain.SignatureRecord{
			ID:             uuid.New(),
			RequirementID:  req.ID,
			SignerID:       in.Actor.ID,
			SignerName:     in.Actor.Name,
			SignerEmail:    in.Actor.Email,
			Status:         domain.SignatureRecordCompleted,
			DocumentHash:   docHash,
			SignatureHash:  hashHex(req.ID.String() + in.Actor.ID.String() + docHash),
			SignatureToken: hashHex(in.Actor.Email + docHash + now.Format(time.RFC3339Nano)),
			SignedAt:       now,
		}
		if err := tx.CreateSignatureRecord(ctx, rec); err != nil {
			return fmt.Errorf("create signature record: %w", err)
		}
		records = append(records, *rec)

		// Область вложения закрыта — проставляем isSigned
		scoped := ScopedRequirements(all, req.AttachmentID)
		result.AllSigned = len(Outstanding(scoped, records)) == 0
		if result.AllSigned && req.AttachmentID != nil {
			att, err := tx.Attachment(ctx, *req.AttachmentID)
			if err != nil {
				return fmt.Errorf("load attachment: %w", err)
			}
			att.IsSigned = true
			att.SignedAt = &now
			if err := tx.UpdateAttachment(ctx, att); err != nil {
				return fmt.Errorf("mark attachment signed: %w", err)
			}
		}

		// Все требования шага закрыты — проставляем signedAt шага
		if len(Outstanding(all, records)) == 0 {
			exec, err := tx.StepExecution(ctx, req.StepExecutionID)
			if err != nil {
				return fmt.Errorf("load step execution: %w", err)
			}
			exec.SignedAt = &now
			if err := tx.UpdateStepExecution(ctx, exec); err != nil {
				return fmt.Errorf("stamp step signed_at: %w", err)
			}
			result.StepSigned = true
		}

		result.Record = rec
		nextReq = NextPending(req, all, records)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.emit(ctx, stepExec, result.Record, nextReq)
	r.auditRecord(ctx, in, result.Record)

	return &result, nil
}

// documentHash вычисляет sha256 байтов документа в рамках той же
// транзакции, что и запись подписи. Для глобального требования
// (AttachmentID nil) хешируются байты всех вложений шага в порядке
// загрузки.
func documentHash(ctx context.Context, tx storage.Tx, req *domain.SignatureRequirement) (string, error) {
	h := sha256.New()

	if req.AttachmentID != nil {
		b, err := tx.AttachmentData(ctx, *req.AttachmentID)
		if err != nil {
			return "", fmt.Errorf("get attachment bytes: %w", err)
		}
		h.Write(b)
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	atts, err := tx.Attachments(ctx, req.StepExecutionID)
	if err != nil {
		return "", fmt.Errorf("list attachments: %w", err)
	}
	for _, a := range atts {
		b, err := tx.AttachmentData(ctx, a.ID)
		if err != nil {
			return "", fmt.Errorf("get attachment bytes: %w", err)
		}
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// emit публикует события подписания, не влияя на результат.
func (r *Resolver) emit(ctx context.Context, stepExecID uuid.UUID, rec *domain.SignatureRecord, next *domain.SignatureRequirement) {
	if r.events == nil {
		return
	}
	if err := r.events.SignatureCompleted(ctx, stepExecID, rec.RequirementID, rec.SignerID); err != nil {
		r.logger.Warn("failed to publish signature.completed", "requirement_id", rec.RequirementID, "error", err)
	}
	if next != nil {
		if err := r.events.SignaturePending(ctx, stepExecID, next.ID, next.UserID, next.SectorID); err != nil {
			r.logger.Warn("failed to publish signature.pending", "requirement_id", next.ID, "error", err)
		}
	}
}

// auditRecord пишет событие в журнал аудита, не влияя на результат.
func (r *Resolver) auditRecord(ctx context.Context, in SignInput, rec *domain.SignatureRecord) {
	if r.audit == nil {
		return
	}
	err := r.audit.Record(ctx, "signature.record", "signature_requirement", in.RequirementID, in.Actor.ID, map[string]any{
		"record_id":     rec.ID.String(),
		"document_hash": rec.DocumentHash,
	})
	if err != nil {
		r.logger.Warn("failed to write audit entry", "requirement_id", in.RequirementID, "error", err)
	}
}

// hashHex возвращает sha256 строки в hex.
func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
