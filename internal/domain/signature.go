package domain

import (
	"time"

	"github.com/google/uuid"
)

// SignatureRequirement — обязательство подписать вложение шага.
//
// Требование привязано к StepExecution и либо к конкретному вложению
// (AttachmentID задан), либо ко всем вложениям шага (AttachmentID nil).
// Уникально в рамках (step execution, attachment, order).
type SignatureRequirement struct {
	// ID — уникальный идентификатор требования.
	ID uuid.UUID `json:"id"`

	// StepExecutionID — шаг, к которому относится требование.
	StepExecutionID uuid.UUID `json:"step_execution_id"`

	// AttachmentID — конкретное вложение или nil (любое вложение шага).
	AttachmentID *uuid.UUID `json:"attachment_id,omitempty"`

	// UserID — обязанный подписант. Взаимоисключимо с SectorID.
	UserID *uuid.UUID `json:"user_id,omitempty"`

	// SectorID — сектор, любой участник которого может подписать.
	SectorID *uuid.UUID `json:"sector_id,omitempty"`

	// Order — порядковый номер подписи в рамках вложения (1-based).
	Order int `json:"order"`

	// Type — SEQUENTIAL (строго по order) или PARALLEL.
	Type SignatureType `json:"type"`

	// CreatedAt — время создания требования.
	CreatedAt time.Time `json:"created_at"`
}

// SameScope проверяет, относятся ли два требования к одной области
// подписания (одно вложение или оба глобальные).
func (r *SignatureRequirement) SameScope(other *SignatureRequirement) bool {
	if r.AttachmentID == nil && other.AttachmentID == nil {
		return true
	}
	if r.AttachmentID == nil || other.AttachmentID == nil {
		return false
	}
	return *r.AttachmentID == *other.AttachmentID
}

// SignatureRecord — событие подписания.
//
// Запись неизменяема после перехода в COMPLETED: это юридический след,
// он никогда не обновляется и не удаляется.
type SignatureRecord struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// RequirementID — требование, которое удовлетворяет эта подпись.
	RequirementID uuid.UUID `json:"requirement_id"`

	// SignerID — подписант.
	SignerID uuid.UUID `json:"signer_id"`

	// SignerName, SignerEmail — снапшот идентичности подписанта
	// на момент подписания.
	SignerName  string `json:"signer_name"`
	SignerEmail string `json:"signer_email"`

	// Status — COMPLETED или FAILED.
	Status SignatureRecordStatus `json:"status"`

	// DocumentHash — sha256 байтов документа на момент подписания.
	DocumentHash string `json:"document_hash"`

	// SignatureHash — sha256 связки (требование, подписант, документ).
	SignatureHash string `json:"signature_hash"`

	// SignatureToken — sha256(email + documentHash + timestamp),
	// уникальный токен конкретного акта подписания.
	SignatureToken string `json:"signature_token"`

	// SignedAt — время подписания.
	SignedAt time.Time `json:"signed_at"`
}

// Attachment — метаданные вложения шага.
//
// Сами байты живут в хранилище и читаются через storage.Tx; здесь
// только то, что нужно движку для гейтинга и подписям для статуса.
type Attachment struct {
	// ID — уникальный идентификатор вложения.
	ID uuid.UUID `json:"id"`

	// StepExecutionID — шаг, к которому прикреплено вложение.
	StepExecutionID uuid.UUID `json:"step_execution_id"`

	// Filename — исходное имя файла.
	Filename string `json:"filename"`

	// Size — размер в байтах.
	Size int64 `json:"size"`

	// UploadedByID — загрузивший пользователь.
	UploadedByID uuid.UUID `json:"uploaded_by_id"`

	// IsSigned — все требования подписи этого вложения выполнены.
	IsSigned bool `json:"is_signed"`

	// SignedAt — время сбора последней подписи.
	SignedAt *time.Time `json:"signed_at,omitempty"`

	// CreatedAt — время загрузки.
	CreatedAt time.Time `json:"created_at"`
}
