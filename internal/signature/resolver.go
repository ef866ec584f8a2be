package signature

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

// ScopedRequirements возвращает требования, относящиеся к заданному
// вложению: глобальные (AttachmentID == nil) плюс привязанные именно
// к нему. Результат упорядочен по order.
//
// attachmentID == nil означает "все требования шага".
func ScopedRequirements(reqs []domain.SignatureRequirement, attachmentID *uuid.UUID) []domain.SignatureRequirement {
	out := make([]domain.SignatureRequirement, 0, len(reqs))
	for _, r := range reqs {
		if attachmentID == nil || r.AttachmentID == nil || *r.AttachmentID == *attachmentID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// CanSign проверяет, входит ли актор в подписанты требования:
// либо прямое совпадение по UserID, либо членство в SectorID.
func CanSign(r *domain.SignatureRequirement, actorID uuid.UUID, actorSectorIDs []uuid.UUID) bool {
	if r.UserID != nil && *r.UserID == actorID {
		return true
	}
	if r.SectorID != nil {
		for _, s := range actorSectorIDs {
			if s == *r.SectorID {
				return true
			}
		}
	}
	return false
}

// IsUnlocked проверяет, открыто ли требование для подписания.
//
// PARALLEL — открыто всегда. SEQUENTIAL — открыто, только если каждое
// требование той же области со строго меньшим order уже имеет
// завершённую запись.
func IsUnlocked(r *domain.SignatureRequirement, all []domain.SignatureRequirement, records []domain.SignatureRecord) bool {
	if r.Type == domain.SignatureParallel {
		return true
	}

	done := completedSet(records)
	for i := range all {
		prev := &all[i]
		if prev.ID == r.ID || prev.Order >= r.Order {
			continue
		}
		if !prev.SameScope(r) {
			continue
		}
		if !done[prev.ID] {
			return false
		}
	}
	return true
}

// Outstanding возвращает требования без завершённой подписи.
// Пустой результат по всем требованиям шага — это и есть "подписи
// собраны" для гейтинга завершения шага движком.
func Outstanding(reqs []domain.SignatureRequirement, records []domain.SignatureRecord) []domain.SignatureRequirement {
	done := completedSet(records)

	var out []domain.SignatureRequirement
	for _, r := range reqs {
		if !done[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// NextPending возвращает следующее открытое неподписанное требование
// в области подписания данного требования, или nil.
// Используется для события signature.pending после успешной подписи.
func NextPending(signed *domain.SignatureRequirement, all []domain.SignatureRequirement, records []domain.SignatureRecord) *domain.SignatureRequirement {
	scoped := ScopedRequirements(all, signed.AttachmentID)
	pending := Outstanding(scoped, records)
	for i := range pending {
		if IsUnlocked(&pending[i], scoped, records) {
			return &pending[i]
		}
	}
	return nil
}

// completedSet строит множество требований с завершённой записью.
func completedSet(records []domain.SignatureRecord) map[uuid.UUID]bool {
	done := make(map[uuid.UUID]bool, len(records))
	for _, rec := range records {
		if rec.Status == domain.SignatureRecordCompleted {
			done[rec.RequirementID] = true
		}
	}
	return done
}
