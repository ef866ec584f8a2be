package signature

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

// --- Helpers ---

func userReq(order int, sigType domain.SignatureType, attachmentID *uuid.UUID, userID uuid.UUID) domain.SignatureRequirement {
	return domain.SignatureRequirement{
		ID:           uuid.New(),
		AttachmentID: attachmentID,
		UserID:       &userID,
		Order:        order,
		Type:         sigType,
	}
}

func completedRecord(req *domain.SignatureRequirement) domain.SignatureRecord {
	return domain.SignatureRecord{
		ID:            uuid.New(),
		RequirementID: req.ID,
		Status:        domain.SignatureRecordCompleted,
		SignedAt:      time.Now(),
	}
}

// --- ScopedRequirements ---

func TestScopedRequirements(t *testing.T) {
	attA := uuid.New()
	attB := uuid.New()

	global := userReq(1, domain.SignatureSequential, nil, uuid.New())
	onA := userReq(2, domain.SignatureSequential, &attA, uuid.New())
	onB := userReq(1, domain.SignatureSequential, &attB, uuid.New())
	all := []domain.SignatureRequirement{onA, onB, global}

	// nil — все требования шага, по order
	got := ScopedRequirements(all, nil)
	if len(got) != 3 {
		t.Fatalf("got %d requirements, want 3", len(got))
	}
	if got[0].Order != 1 || got[1].Order != 1 || got[2].Order != 2 {
		t.Errorf("requirements not ordered by order: %d %d %d", got[0].Order, got[1].Order, got[2].Order)
	}

	// Область вложения A: глобальное требование тоже входит
	got = ScopedRequirements(all, &attA)
	if len(got) != 2 {
		t.Fatalf("got %d requirements for attachment A, want 2", len(got))
	}
	for _, r := range got {
		if r.ID == onB.ID {
			t.Error("requirement of attachment B leaked into scope of A")
		}
	}
}

// --- CanSign ---

func TestCanSign(t *testing.T) {
	user := uuid.New()
	sector := uuid.New()

	byUser := userReq(1, domain.SignatureSequential, nil, user)
	if !CanSign(&byUser, user, nil) {
		t.Error("assigned user should be able to sign")
	}
	if CanSign(&byUser, uuid.New(), nil) {
		t.Error("other user should not be able to sign")
	}

	bySector := domain.SignatureRequirement{ID: uuid.New(), SectorID: &sector, Order: 1}
	if !CanSign(&bySector, uuid.New(), []uuid.UUID{uuid.New(), sector}) {
		t.Error("sector member should be able to sign")
	}
	if CanSign(&bySector, uuid.New(), []uuid.UUID{uuid.New()}) {
		t.Error("non-member should not be able to sign")
	}
}

// --- IsUnlocked ---

func TestIsUnlocked_Sequential(t *testing.T) {
	att := uuid.New()
	first := userReq(1, domain.SignatureSequential, &att, uuid.New())
	second := userReq(2, domain.SignatureSequential, &att, uuid.New())
	all := []domain.SignatureRequirement{first, second}

	if !IsUnlocked(&first, all, nil) {
		t.Error("first requirement should be unlocked")
	}
	if IsUnlocked(&second, all, nil) {
		t.Error("second requirement should be locked until first signed")
	}

	records := []domain.SignatureRecord{completedRecord(&first)}
	if !IsUnlocked(&second, all, records) {
		t.Error("second requirement should unlock after first signed")
	}
}

func TestIsUnlocked_OtherScopeIgnored(t *testing.T) {
	attA := uuid.New()
	attB := uuid.New()

	onA := userReq(1, domain.SignatureSequential, &attA, uuid.New())
	onB := userReq(2, domain.SignatureSequential, &attB, uuid.New())
	all := []domain.SignatureRequirement{onA, onB}

	// Требования разных вложений — независимые цепочки
	if !IsUnlocked(&onB, all, nil) {
		t.Error("requirement on B should not wait for requirement on A")
	}
}

func TestIsUnlocked_Parallel(t *testing.T) {
	att := uuid.New()
	first := userReq(1, domain.SignatureParallel, &att, uuid.New())
	second := userReq(2, domain.SignatureParallel, &att, uuid.New())
	all := []domain.SignatureRequirement{first, second}

	if !IsUnlocked(&second, all, nil) {
		t.Error("parallel requirement should always be unlocked")
	}
}

// --- Outstanding / NextPending ---

func TestOutstanding(t *testing.T) {
	first := userReq(1, domain.SignatureSequential, nil, uuid.New())
	second := userReq(2, domain.SignatureSequential, nil, uuid.New())
	all := []domain.SignatureRequirement{first, second}

	if got := Outstanding(all, nil); len(got) != 2 {
		t.Errorf("got %d outstanding, want 2", len(got))
	}

	// FAILED записи не закрывают требование
	failed := domain.SignatureRecord{ID: uuid.New(), RequirementID: first.ID, Status: domain.SignatureRecordFailed}
	if got := Outstanding(all, []domain.SignatureRecord{failed}); len(got) != 2 {
		t.Errorf("got %d outstanding with failed record, want 2", len(got))
	}

	records := []domain.SignatureRecord{completedRecord(&first)}
	got := Outstanding(all, records)
	if len(got) != 1 || got[0].ID != second.ID {
		t.Errorf("outstanding = %v, want only second requirement", got)
	}
}

func TestNextPending(t *testing.T) {
	att := uuid.New()
	first := userReq(1, domain.SignatureSequential, &att, uuid.New())
	second := userReq(2, domain.SignatureSequential, &att, uuid.New())
	all := []domain.SignatureRequirement{first, second}

	records := []domain.SignatureRecord{completedRecord(&first)}
	next := NextPending(&first, all, records)
	if next == nil || next.ID != second.ID {
		t.Errorf("next pending = %v, want second requirement", next)
	}

	records = append(records, completedRecord(&second))
	if next := NextPending(&second, all, records); next != nil {
		t.Errorf("next pending = %v, want nil when all signed", next)
	}
}
