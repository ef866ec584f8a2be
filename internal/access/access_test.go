package access

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

func TestAuthorize(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()
	member := uuid.New()
	sector := uuid.New()

	p := NewPolicy(&StaticDirectory{
		Sectors: map[uuid.UUID][]uuid.UUID{member: {sector}},
	})
	inst := &domain.ProcessInstance{
		ID:          uuid.New(),
		Code:        "PRC-2026-00001",
		CreatedByID: creator,
	}

	tests := []struct {
		name    string
		actorID uuid.UUID
		step    *domain.Step
		wantErr bool
	}{
		{"cancel by creator", creator, nil, false},
		{"cancel by stranger", uuid.New(), nil, true},
		{"assigned user", assignee, &domain.Step{Order: 1, AssignedToUserID: &assignee}, false},
		{"other user on assigned step", uuid.New(), &domain.Step{Order: 1, AssignedToUserID: &assignee}, true},
		{"sector member", member, &domain.Step{Order: 1, AssignedToSectorID: &sector}, false},
		{"non-member on sector step", uuid.New(), &domain.Step{Order: 1, AssignedToSectorID: &sector}, true},
		{"unassigned step", uuid.New(), &domain.Step{Order: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(context.Background(), tt.actorID, inst, tt.step)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDenied) {
				t.Errorf("error = %v, want ErrDenied", err)
			}
		})
	}
}

func TestVerifyIdentity(t *testing.T) {
	user := uuid.New()
	p := NewPolicy(&StaticDirectory{
		Credentials: map[uuid.UUID]string{user: "s3nha"},
	})

	if err := p.VerifyIdentity(context.Background(), user, "s3nha"); err != nil {
		t.Errorf("valid credential: %v", err)
	}
	if err := p.VerifyIdentity(context.Background(), user, "errada"); !errors.Is(err, ErrBadCredential) {
		t.Errorf("error = %v, want ErrBadCredential", err)
	}
	if err := p.VerifyIdentity(context.Background(), uuid.New(), "s3nha"); !errors.Is(err, ErrBadCredential) {
		t.Errorf("unknown user: error = %v, want ErrBadCredential", err)
	}
}
