package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Processo/internal/domain"
)

// Ошибки политики доступа.
var (
	// ErrDenied — актор не имеет права выполнить операцию.
	ErrDenied = errors.New("access denied")

	// ErrBadCredential — проверка идентичности не пройдена.
	ErrBadCredential = errors.New("bad credential")
)

// Directory — внешний справочник пользователей и секторов.
type Directory interface {
	// UserInSector проверяет членство пользователя в секторе.
	UserInSector(ctx context.Context, userID, sectorID uuid.UUID) (bool, error)

	// VerifyCredential повторно проверяет идентичность пользователя
	// (пароль или PIN) перед юридически значимой операцией.
	VerifyCredential(ctx context.Context, userID uuid.UUID, credential string) error
}

// Policy — политика назначений.
//
// Реализует engine.Authorizer и signature.IdentityVerifier.
type Policy struct {
	dir Directory
}

// NewPolicy создаёт политику поверх справочника.
func NewPolicy(dir Directory) *Policy {
	return &Policy{dir: dir}
}

// Authorize проверяет право актора выполнить шаг экземпляра.
//
// Правила:
//   - step == nil — операция уровня экземпляра (отмена): только создатель;
//   - шаг назначен пользователю — только он;
//   - шаг назначен сектору — любой его участник;
//   - шаг без назначения — любой аутентифицированный актор.
func (p *Policy) Authorize(ctx context.Context, actorID uuid.UUID, instance *domain.ProcessInstance, step *domain.Step) error {
	if step == nil {
		if actorID != instance.CreatedByID {
			return fmt.Errorf("%w: only the creator may cancel %s", ErrDenied, instance.Code)
		}
		return nil
	}

	if step.AssignedToUserID != nil {
		if actorID != *step.AssignedToUserID {
			return fmt.Errorf("%w: step %d of %s is assigned to another user", ErrDenied, step.Order, instance.Code)
		}
		return nil
	}

	if step.AssignedToSectorID != nil {
		ok, err := p.dir.UserInSector(ctx, actorID, *step.AssignedToSectorID)
		if err != nil {
			return fmt.Errorf("check sector membership: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: step %d of %s is assigned to another sector", ErrDenied, step.Order, instance.Code)
		}
	}

	return nil
}

// VerifyIdentity повторно проверяет идентичность подписанта.
func (p *Policy) VerifyIdentity(ctx context.Context, userID uuid.UUID, credential string) error {
	if err := p.dir.VerifyCredential(ctx, userID, credential); err != nil {
		return fmt.Errorf("%w: %v", ErrBadCredential, err)
	}
	return nil
}

// StaticDirectory — справочник на фиксированных картах.
// Для тестов и dev-режима без внешней системы.
type StaticDirectory struct {
	// Sectors — пользователь → его сектора.
	Sectors map[uuid.UUID][]uuid.UUID `json:"sectors"`

	// Credentials — пользователь → ожидаемый credential.
	Credentials map[uuid.UUID]string `json:"credentials"`
}

func (d *StaticDirectory) UserInSector(ctx context.Context, userID, sectorID uuid.UUID) (bool, error) {
	for _, s := range d.Sectors[userID] {
		if s == sectorID {
			return true, nil
		}
	}
	return false, nil
}

func (d *StaticDirectory) VerifyCredential(ctx context.Context, userID uuid.UUID, credential string) error {
	expected, ok := d.Credentials[userID]
	if !ok || expected != credential {
		return errors.New("unknown user or credential mismatch")
	}
	return nil
}
