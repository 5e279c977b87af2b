// Package security решает, может ли игрок взаимодействовать с ячейкой.
//
// Владелец всегда имеет доступ. Ячейка без владельца и ячейка в режиме
// Public открыты всем. Private закрывает ячейку для всех, кроме владельца,
// включая доверенных игроков. Trusted пускает тех, кому владелец доверяет.
package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAccessDenied - базовая ошибка отказа в доступе.
var ErrAccessDenied = errors.New("security: access denied")

// Mode - режим доступа к ячейке.
type Mode uint8

const (
	Public Mode = iota
	Private
	Trusted
)

func (m Mode) String() string {
	switch m {
	case Private:
		return "private"
	case Trusted:
		return "trusted"
	}
	return "public"
}

// ParseMode разбирает имя режима.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "public", "":
		return Public, nil
	case "private":
		return Private, nil
	case "trusted":
		return Trusted, nil
	}
	return Public, fmt.Errorf("unknown security mode %q", s)
}

// Record - владелец и режим доступа ячейки. uuid.Nil - владельца нет.
type Record struct {
	Owner uuid.UUID
	Mode  Mode
}

// IsOwned сообщает, есть ли у ячейки владелец.
func (r *Record) IsOwned() bool {
	return r != nil && r.Owner != uuid.Nil
}

// IsOwner сообщает, является ли actor владельцем.
func (r *Record) IsOwner(actor uuid.UUID) bool {
	return r.IsOwned() && r.Owner == actor
}

// TrustStore хранит списки доверенных игроков владельцев.
type TrustStore interface {
	IsTrusted(ctx context.Context, owner, actor uuid.UUID) (bool, error)
	Trust(ctx context.Context, owner, actor uuid.UUID) error
	Untrust(ctx context.Context, owner, actor uuid.UUID) error
	Trusted(ctx context.Context, owner uuid.UUID) ([]uuid.UUID, error)
}

// OverrideStore хранит режим владельца, который перекрывает режимы всех
// его ячеек (настраивается со стола безопасности).
type OverrideStore interface {
	Override(ctx context.Context, owner uuid.UUID) (Mode, bool, error)
	SetOverride(ctx context.Context, owner uuid.UUID, mode Mode, enabled bool) error
}

// EffectiveMode возвращает режим с учётом перекрытия владельца, если
// store также реализует OverrideStore.
func EffectiveMode(ctx context.Context, rec *Record, store TrustStore) (Mode, error) {
	if !rec.IsOwned() {
		return Public, nil
	}
	if o, ok := store.(OverrideStore); ok {
		mode, set, err := o.Override(ctx, rec.Owner)
		if err != nil {
			return rec.Mode, err
		}
		if set {
			return mode, nil
		}
	}
	return rec.Mode, nil
}

// decide вычисляет решение. Ошибка хранилища доверия означает отказ.
func decide(ctx context.Context, actor uuid.UUID, rec *Record, trust TrustStore) (bool, Mode, error) {
	if !rec.IsOwned() {
		return true, Public, nil
	}
	if rec.Owner == actor {
		return true, rec.Mode, nil
	}
	mode, err := EffectiveMode(ctx, rec, trust)
	if err != nil {
		return false, mode, err
	}
	switch mode {
	case Public:
		return true, mode, nil
	case Trusted:
		if trust == nil {
			return false, mode, nil
		}
		ok, err := trust.IsTrusted(ctx, rec.Owner, actor)
		if err != nil {
			return false, mode, err
		}
		return ok, mode, nil
	}
	return false, mode, nil
}

// CanAccess сообщает, может ли actor взаимодействовать с ячейкой.
func CanAccess(ctx context.Context, actor uuid.UUID, rec *Record, trust TrustStore) bool {
	ok, _, _ := decide(ctx, actor, rec, trust)
	return ok
}

// AccessDeniedError описывает отказ в доступе.
type AccessDeniedError struct {
	Actor uuid.UUID
	Owner uuid.UUID
	Mode  Mode
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("security: access denied for %s (owner %s, mode %s)", e.Actor, e.Owner, e.Mode)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }
