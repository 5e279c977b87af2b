package implementations

import (
	"fmt"
	"strings"

	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/google/uuid"
)

// SecurityDeskBehavior - стол безопасности. Владелец правит на нём список
// доверенных игроков и режим, перекрывающий режимы всех его блоков.
type SecurityDeskBehavior struct {
	block.Base
}

// NewSecurityDesk создаёт стол безопасности.
func NewSecurityDesk() *SecurityDeskBehavior {
	return &SecurityDeskBehavior{Base: block.Base{BlockID: block.SecurityDeskBlockID, BlockTag: "security_desk", Title: "Security Desk"}}
}

// OwnerOnly - стол открывает только владелец, режим доступа не учитывается.
func (b *SecurityDeskBehavior) OwnerOnly() bool { return true }

func (b *SecurityDeskBehavior) Init(cell *block.Cell) {
	cell.Security = &security.Record{Mode: security.Private}
}

func (b *SecurityDeskBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	switch in.Kind {
	case block.Open, block.Trust, block.Untrust, block.Override:
	default:
		return b.Base.Interact(api, cell, in)
	}

	owner := cell.Security.Owner
	if owner == uuid.Nil {
		return block.InteractionResult{Message: "У стола нет владельца"}
	}
	ctx := api.Context()
	trust := api.Gate().Trust()

	switch in.Kind {
	case block.Trust, block.Untrust:
		if in.Target == uuid.Nil || in.Target == owner {
			return block.InteractionResult{Message: "Некорректный игрок"}
		}
		var err error
		if in.Kind == block.Trust {
			err = trust.Trust(ctx, owner, in.Target)
		} else {
			err = trust.Untrust(ctx, owner, in.Target)
		}
		if err != nil {
			return block.InteractionResult{Message: fmt.Sprintf("Ошибка списка доверия: %v", err)}
		}
		return block.InteractionResult{Success: true, Message: fmt.Sprintf("%s: %s", in.Kind, in.Target)}

	case block.Override:
		store, ok := trust.(security.OverrideStore)
		if !ok {
			return block.InteractionResult{Message: "Хранилище не поддерживает режим владельца"}
		}
		if err := store.SetOverride(ctx, owner, in.Mode, in.Enabled); err != nil {
			return block.InteractionResult{Message: fmt.Sprintf("Ошибка режима владельца: %v", err)}
		}
		if !in.Enabled {
			return block.InteractionResult{Success: true, Message: "Режим владельца отключён"}
		}
		return block.InteractionResult{Success: true, Message: "Режим владельца: " + in.Mode.String()}
	}

	trusted, err := trust.Trusted(ctx, owner)
	if err != nil {
		return block.InteractionResult{Message: fmt.Sprintf("Ошибка списка доверия: %v", err)}
	}
	names := make([]string, len(trusted))
	for i, id := range trusted {
		names[i] = id.String()
	}
	msg := "Доверенные игроки: " + strings.Join(names, ", ")
	if len(names) == 0 {
		msg = "Доверенных игроков нет"
	}
	if store, ok := trust.(security.OverrideStore); ok {
		if mode, on, err := store.Override(ctx, owner); err == nil && on {
			msg += "; режим владельца: " + mode.String()
		}
	}
	return block.InteractionResult{Success: true, Message: msg}
}
