package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// OnPlayerInteract выполняет действие игрока над ячейкой. Проверка доступа
// выполняется до любого изменения состояния; при отказе возвращается
// результат Denied и ошибка, оборачивающая security.ErrAccessDenied.
func (w *World) OnPlayerInteract(ctx context.Context, pos cube.Pos, in block.Interaction) (block.InteractionResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, ok := w.cells[pos]
	if !ok {
		return block.InteractionResult{}, ErrNoCell
	}
	b, ok := w.behaviorOf(cell)
	if !ok {
		return block.InteractionResult{}, fmt.Errorf("%w: id %d", ErrUnknownBlock, cell.ID)
	}

	var err error
	if o, ok := b.(block.OwnerOnly); ok && o.OwnerOnly() {
		err = w.gate.CheckOwner(ctx, in.Actor, cell.Security)
	} else {
		err = w.gate.Check(ctx, in.Actor, cell.Security)
	}
	if err != nil {
		return block.Denied(), err
	}

	api := w.api(ctx)
	var res block.InteractionResult
	switch in.Kind {
	case block.Insert:
		res = w.playerInsert(api, b, cell, in)
	case block.Extract:
		res = w.playerExtract(api, b, cell, in)
	default:
		res = b.Interact(api, cell, in)
	}

	if res.Drop != nil {
		w.removeCell(ctx, cell, in.Actor)
	}
	if res.Success && in.Kind.Mutates() {
		w.emit(Event{Type: EventInteraction, Pos: pos, Tag: b.Tag(), Actor: in.Actor})
	}
	return res, nil
}

// playerInsert кладёт партию игрока в ячейку в обход настройки граней.
func (w *World) playerInsert(api block.BlockAPI, b block.Behavior, cell *block.Cell, in block.Interaction) block.InteractionResult {
	t, ok := sideconfig.ForKind(in.Stack.Kind)
	if !ok {
		return block.InteractionResult{Message: "Неизвестный вид ресурса"}
	}
	if err := insertInto(api, b, cell, t, in.Stack, slot.Execute); err != nil {
		return block.InteractionResult{Message: err.Error()}
	}
	return block.InteractionResult{Success: true, Message: "Добавлено: " + in.Stack.String()}
}

// playerExtract забирает у ячейки до in.Amount единиц вида in.Transmission.
func (w *World) playerExtract(api block.BlockAPI, b block.Behavior, cell *block.Cell, in block.Interaction) block.InteractionResult {
	out, err := extractFrom(api, b, cell, in.Transmission, in.Amount, slot.Execute)
	if err != nil {
		return block.InteractionResult{Message: err.Error()}
	}
	return block.InteractionResult{Success: true, Message: "Извлечено: " + out.String(), Stack: out}
}

// IsDenied сообщает, является ли ошибка отказом в доступе.
func IsDenied(err error) bool {
	return errors.Is(err, security.ErrAccessDenied)
}
