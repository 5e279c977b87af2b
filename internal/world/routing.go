package world

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/df-mc/dragonfly/server/block/cube"
)

var (
	// ErrPortClosed - грань не настроена на нужное направление для вида передачи.
	ErrPortClosed = errors.New("world: port closed")
	// ErrNoStorage - у ячейки нет хранилища нужного вида.
	ErrNoStorage = errors.New("world: no storage")
)

// InsertAt вставляет партию в ячейку через грань face. Грань должна быть
// входом для вида передачи партии. Частичного приёма нет.
func (w *World) InsertAt(ctx context.Context, pos cube.Pos, face cube.Face, stack resource.Stack, action slot.Action) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, b, err := w.portCell(pos)
	if err != nil {
		return err
	}
	t, ok := sideconfig.ForKind(stack.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", slot.ErrIncompatible, stack.Kind)
	}
	if ch := cell.Ports.Channel(t, face); ch != sideconfig.Input {
		return fmt.Errorf("%w: %s %s is %s", ErrPortClosed, t, lattice.FaceName(face), ch)
	}
	return insertInto(w.api(ctx), b, cell, t, stack, action)
}

// ExtractAt извлекает до amount единиц вида t через грань face. Грань должна
// быть выходом для t.
func (w *World) ExtractAt(ctx context.Context, pos cube.Pos, face cube.Face, t sideconfig.Transmission, amount int64, action slot.Action) (resource.Stack, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, b, err := w.portCell(pos)
	if err != nil {
		return resource.Empty, err
	}
	if ch := cell.Ports.Channel(t, face); ch != sideconfig.Output {
		return resource.Empty, fmt.Errorf("%w: %s %s is %s", ErrPortClosed, t, lattice.FaceName(face), ch)
	}
	return extractFrom(w.api(ctx), b, cell, t, amount, action)
}

func (w *World) portCell(pos cube.Pos) (*block.Cell, block.Behavior, error) {
	cell, ok := w.cells[pos]
	if !ok {
		return nil, nil, ErrNoCell
	}
	b, ok := w.behaviorOf(cell)
	if !ok {
		return nil, nil, fmt.Errorf("%w: id %d", ErrUnknownBlock, cell.ID)
	}
	if cell.Ports == nil {
		return nil, nil, fmt.Errorf("%w: no side configuration", ErrPortClosed)
	}
	return cell, b, nil
}

// external возвращает внешнее хранилище ячейки (общий бак структуры).
func external(api block.BlockAPI, b block.Behavior, cell *block.Cell, t sideconfig.Transmission) (slot.Slot, bool) {
	s, ok := b.(block.Storage)
	if !ok {
		return nil, false
	}
	return s.Storage(api, cell, t), true
}

func insertInto(api block.BlockAPI, b block.Behavior, cell *block.Cell, t sideconfig.Transmission, stack resource.Stack, action slot.Action) error {
	if st, ok := external(api, b, cell, t); ok {
		if st == nil {
			return ErrNoStorage
		}
		return st.Insert(stack, action)
	}
	if cell.Slots.Len() == 0 {
		return ErrNoStorage
	}
	return cell.Slots.InsertAny(stack, action)
}

func extractFrom(api block.BlockAPI, b block.Behavior, cell *block.Cell, t sideconfig.Transmission, amount int64, action slot.Action) (resource.Stack, error) {
	if st, ok := external(api, b, cell, t); ok {
		if st == nil {
			return resource.Empty, ErrNoStorage
		}
		return st.Extract(amount, action), nil
	}
	if cell.Slots.Len() == 0 {
		return resource.Empty, ErrNoStorage
	}
	return cell.Slots.ExtractAny(t.Kind(), amount, action), nil
}

// ejectable - виды передачи, которые выталкиваются автовыдачей.
var ejectable = [...]sideconfig.Transmission{sideconfig.Fluid, sideconfig.Gas, sideconfig.Energy}

// eject выталкивает ресурсы из выходных граней ячеек с включённой
// автовыдачей в соседние входы. Возвращает число передач.
func (w *World) eject(api block.BlockAPI) int {
	positions := make([]cube.Pos, 0, len(w.cells))
	for pos, cell := range w.cells {
		if cell.Ports != nil && cell.Ports.Ejector.Enabled {
			positions = append(positions, pos)
		}
	}
	lattice.SortPositions(positions)

	moved := 0
	for _, pos := range positions {
		cell := w.cells[pos]
		b, ok := w.behaviorOf(cell)
		if !ok {
			continue
		}
		rater, ok := b.(block.Ejecting)
		if !ok {
			continue
		}
		for _, t := range ejectable {
			if !cell.Ports.Supports(t) {
				continue
			}
			budget := rater.EjectRate(api, cell, t)
			for _, face := range cell.Ports.Targets(t) {
				if budget <= 0 {
					break
				}
				n := w.pushTo(api, b, cell, face, t, budget)
				if n > 0 {
					budget -= n
					moved++
				}
			}
		}
	}
	return moved
}

// pushTo передаёт до budget единиц через грань face соседу.
// Сначала симулирует обе стороны, затем выполняет.
func (w *World) pushTo(api block.BlockAPI, b block.Behavior, cell *block.Cell, face cube.Face, t sideconfig.Transmission, budget int64) int64 {
	neighbour, ok := w.cells[cell.Pos.Side(face)]
	if !ok {
		return 0
	}
	if !cell.Ports.Ejector.Accepts(neighbour.Ports, t, face) {
		return 0
	}
	nb, ok := w.behaviorOf(neighbour)
	if !ok {
		return 0
	}

	offered, err := extractFrom(api, b, cell, t, budget, slot.Simulate)
	if err != nil || offered.IsEmpty() {
		return 0
	}
	n := offered.Amount
	if space := spaceFor(api, nb, neighbour, t, offered); space < n {
		n = space
	}
	if n <= 0 {
		return 0
	}
	batch := offered.WithAmount(n)
	if insertInto(api, nb, neighbour, t, batch, slot.Simulate) != nil {
		return 0
	}

	taken, err := extractFrom(api, b, cell, t, n, slot.Execute)
	if err != nil || taken.Amount != n {
		return 0
	}
	if err := insertInto(api, nb, neighbour, t, taken, slot.Execute); err != nil {
		w.logger.Warn("Автовыдача %s в %s не удалась после симуляции: %v", taken, lattice.PosKey(neighbour.Pos), err)
		return 0
	}
	return n
}

// spaceFor возвращает, сколько партии примет ячейка.
func spaceFor(api block.BlockAPI, b block.Behavior, cell *block.Cell, t sideconfig.Transmission, stack resource.Stack) int64 {
	if st, ok := external(api, b, cell, t); ok {
		if st == nil {
			return 0
		}
		return st.Space(stack)
	}
	var best int64
	for _, sl := range cell.Slots.OfKind(t.Kind()) {
		if sp := sl.Space(stack); sp > best {
			best = sp
		}
	}
	return best
}
