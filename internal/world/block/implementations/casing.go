package implementations

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/world/block"
)

// CasingBehavior - пассивный блок структуры: корпус, стекло, ротор,
// ячейка или провайдер индукции. Роль блока задаёт грамматика структуры.
type CasingBehavior struct {
	block.Base
}

// NewCasing создаёт пассивный блок структуры.
func NewCasing(id block.BlockID, tag, title string) *CasingBehavior {
	return &CasingBehavior{Base: block.Base{BlockID: id, BlockTag: tag, Title: title}}
}

// Interact открывает интерфейс структуры, если блок входит в сформированную.
func (b *CasingBehavior) Interact(api block.BlockAPI, cell *block.Cell, in block.Interaction) block.InteractionResult {
	if in.Kind == block.Open {
		return openStructure(api, cell)
	}
	return b.Base.Interact(api, cell, in)
}

// SignalLevel - 15, пока блок входит в сформированную структуру, иначе 0.
func (b *CasingBehavior) SignalLevel(api block.BlockAPI, cell *block.Cell) int {
	_, formed := api.StructureAt(cell.Pos)
	return signal.FromFormed(formed)
}

func openStructure(api block.BlockAPI, cell *block.Cell) block.InteractionResult {
	s, ok := api.StructureAt(cell.Pos)
	if !ok {
		return block.InteractionResult{Message: "Структура не сформирована"}
	}
	return block.InteractionResult{
		Success: true,
		Message: fmt.Sprintf("%s: %s / %d, пропускная способность %d", s.Grammar, s.Contents(), s.Capacity, s.Throughput),
	}
}

// InductionCellTag возвращает тег ячейки индукции уровня t.
func InductionCellTag(t Tier) string { return t.String() + "_induction_cell" }

// InductionProviderTag возвращает тег провайдера индукции уровня t.
func InductionProviderTag(t Tier) string { return t.String() + "_induction_provider" }
