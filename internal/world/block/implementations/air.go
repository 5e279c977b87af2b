package implementations

import "github.com/annel0/voxelforge/internal/world/block"

// AirBehavior реализует поведение пустого блока (воздуха)
type AirBehavior struct {
	block.Base
}

// NewAir создаёт поведение воздуха.
func NewAir() *AirBehavior {
	return &AirBehavior{Base: block.Base{BlockID: block.AirBlockID, BlockTag: "air", Title: "Air"}}
}

// Interact - с воздухом нельзя взаимодействовать.
func (b *AirBehavior) Interact(block.BlockAPI, *block.Cell, block.Interaction) block.InteractionResult {
	return block.InteractionResult{Message: "Нельзя взаимодействовать с воздухом"}
}
