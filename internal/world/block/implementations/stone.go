package implementations

import "github.com/annel0/voxelforge/internal/world/block"

// StoneBehavior реализует поведение блока камня: статичный блок без
// возможностей. Внутри структур недопустим.
type StoneBehavior struct {
	block.Base
}

// NewStone создаёт поведение камня.
func NewStone() *StoneBehavior {
	return &StoneBehavior{Base: block.Base{BlockID: block.StoneBlockID, BlockTag: "stone", Title: "Stone"}}
}
