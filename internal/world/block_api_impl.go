package world

import (
	"context"

	"github.com/annel0/voxelforge/internal/multiblock"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// worldBlockAPI реализует block.BlockAPI поверх мира. Создаётся на время
// обработки одного события и используется под блокировкой мира.
type worldBlockAPI struct {
	world *World
	ctx   context.Context
}

func (w *World) api(ctx context.Context) block.BlockAPI {
	if ctx == nil {
		ctx = context.Background()
	}
	return &worldBlockAPI{world: w, ctx: ctx}
}

func (api *worldBlockAPI) Context() context.Context { return api.ctx }
func (api *worldBlockAPI) Gate() *security.Gate     { return api.world.gate }

// CellAt возвращает ячейку по координатам
func (api *worldBlockAPI) CellAt(pos cube.Pos) (*block.Cell, bool) {
	cell, ok := api.world.cells[pos]
	return cell, ok
}

// StructureAt возвращает структуру, в оболочку которой входит позиция
func (api *worldBlockAPI) StructureAt(pos cube.Pos) (*multiblock.Structure, bool) {
	return api.world.manager.StructureAt(pos)
}

// MarkChanged инвалидирует структуру ячейки и уведомляет соседей
func (api *worldBlockAPI) MarkChanged(pos cube.Pos) {
	api.world.cellChanged(api.ctx, pos)
}
