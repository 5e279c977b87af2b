package block

import (
	"context"

	"github.com/annel0/voxelforge/internal/multiblock"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// BlockAPI определяет интерфейс для взаимодействия блоков с миром.
// Блоки читают соседей и структуры и сообщают об изменениях своих ячеек;
// сами они мир не перестраивают.
type BlockAPI interface {
	// Context возвращает контекст обрабатываемого события.
	Context() context.Context

	// CellAt возвращает ячейку в позиции или false для пустоты.
	CellAt(pos cube.Pos) (*Cell, bool)

	// StructureAt возвращает сформированную структуру, в оболочку которой
	// входит позиция.
	StructureAt(pos cube.Pos) (*multiblock.Structure, bool)

	// Gate возвращает проверку доступа.
	Gate() *security.Gate

	// MarkChanged сообщает, что ячейка изменилась (поворот, смена режима).
	// Структура, в которую входит ячейка, инвалидируется, соседи уведомляются.
	MarkChanged(pos cube.Pos)
}
