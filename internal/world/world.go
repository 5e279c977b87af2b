// Package world принимает события хоста (смена соседа, тик, действие игрока),
// хранит ячейки с возможностями и ведёт структуры.
//
// Мир однопоточный по смыслу: все входы сериализуются одной блокировкой,
// а внутри ядра сканирования и операции со слотами синхронны.
package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/multiblock"
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrNoCell - в позиции нет ячейки.
	ErrNoCell = errors.New("world: no cell at position")
	// ErrOccupied - позиция уже занята.
	ErrOccupied = errors.New("world: position occupied")
	// ErrUnknownBlock - тег не зарегистрирован.
	ErrUnknownBlock = errors.New("world: unknown block")
)

// World управляет ячейками, структурами и обработкой событий
type World struct {
	mu sync.Mutex

	registry *block.Registry
	gate     *security.Gate
	manager  *multiblock.Manager

	cells   map[cube.Pos]*block.Cell
	tickers map[cube.Pos]struct{}

	currentTick uint64
	listeners   []Listener
	logger      *logging.Logger
	tracer      trace.Tracer
}

// Option настраивает мир.
type Option func(*World)

// WithListener добавляет слушателя событий мира.
func WithListener(l Listener) Option {
	return func(w *World) { w.listeners = append(w.listeners, l) }
}

// WithLogger задаёт логгер мира.
func WithLogger(l *logging.Logger) Option {
	return func(w *World) { w.logger = l }
}

// WithTracer задаёт трассировщик тиков.
func WithTracer(t trace.Tracer) Option {
	return func(w *World) { w.tracer = t }
}

// New создаёт пустой мир с заданными блоками, формами структур и проверкой доступа.
func New(registry *block.Registry, grammars []*multiblock.Grammar, gate *security.Gate, opts ...Option) *World {
	w := &World{
		registry: registry,
		gate:     gate,
		cells:    make(map[cube.Pos]*block.Cell),
		tickers:  make(map[cube.Pos]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.GetWorldLogger()
	}
	if w.tracer == nil {
		w.tracer = otel.Tracer("voxelforge/world")
	}
	w.manager = multiblock.NewManager(multiblock.ViewFunc(w.tagAt), grammars, multiblock.WithObserver(w.onTransition))
	return w
}

// tagAt - вид решётки для сканирования структур. Воздух и пустота дают "".
func (w *World) tagAt(pos cube.Pos) string {
	cell, ok := w.cells[pos]
	if !ok || cell.ID == block.AirBlockID {
		return ""
	}
	b, ok := w.registry.Get(cell.ID)
	if !ok {
		return ""
	}
	return b.Tag()
}

func (w *World) onTransition(t multiblock.Transition) {
	switch {
	case t.To == multiblock.Formed && t.Structure != nil:
		w.emit(Event{Type: EventStructureFormed, Pos: t.Structure.Box.Min, Structure: t.Grammar, Capacity: t.Structure.Capacity})
	case t.From == multiblock.Formed && t.To == multiblock.Unformed:
		w.emit(Event{Type: EventStructureUnformed, Pos: t.Seed, Structure: t.Grammar, Reason: string(t.Reason)})
	}
}

func (w *World) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, l := range w.listeners {
		l(e)
	}
}

// Registry возвращает реестр блоков.
func (w *World) Registry() *block.Registry { return w.registry }

// Gate возвращает проверку доступа.
func (w *World) Gate() *security.Gate { return w.gate }

// CurrentTick возвращает номер последнего тика.
func (w *World) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentTick
}

// behaviorOf возвращает поведение ячейки.
func (w *World) behaviorOf(cell *block.Cell) (block.Behavior, bool) {
	return w.registry.Get(cell.ID)
}

// Place устанавливает блок с тегом tag. Владельцем становится actor, если
// данные предмета не несут другого владельца. data - данные предмета,
// снятого гаечным ключом; nil для нового блока.
func (w *World) Place(ctx context.Context, pos cube.Pos, tag string, actor uuid.UUID, data map[string]string) (*block.Cell, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.cells[pos]; exists {
		return nil, fmt.Errorf("%w: %s", ErrOccupied, lattice.PosKey(pos))
	}
	b, ok := w.registry.ByTag(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlock, tag)
	}
	cell, err := w.newCell(b, pos, data)
	if err != nil {
		return nil, err
	}
	if cell.Security != nil && !cell.Security.IsOwned() {
		cell.Security.Owner = actor
	}

	w.insertCell(ctx, b, cell)
	w.emit(Event{Type: EventCellPlaced, Pos: pos, Tag: tag, Actor: actor})
	return cell, nil
}

func (w *World) newCell(b block.Behavior, pos cube.Pos, data map[string]string) (*block.Cell, error) {
	cell := block.NewCell(pos, b.ID())
	b.Init(cell)
	if data != nil {
		if err := cell.Load(data); err != nil {
			return nil, fmt.Errorf("данные блока %s: %w", b.Tag(), err)
		}
	}
	return cell, nil
}

// insertCell регистрирует ячейку и уведомляет соседей и структуры.
func (w *World) insertCell(ctx context.Context, b block.Behavior, cell *block.Cell) {
	w.cells[cell.Pos] = cell
	if b.NeedsTick() {
		w.tickers[cell.Pos] = struct{}{}
	}
	b.OnPlace(w.api(ctx), cell)
	w.cellChanged(ctx, cell.Pos)
}

// Break снимает блок по действию игрока и возвращает его данные.
func (w *World) Break(ctx context.Context, actor uuid.UUID, pos cube.Pos) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, ok := w.cells[pos]
	if !ok {
		return nil, ErrNoCell
	}
	if err := w.gate.Check(ctx, actor, cell.Security); err != nil {
		return nil, err
	}
	return w.removeCell(ctx, cell, actor), nil
}

// Remove снимает блок без проверки доступа (взрыв, команда хоста).
func (w *World) Remove(ctx context.Context, pos cube.Pos) (map[string]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, ok := w.cells[pos]
	if !ok {
		return nil, ErrNoCell
	}
	return w.removeCell(ctx, cell, uuid.Nil), nil
}

func (w *World) removeCell(ctx context.Context, cell *block.Cell, actor uuid.UUID) map[string]string {
	data := cell.Save()
	tag := w.tagAt(cell.Pos)
	delete(w.cells, cell.Pos)
	delete(w.tickers, cell.Pos)
	w.cellChanged(ctx, cell.Pos)
	w.emit(Event{Type: EventCellRemoved, Pos: cell.Pos, Tag: tag, Actor: actor})
	return data
}

// cellChanged сообщает структурам и соседям об изменении ячейки.
func (w *World) cellChanged(ctx context.Context, pos cube.Pos) {
	w.manager.OnCellChanged(pos)
	api := w.api(ctx)
	for _, face := range cube.Faces() {
		n, ok := w.cells[pos.Side(face)]
		if !ok {
			continue
		}
		if b, ok := w.behaviorOf(n); ok {
			b.OnNeighborChanged(api, n, face.Opposite())
		}
	}
}

// OnNeighborChanged принимает от хоста сообщение, что сосед ячейки pos
// со стороны face изменился.
func (w *World) OnNeighborChanged(ctx context.Context, pos cube.Pos, face cube.Face) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.manager.OnCellChanged(pos.Side(face))
	if cell, ok := w.cells[pos]; ok {
		if b, ok := w.behaviorOf(cell); ok {
			b.OnNeighborChanged(w.api(ctx), cell, face)
		}
	}
}

// CellAt возвращает ячейку в позиции.
func (w *World) CellAt(pos cube.Pos) (*block.Cell, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cell, ok := w.cells[pos]
	return cell, ok
}

// Cells возвращает данные всех ячеек для сохранения.
func (w *World) Cells() map[cube.Pos]CellData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cellData()
}

func (w *World) cellData() map[cube.Pos]CellData {
	out := make(map[cube.Pos]CellData, len(w.cells))
	for pos, cell := range w.cells {
		out[pos] = CellData{Tag: w.tagAt(pos), Data: cell.Save()}
	}
	return out
}

// State - согласованное сохраняемое состояние мира.
type State struct {
	Tick       uint64
	Cells      map[cube.Pos]CellData
	Structures []multiblock.Salvage
}

// Export снимает номер тика, ячейки и баки структур под одной блокировкой.
func (w *World) Export() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{Tick: w.currentTick, Cells: w.cellData(), Structures: w.manager.Snapshot()}
}

// CellInfo возвращает копию данных ячейки.
func (w *World) CellInfo(pos cube.Pos) (CellData, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, ok := w.cells[pos]
	if !ok {
		return CellData{}, false
	}
	return CellData{Tag: w.tagAt(pos), Data: cell.Save()}, true
}

// CellData - сохраняемое состояние ячейки.
type CellData struct {
	Tag  string            `json:"tag"`
	Data map[string]string `json:"data"`
}

// Load восстанавливает номер тика, ячейки и содержимое баков. Структуры
// формируются на ближайшем тике.
func (w *World) Load(st State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.currentTick = st.Tick
	var errs []error
	for pos, cd := range st.Cells {
		b, ok := w.registry.ByTag(cd.Tag)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q в %s", ErrUnknownBlock, cd.Tag, lattice.PosKey(pos)))
			continue
		}
		cell, err := w.newCell(b, pos, cd.Data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		w.cells[pos] = cell
		if b.NeedsTick() {
			w.tickers[pos] = struct{}{}
		}
		w.manager.Enqueue(pos)
	}
	w.manager.Restore(st.Structures)
	w.logger.Info("📂 Загружено ячеек: %d, баков: %d, тик %d", len(st.Cells), len(st.Structures), st.Tick)
	return errors.Join(errs...)
}

// StructureAt возвращает сформированную структуру, в которую входит позиция.
func (w *World) StructureAt(pos cube.Pos) (*multiblock.Structure, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.manager.StructureAt(pos)
}

// Structures возвращает сформированные структуры.
func (w *World) Structures() []*multiblock.Structure {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.manager.Structures()
}

// StructureInfo - копия состояния сформированной структуры.
type StructureInfo struct {
	ID         uint64         `json:"id"`
	Grammar    string         `json:"grammar"`
	Min        cube.Pos       `json:"min"`
	Max        cube.Pos       `json:"max"`
	Volume     int            `json:"interior_volume"`
	Capacity   int64          `json:"capacity"`
	Throughput int64          `json:"throughput"`
	Contents   resource.Stack `json:"contents"`
	Valves     []cube.Pos     `json:"valves,omitempty"`
}

// StructureInfos возвращает копии сформированных структур, безопасные для
// чтения вне блокировки мира.
func (w *World) StructureInfos() []StructureInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	list := w.manager.Structures()
	out := make([]StructureInfo, 0, len(list))
	for _, s := range list {
		out = append(out, StructureInfo{
			ID:         uint64(s.ID),
			Grammar:    s.Grammar,
			Min:        s.Box.Min,
			Max:        s.Box.Max,
			Volume:     s.InteriorVolume,
			Capacity:   s.Capacity,
			Throughput: s.Throughput,
			Contents:   s.Contents(),
			Valves:     append([]cube.Pos(nil), s.Valves...),
		})
	}
	return out
}

// SignalAt возвращает уровень сигнала ячейки (0..15).
func (w *World) SignalAt(ctx context.Context, pos cube.Pos) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cell, ok := w.cells[pos]
	if !ok {
		return 0
	}
	b, ok := w.behaviorOf(cell)
	if !ok {
		return 0
	}
	return b.SignalLevel(w.api(ctx), cell)
}

// TickStats - итоги одного тика.
type TickStats struct {
	Tick     uint64
	Passes   int // Проходов сканирования структур
	Ticked   int // Ячеек с собственной логикой
	Ejected  int // Успешных передач автовыдачи
	Duration time.Duration
}

// Tick выполняет один игровой тик: пересканирование структур, логику
// машин и автовыдачу. Пересканирования, вызванные событиями до тика и во
// время него, завершаются до возврата.
func (w *World) Tick(ctx context.Context) TickStats {
	ctx, span := w.tracer.Start(ctx, "world.Tick")
	defer span.End()

	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	w.currentTick++
	stats := TickStats{Tick: w.currentTick}
	api := w.api(ctx)

	stats.Passes += w.manager.Tick()

	positions := make([]cube.Pos, 0, len(w.tickers))
	for pos := range w.tickers {
		positions = append(positions, pos)
	}
	lattice.SortPositions(positions)
	for _, pos := range positions {
		cell, ok := w.cells[pos]
		if !ok {
			continue
		}
		if b, ok := w.behaviorOf(cell); ok {
			b.Tick(api, cell)
			stats.Ticked++
		}
	}

	stats.Ejected = w.eject(api)
	stats.Passes += w.manager.Tick()
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int64("tick", int64(stats.Tick)),
		attribute.Int("scan_passes", stats.Passes),
		attribute.Int("ejected", stats.Ejected),
	)
	if stats.Passes > 0 {
		w.logger.Debug("Тик %d: проходов сканирования %d", stats.Tick, stats.Passes)
	}
	return stats
}
