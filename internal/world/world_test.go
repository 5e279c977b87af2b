package world

import (
	"context"
	"errors"
	"testing"

	"github.com/annel0/voxelforge/internal/logging"
	"github.com/annel0/voxelforge/internal/recipe"
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/security"
	"github.com/annel0/voxelforge/internal/sideconfig"
	"github.com/annel0/voxelforge/internal/signal"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/annel0/voxelforge/internal/world/block"
	"github.com/annel0/voxelforge/internal/world/block/implementations"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWorld struct {
	*World
	trust  *security.MemoryTrust
	events []Event
	denied []security.Denial
}

func newTestWorld(t *testing.T, operators ...uuid.UUID) *testWorld {
	t.Helper()
	registry, err := implementations.NewDefaultRegistry(recipe.Defaults())
	require.NoError(t, err)

	tw := &testWorld{trust: security.NewMemoryTrust()}
	gate := security.NewGate(tw.trust,
		security.WithOperators(operators...),
		security.WithLogger(logging.NewDiscardLogger()),
		security.WithReporter(func(_ context.Context, d security.Denial) { tw.denied = append(tw.denied, d) }),
	)
	tw.World = New(registry, implementations.DefaultGrammars(), gate,
		WithLogger(logging.NewDiscardLogger()),
		WithListener(func(e Event) { tw.events = append(tw.events, e) }),
	)
	return tw
}

func (tw *testWorld) count(typ EventType) int {
	n := 0
	for _, e := range tw.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// buildTank ставит бак 3×3×3 с клапаном в центре нижней грани.
func (tw *testWorld) buildTank(t *testing.T, origin cube.Pos) cube.Pos {
	t.Helper()
	ctx := context.Background()
	valve := origin.Add(cube.Pos{1, 0, 1})
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			for z := 0; z < 3; z++ {
				p := origin.Add(cube.Pos{x, y, z})
				switch {
				case p == origin.Add(cube.Pos{1, 1, 1}):
				case p == valve:
					_, err := tw.Place(ctx, p, implementations.TankValveTag, uuid.Nil, nil)
					require.NoError(t, err)
				default:
					_, err := tw.Place(ctx, p, implementations.TankCasingTag, uuid.Nil, nil)
					require.NoError(t, err)
				}
			}
		}
	}
	return valve
}

func TestWorld_PlaceAndBreak(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	owner := uuid.New()
	pos := cube.Pos{0, 64, 0}

	cell, err := tw.Place(ctx, pos, "basic_energy_cube", owner, nil)
	require.NoError(t, err)
	assert.Equal(t, owner, cell.Security.Owner, "владельцем становится тот, кто поставил")

	_, err = tw.Place(ctx, pos, "stone", owner, nil)
	assert.ErrorIs(t, err, ErrOccupied)
	_, err = tw.Place(ctx, cube.Pos{1, 64, 0}, "no_such_block", owner, nil)
	assert.ErrorIs(t, err, ErrUnknownBlock)

	data, err := tw.Break(ctx, owner, pos)
	require.NoError(t, err)
	assert.Equal(t, owner.String(), data["owner"])
	_, ok := tw.CellAt(pos)
	assert.False(t, ok)

	_, err = tw.Break(ctx, owner, pos)
	assert.ErrorIs(t, err, ErrNoCell)
	assert.Equal(t, 1, tw.count(EventCellPlaced))
	assert.Equal(t, 1, tw.count(EventCellRemoved))
}

func TestWorld_SecurityGateFirst(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	owner, stranger, friend := uuid.New(), uuid.New(), uuid.New()
	pos := cube.Pos{0, 0, 0}

	_, err := tw.Place(ctx, pos, "basic_energy_cube", owner, nil)
	require.NoError(t, err)

	res, err := tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.SetMode, Actor: owner, Mode: security.Trusted})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NoError(t, tw.trust.Trust(ctx, owner, friend))

	cell, _ := tw.CellAt(pos)
	facing := cell.Ports.Facing()

	// Посторонний не может повернуть блок, состояние не меняется.
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Wrench, Actor: stranger, Face: cube.FaceUp})
	assert.True(t, IsDenied(err))
	assert.True(t, res.Denied)
	assert.Equal(t, block.AccessDeniedMessage, res.Message)
	assert.Equal(t, facing, cell.Ports.Facing())
	require.Len(t, tw.denied, 1)
	assert.Equal(t, stranger, tw.denied[0].Actor)

	// Доверенный может.
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Wrench, Actor: friend, Face: cube.FaceUp})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NotEqual(t, facing, cell.Ports.Facing())

	// Доверенный не может сменить режим доступа.
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.SetMode, Actor: friend, Mode: security.Public})
	require.NoError(t, err)
	assert.True(t, res.Denied)
	assert.Equal(t, security.Trusted, cell.Security.Mode)

	// Private отказывает и доверенным.
	_, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.SetMode, Actor: owner, Mode: security.Private})
	require.NoError(t, err)
	_, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Open, Actor: friend})
	assert.True(t, IsDenied(err))

	_, err = tw.Break(ctx, stranger, pos)
	assert.True(t, errors.Is(err, security.ErrAccessDenied))
	_, ok := tw.CellAt(pos)
	assert.True(t, ok)

	_, err = tw.OnPlayerInteract(ctx, cube.Pos{9, 9, 9}, block.Interaction{Kind: block.Open, Actor: owner})
	assert.ErrorIs(t, err, ErrNoCell)
}

func TestWorld_OperatorBypass(t *testing.T) {
	op := uuid.New()
	tw := newTestWorld(t, op)
	ctx := context.Background()
	owner := uuid.New()

	_, err := tw.Place(ctx, cube.Pos{0, 0, 0}, "security_desk", owner, nil)
	require.NoError(t, err)

	res, err := tw.OnPlayerInteract(ctx, cube.Pos{0, 0, 0}, block.Interaction{Kind: block.Open, Actor: uuid.New()})
	assert.True(t, IsDenied(err), "стол открывает только владелец")
	assert.True(t, res.Denied)

	res, err = tw.OnPlayerInteract(ctx, cube.Pos{0, 0, 0}, block.Interaction{Kind: block.Open, Actor: op})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestWorld_TankFormsAndUnforms(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	valve := tw.buildTank(t, cube.Pos{0, 0, 0})

	_, ok := tw.StructureAt(valve)
	assert.False(t, ok, "структура формируется только на тике")

	stats := tw.Tick(ctx)
	assert.Positive(t, stats.Passes)
	s, ok := tw.StructureAt(valve)
	require.True(t, ok)
	assert.Equal(t, "dynamic_tank", s.Grammar)
	assert.Equal(t, 1, tw.count(EventStructureFormed))
	casing := cube.Pos{2, 2, 2}
	assert.Equal(t, signal.Max, tw.SignalAt(ctx, casing), "корпус сформированной структуры")

	// Удаление участника расформировывает сразу, без тика.
	_, err := tw.Remove(ctx, cube.Pos{0, 0, 0})
	require.NoError(t, err)
	_, ok = tw.StructureAt(valve)
	assert.False(t, ok)
	assert.Equal(t, 1, tw.count(EventStructureUnformed))
	assert.Equal(t, 0, tw.SignalAt(ctx, casing))

	tw.Tick(ctx)
	_, ok = tw.StructureAt(valve)
	assert.False(t, ok, "угол пуст")

	_, err = tw.Place(ctx, cube.Pos{0, 0, 0}, implementations.TankCasingTag, uuid.Nil, nil)
	require.NoError(t, err)
	tw.Tick(ctx)
	_, ok = tw.StructureAt(valve)
	assert.True(t, ok)
}

func TestWorld_PortRouting(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	valve := tw.buildTank(t, cube.Pos{0, 0, 0})
	water := resource.Of(resource.KindFluid, "water", 4_000)

	// Пока структура не сформирована, хранилища нет.
	err := tw.InsertAt(ctx, valve, cube.FaceDown, water, slot.Execute)
	assert.ErrorIs(t, err, ErrNoStorage)

	tw.Tick(ctx)
	require.NoError(t, tw.InsertAt(ctx, valve, cube.FaceDown, water, slot.Simulate))
	require.NoError(t, tw.InsertAt(ctx, valve, cube.FaceDown, water, slot.Execute))
	s, _ := tw.StructureAt(valve)
	assert.Equal(t, int64(4_000), s.Contents().Amount)
	assert.Equal(t, signal.FromFill(4_000, s.Capacity), tw.SignalAt(ctx, valve))

	err = tw.InsertAt(ctx, valve, cube.FaceDown, resource.Of(resource.KindFluid, "water", 20_000), slot.Execute)
	assert.ErrorIs(t, err, slot.ErrCapacityExceeded)

	_, err = tw.ExtractAt(ctx, valve, cube.FaceDown, sideconfig.Fluid, 100, slot.Execute)
	assert.ErrorIs(t, err, ErrPortClosed, "вход не отдаёт")

	err = tw.InsertAt(ctx, cube.Pos{1, 1, 1}, cube.FaceDown, water, slot.Execute)
	assert.ErrorIs(t, err, ErrNoCell)

	err = tw.InsertAt(ctx, cube.Pos{0, 0, 0}, cube.FaceDown, water, slot.Execute)
	assert.ErrorIs(t, err, ErrPortClosed, "у корпуса нет настройки граней")
}

func TestWorld_TankContentsSurviveReform(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	valve := tw.buildTank(t, cube.Pos{0, 0, 0})
	tw.Tick(ctx)
	require.NoError(t, tw.InsertAt(ctx, valve, cube.FaceDown, resource.Of(resource.KindFluid, "water", 5_000), slot.Execute))

	data, err := tw.Remove(ctx, cube.Pos{2, 2, 2})
	require.NoError(t, err)
	_, err = tw.Place(ctx, cube.Pos{2, 2, 2}, implementations.TankCasingTag, uuid.Nil, data)
	require.NoError(t, err)
	tw.Tick(ctx)

	s, ok := tw.StructureAt(valve)
	require.True(t, ok)
	assert.Equal(t, int64(5_000), s.Contents().Amount)
}

func TestWorld_EnergyEjection(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	src := cube.Pos{0, 0, 0}

	srcCell, err := tw.Place(ctx, src, "basic_energy_cube", uuid.Nil, nil)
	require.NoError(t, err)
	require.NoError(t, srcCell.Slots.InsertAny(resource.Energy(10_000), slot.Execute))

	dst := src.Side(srcCell.Ports.Facing())
	dstCell, err := tw.Place(ctx, dst, "basic_energy_cube", uuid.Nil, nil)
	require.NoError(t, err)
	// Лицевая грань приёмника смотрит в ту же сторону, значит к источнику
	// обращена его задняя грань - вход.
	require.Equal(t, sideconfig.Input, dstCell.Ports.Channel(sideconfig.Energy, srcCell.Ports.Facing().Opposite()))

	stats := tw.Tick(ctx)
	assert.Equal(t, 1, stats.Ejected)

	srcEnergy, _ := srcCell.Slots.Get(implementations.EnergySlot)
	dstEnergy, _ := dstCell.Slots.Get(implementations.EnergySlot)
	assert.Equal(t, int64(10_000-800), srcEnergy.Stack().Amount)
	assert.Equal(t, int64(800), dstEnergy.Stack().Amount)

	// Закрытый вход останавливает выдачу.
	require.NoError(t, dstCell.Ports.SetChannel(sideconfig.Energy, srcCell.Ports.Facing().Opposite(), sideconfig.Disabled))
	stats = tw.Tick(ctx)
	assert.Zero(t, stats.Ejected)
	assert.Equal(t, int64(800), dstEnergy.Stack().Amount)
}

func TestWorld_DismantleKeepsData(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	owner := uuid.New()
	pos := cube.Pos{3, 3, 3}

	_, err := tw.Place(ctx, pos, "advanced_energy_cube", owner, nil)
	require.NoError(t, err)

	res, err := tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Insert, Actor: owner, Stack: resource.Energy(5_000)})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Dismantle, Actor: owner})
	require.NoError(t, err)
	require.NotNil(t, res.Drop)
	_, ok := tw.CellAt(pos)
	assert.False(t, ok, "разобранный блок снимается")

	other := uuid.New()
	cell, err := tw.Place(ctx, pos, "advanced_energy_cube", other, res.Drop)
	require.NoError(t, err)
	assert.Equal(t, owner, cell.Security.Owner, "владелец переносится с предметом")
	assert.Equal(t, signal.FromFill(5_000, 8_000_000), tw.SignalAt(ctx, pos))

	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Extract, Actor: owner, Transmission: sideconfig.Energy, Amount: 1_000})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000), res.Stack.Amount)
}

func TestWorld_InjectionChamberTicks(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	pos := cube.Pos{0, 0, 0}

	cell, err := tw.Place(ctx, pos, "chemical_injection_chamber", uuid.Nil, nil)
	require.NoError(t, err)
	require.NoError(t, cell.Slots.InsertAny(resource.Of(resource.KindItem, "osmium_clump", 1), slot.Execute))
	require.NoError(t, cell.Slots.InsertAny(resource.Of(resource.KindGas, "hydrogen_chloride", 5), slot.Execute))
	require.NoError(t, cell.Slots.InsertAny(resource.Energy(20_000), slot.Execute))

	for i := 0; i < recipe.DefaultTicks; i++ {
		stats := tw.Tick(ctx)
		require.Equal(t, 1, stats.Ticked)
	}

	right := cell.Ports.FaceOf(sideconfig.Right)
	out, err := tw.ExtractAt(ctx, pos, right, sideconfig.Item, 64, slot.Execute)
	require.NoError(t, err)
	assert.Equal(t, resource.Of(resource.KindItem, "osmium_shard", 1), out)
}

func TestWorld_NeighborChangedRescans(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	valve := tw.buildTank(t, cube.Pos{0, 0, 0})
	tw.Tick(ctx)
	require.Len(t, tw.Structures(), 1)

	// Хост сообщает, что сосед клапана снизу изменился: это не участник,
	// структура остаётся.
	tw.OnNeighborChanged(ctx, valve, cube.FaceDown)
	tw.Tick(ctx)
	_, ok := tw.StructureAt(valve)
	assert.True(t, ok)

	// Внутренняя ячейка занята камнем: структура расформирована.
	_, err := tw.Place(ctx, cube.Pos{1, 1, 1}, "stone", uuid.Nil, nil)
	require.NoError(t, err)
	_, ok = tw.StructureAt(valve)
	assert.False(t, ok)
	tw.Tick(ctx)
	_, ok = tw.StructureAt(valve)
	assert.False(t, ok)
}

func TestWorld_InfoCopies(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	valve := tw.buildTank(t, cube.Pos{0, 0, 0})
	tw.Tick(ctx)
	require.NoError(t, tw.InsertAt(ctx, valve, cube.FaceDown, resource.Of(resource.KindFluid, "water", 1_000), slot.Execute))

	infos := tw.StructureInfos()
	require.Len(t, infos, 1)
	info := infos[0]
	assert.Equal(t, "dynamic_tank", info.Grammar)
	assert.Equal(t, cube.Pos{0, 0, 0}, info.Min)
	assert.Equal(t, cube.Pos{2, 2, 2}, info.Max)
	assert.Equal(t, 1, info.Volume)
	assert.Equal(t, int64(1_000), info.Contents.Amount)
	assert.Equal(t, []cube.Pos{valve}, info.Valves)

	cd, ok := tw.CellInfo(valve)
	require.True(t, ok)
	assert.Equal(t, implementations.TankValveTag, cd.Tag)
	_, ok = tw.CellInfo(cube.Pos{1, 1, 1})
	assert.False(t, ok)
}

func TestWorld_FluidTankServesContainers(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	owner := uuid.New()
	pos := cube.Pos{0, 0, 0}

	cell, err := tw.Place(ctx, pos, implementations.FluidTankTag, owner, nil)
	require.NoError(t, err)
	tank, _ := cell.Slots.Get(implementations.FluidSlotName)

	full := slot.NewFluidContainer("bucket", 1_000, resource.Of(resource.KindFluid, "water", 1_000))
	res, err := tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Insert, Actor: owner, Stack: full})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	tw.Tick(ctx)
	assert.Equal(t, resource.Of(resource.KindFluid, "water", 1_000), tank.Stack())
	assert.Equal(t, signal.FromFill(1_000, 32_000), tw.SignalAt(ctx, pos))

	// Опустевший контейнер лежит в выходе.
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Extract, Actor: owner, Transmission: sideconfig.Item, Amount: 1})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	fluid, capacity := slot.ContainedFluid(res.Stack)
	assert.True(t, fluid.IsEmpty())
	assert.Equal(t, int64(1_000), capacity)

	// Пустой контейнер наполняется из бака.
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Insert, Actor: owner, Stack: res.Stack})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	drain, _ := cell.Slots.Get(implementations.DrainSlot)
	assert.False(t, drain.Stack().IsEmpty(), "пустой контейнер идёт в слот слива")

	tw.Tick(ctx)
	assert.True(t, tank.Stack().IsEmpty())
	assert.True(t, drain.Stack().IsEmpty())
	out, _ := cell.Slots.Get(implementations.OutputSlot)
	fluid, _ = slot.ContainedFluid(out.Stack())
	assert.Equal(t, resource.Of(resource.KindFluid, "water", 1_000), fluid)
}

func TestWorld_RotaryCondensesAndReverses(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	owner := uuid.New()
	pos := cube.Pos{0, 0, 0}

	cell, err := tw.Place(ctx, pos, implementations.RotaryTag, owner, nil)
	require.NoError(t, err)
	require.NoError(t, cell.Slots.InsertAny(resource.Of(resource.KindGas, "water", 1_000), slot.Execute))
	require.NoError(t, cell.Slots.InsertAny(resource.Energy(20_000), slot.Execute))

	empty := slot.NewFluidContainer("bucket", 1_000, resource.Empty)
	res, err := tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Insert, Actor: owner, Stack: empty})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	gas, _ := cell.Slots.Get(implementations.GasSlot)
	fluid, _ := cell.Slots.Get(implementations.FluidSlotName)
	energy, _ := cell.Slots.Get(implementations.EnergySlot)

	tw.Tick(ctx)
	assert.Equal(t, int64(1_000-128), gas.Stack().Amount)
	assert.Equal(t, resource.Of(resource.KindFluid, "water", 128), fluid.Stack())

	// Газ переводится за 8 тиков, контейнер наполняется с отставанием в тик.
	for i := 0; i < 9; i++ {
		tw.Tick(ctx)
	}
	assert.True(t, gas.Stack().IsEmpty())
	assert.True(t, fluid.Stack().IsEmpty())
	assert.Equal(t, int64(20_000-8*50), energy.Stack().Amount)

	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Extract, Actor: owner, Transmission: sideconfig.Item, Amount: 1})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	contained, _ := slot.ContainedFluid(res.Stack)
	require.Equal(t, resource.Of(resource.KindFluid, "water", 1_000), contained)

	// Полный контейнер не принимается, пока машина конденсирует.
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Insert, Actor: owner, Stack: res.Stack})
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Reverse, Actor: owner, Enabled: true})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	require.True(t, implementations.Decondensing(cell))

	full := slot.NewFluidContainer("bucket", 1_000, resource.Of(resource.KindFluid, "water", 1_000))
	res, err = tw.OnPlayerInteract(ctx, pos, block.Interaction{Kind: block.Insert, Actor: owner, Stack: full})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	tw.Tick(ctx)
	assert.Equal(t, resource.Of(resource.KindFluid, "water", 1_000-128), fluid.Stack())
	assert.Equal(t, resource.Of(resource.KindGas, "water", 128), gas.Stack())
	assert.Equal(t, signal.FromFill(128, 10_000), tw.SignalAt(ctx, pos))

	container, _ := cell.Slots.Get(implementations.ContainerSlot)
	assert.True(t, container.Stack().IsEmpty(), "опустевший контейнер уходит в выход")
}

func TestWorld_ExportAndLoad(t *testing.T) {
	tw := newTestWorld(t)
	ctx := context.Background()
	valve := tw.buildTank(t, cube.Pos{0, 0, 0})
	tw.Tick(ctx)
	require.NoError(t, tw.InsertAt(ctx, valve, cube.FaceDown, resource.Of(resource.KindFluid, "water", 4_000), slot.Execute))
	tw.Tick(ctx)

	st := tw.Export()
	assert.Equal(t, uint64(2), st.Tick)
	assert.Len(t, st.Cells, 26)
	require.Len(t, st.Structures, 1)
	assert.Equal(t, int64(4_000), st.Structures[0].Contents.Amount)

	restored := newTestWorld(t)
	require.NoError(t, restored.Load(st))
	assert.Equal(t, uint64(2), restored.CurrentTick())

	stats := restored.Tick(ctx)
	assert.Equal(t, uint64(3), stats.Tick)
	s, ok := restored.StructureAt(valve)
	require.True(t, ok)
	assert.Equal(t, int64(4_000), s.Contents().Amount)
}
