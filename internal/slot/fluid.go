package slot

import (
	"strconv"

	"github.com/annel0/voxelforge/internal/resource"
)

// Теги предмета-контейнера жидкости.
const (
	TagFluid         = "fluid"
	TagFluidAmount   = "fluid_amount"
	TagFluidCapacity = "fluid_capacity"
)

// IsFluidContainer сообщает, является ли предмет контейнером жидкости.
func IsFluidContainer(item resource.Stack) bool {
	if item.Kind != resource.KindItem {
		return false
	}
	_, ok := item.Tag[TagFluidCapacity]
	return ok
}

// ContainedFluid возвращает содержимое контейнера и его ёмкость.
func ContainedFluid(item resource.Stack) (resource.Stack, int64) {
	if !IsFluidContainer(item) {
		return resource.Empty, 0
	}
	capacity, _ := strconv.ParseInt(item.Tag[TagFluidCapacity], 10, 64)
	amount, _ := strconv.ParseInt(item.Tag[TagFluidAmount], 10, 64)
	typ := item.Tag[TagFluid]
	if typ == "" || amount <= 0 {
		return resource.Empty, capacity
	}
	return resource.Of(resource.KindFluid, typ, amount), capacity
}

// NewFluidContainer создаёт предмет-контейнер с содержимым fluid.
func NewFluidContainer(itemType string, capacity int64, fluid resource.Stack) resource.Stack {
	item := resource.Stack{
		Kind:   resource.KindItem,
		Type:   itemType,
		Amount: 1,
		Tag:    map[string]string{TagFluidCapacity: strconv.FormatInt(capacity, 10)},
	}
	return withContainedFluid(item, fluid)
}

func withContainedFluid(item, fluid resource.Stack) resource.Stack {
	out := item.Copy()
	if out.Tag == nil {
		out.Tag = make(map[string]string)
	}
	if fluid.IsEmpty() {
		delete(out.Tag, TagFluid)
		delete(out.Tag, TagFluidAmount)
		return out
	}
	out.Tag[TagFluid] = fluid.Type
	out.Tag[TagFluidAmount] = strconv.FormatInt(fluid.Amount, 10)
	return out
}

func isNonFullContainer(item resource.Stack) bool {
	if !IsFluidContainer(item) {
		return false
	}
	fluid, capacity := ContainedFluid(item)
	return fluid.Amount < capacity
}

// FluidSlot - слот предметов, который держит контейнер жидкости и
// перекачивает его содержимое в бак машины или обратно.
type FluidSlot struct {
	*Basic
	handler FluidHandler
}

func newFluidSlot(handler FluidHandler, canInsert, validator Predicate) *FluidSlot {
	return &FluidSlot{
		Basic: NewItemSlot(1,
			WithExtract(AlwaysFalse),
			WithInsert(canInsert),
			WithValidator(validator),
		),
		handler: handler,
	}
}

// FluidRotary работает как вход или выход в зависимости от режима.
// mode() == true - бак является входным (жидкость → газ).
func FluidRotary(handler FluidHandler, validInput Predicate, mode func() bool) *FluidSlot {
	return newFluidSlot(handler, func(item resource.Stack) bool {
		fluid, _ := ContainedFluid(item)
		if fluid.IsEmpty() {
			return !mode()
		}
		return mode() && validInput(fluid) && handler.Fill(fluid, Simulate) > 0
	}, func(item resource.Stack) bool {
		if !IsFluidContainer(item) {
			return false
		}
		if mode() {
			fluid, _ := ContainedFluid(item)
			return !fluid.IsEmpty() && validInput(fluid)
		}
		return isNonFullContainer(item)
	})
}

// FluidFill принимает контейнеры с подходящей жидкостью для наполнения бака.
func FluidFill(handler FluidHandler, validFluid Predicate) *FluidSlot {
	return newFluidSlot(handler, func(item resource.Stack) bool {
		fluid, _ := ContainedFluid(item)
		return handler.Fill(fluid, Simulate) > 0
	}, func(item resource.Stack) bool {
		if !IsFluidContainer(item) {
			return false
		}
		fluid, _ := ContainedFluid(item)
		return !fluid.IsEmpty() && validFluid(fluid)
	})
}

// FluidDrain принимает контейнеры, которые можно наполнить из бака tank.
func FluidDrain(tank *Basic) *FluidSlot {
	return newFluidSlot(tank, func(item resource.Stack) bool {
		if !IsFluidContainer(item) {
			return false
		}
		return tank.IsEmpty() || containerFill(item, tank.Stack()).Amount > 0
	}, isNonFullContainer)
}

// containerFill вычисляет, сколько жидкости fluid поместится в контейнер.
func containerFill(item, fluid resource.Stack) resource.Stack {
	contained, capacity := ContainedFluid(item)
	if fluid.IsEmpty() {
		return resource.Empty
	}
	if !contained.IsEmpty() && !contained.SameType(fluid) {
		return resource.Empty
	}
	room := capacity - contained.Amount
	if room <= 0 {
		return resource.Empty
	}
	if fluid.Amount < room {
		room = fluid.Amount
	}
	return fluid.WithAmount(room)
}

// FillTankFromContainer переливает содержимое контейнера в обработчик.
// Возвращает перелитое количество.
func (f *FluidSlot) FillTankFromContainer() int64 {
	item := f.Basic.stack
	fluid, _ := ContainedFluid(item)
	if fluid.IsEmpty() {
		return 0
	}
	n := f.handler.Fill(fluid, Simulate)
	if n <= 0 {
		return 0
	}
	n = f.handler.Fill(fluid.WithAmount(n), Execute)
	f.Basic.SetStack(withContainedFluid(item, fluid.WithAmount(fluid.Amount-n)))
	return n
}

// DrainTankToContainer наполняет контейнер из бака tank.
// Возвращает перелитое количество.
func (f *FluidSlot) DrainTankToContainer(tank *Basic) int64 {
	item := f.Basic.stack
	if !IsFluidContainer(item) {
		return 0
	}
	want := containerFill(item, tank.Stack())
	if want.IsEmpty() {
		return 0
	}
	got := tank.Take(want.Amount, Execute)
	contained, _ := ContainedFluid(item)
	f.Basic.SetStack(withContainedFluid(item, got.WithAmount(contained.Amount+got.Amount)))
	return got.Amount
}
