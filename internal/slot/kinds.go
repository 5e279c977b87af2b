package slot

import (
	"math"

	"github.com/annel0/voxelforge/internal/resource"
)

// DefaultMaxStack - максимальный размер стопки предметов.
const DefaultMaxStack = 64

// InfiniteCapacity - ёмкость креативных контейнеров.
const InfiniteCapacity = math.MaxInt64 / 4

// NewItemSlot создаёт слот предметов. Объединение стопок разрешено только
// при совпадении типа и тегов (см. resource.Stack.SameType).
func NewItemSlot(maxStack int64, opts ...Option) *Basic {
	if maxStack <= 0 {
		maxStack = DefaultMaxStack
	}
	return NewBasic(resource.KindItem, maxStack, opts...)
}

// NewTank создаёт бак жидкости или газа. validType ограничивает допустимые
// типы; nil - любой тип.
func NewTank(kind resource.Kind, capacity int64, validType func(string) bool, opts ...Option) *Basic {
	if validType != nil {
		opts = append([]Option{WithValidator(func(s resource.Stack) bool { return validType(s.Type) })}, opts...)
	}
	return NewBasic(kind, capacity, opts...)
}

// NewEnergyContainer создаёт накопитель энергии.
func NewEnergyContainer(capacity int64, opts ...Option) *Basic {
	return NewBasic(resource.KindEnergy, capacity, opts...)
}

// NewCreativeEnergy создаёт бесконечный накопитель, уже заполненный.
func NewCreativeEnergy(opts ...Option) *Basic {
	b := NewBasic(resource.KindEnergy, InfiniteCapacity, append(opts, Infinite())...)
	b.stack = resource.Energy(InfiniteCapacity)
	return b
}

// FluidHandler принимает жидкость частично и сообщает принятое количество.
type FluidHandler interface {
	Fill(stack resource.Stack, action Action) int64
}
