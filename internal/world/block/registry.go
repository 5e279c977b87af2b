package block

import (
	"fmt"
	"sort"
)

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1

	// Корпуса динамического бака (начиная с 100)
	TankCasingBlockID BlockID = 100
	TankValveBlockID  BlockID = 101
	GlassBlockID      BlockID = 102

	// Матрица индукции (начиная с 110)
	InductionCasingBlockID BlockID = 110
	InductionPortBlockID   BlockID = 111
	InductionCellBlockID   BlockID = 112 // + тир (0..3)
	InductionProviderID    BlockID = 120 // + тир (0..3)

	// Турбина (начиная с 130)
	TurbineCasingBlockID BlockID = 130
	TurbineValveBlockID  BlockID = 131
	TurbineRotorBlockID  BlockID = 132

	// Машины (начиная с 200)
	EnergyCubeBlockID       BlockID = 200 // + тир (0..4)
	SecurityDeskBlockID     BlockID = 210
	InjectionChamberBlockID BlockID = 220
	FluidTankBlockID        BlockID = 230
	RotaryBlockID           BlockID = 240
)

// Registry - явный реестр поведений блоков. Передаётся миру при создании.
type Registry struct {
	byID  map[BlockID]Behavior
	byTag map[string]Behavior
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[BlockID]Behavior),
		byTag: make(map[string]Behavior),
	}
}

// Register добавляет поведение блока в реестр. ID и тег должны быть уникальны.
func (r *Registry) Register(b Behavior) error {
	if _, exists := r.byID[b.ID()]; exists {
		return fmt.Errorf("block id %d already registered", b.ID())
	}
	if _, exists := r.byTag[b.Tag()]; exists {
		return fmt.Errorf("block tag %q already registered", b.Tag())
	}
	r.byID[b.ID()] = b
	r.byTag[b.Tag()] = b
	return nil
}

// MustRegister - Register, паникующий при конфликте. Только для сборки
// встроенного набора блоков при старте.
func (r *Registry) MustRegister(b Behavior) {
	if err := r.Register(b); err != nil {
		panic(err)
	}
}

// Get возвращает поведение для указанного ID
func (r *Registry) Get(id BlockID) (Behavior, bool) {
	behavior, exists := r.byID[id]
	return behavior, exists
}

// ByTag возвращает поведение по тегу.
func (r *Registry) ByTag(tag string) (Behavior, bool) {
	behavior, exists := r.byTag[tag]
	return behavior, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func (r *Registry) IsValidBlockID(id BlockID) bool {
	_, exists := r.byID[id]
	return exists
}

// Tags возвращает отсортированные теги зарегистрированных блоков.
func (r *Registry) Tags() []string {
	out := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
