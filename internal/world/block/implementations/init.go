package implementations

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/recipe"
	"github.com/annel0/voxelforge/internal/world/block"
)

// RegisterDefaults регистрирует встроенный набор блоков.
func RegisterDefaults(r *block.Registry, recipes *recipe.Registry) error {
	behaviors := []block.Behavior{
		// Базовые блоки
		NewAir(),
		NewStone(),

		// Динамический бак
		NewCasing(block.TankCasingBlockID, TankCasingTag, "Dynamic Tank"),
		NewTankValve(),
		NewCasing(block.GlassBlockID, GlassTag, "Structural Glass"),

		// Матрица индукции
		NewCasing(block.InductionCasingBlockID, InductionCasingTag, "Induction Casing"),
		NewInductionPort(),

		// Турбина
		NewCasing(block.TurbineCasingBlockID, TurbineCasingTag, "Turbine Casing"),
		NewTurbineValve(),
		NewCasing(block.TurbineRotorBlockID, TurbineRotorTag, "Turbine Rotor"),

		// Машины
		NewSecurityDesk(),
		NewInjectionChamber(recipes),
		NewFluidTank(),
		NewRotary(),
	}
	for t := Basic; t <= Ultimate; t++ {
		behaviors = append(behaviors,
			NewCasing(block.InductionCellBlockID+block.BlockID(t), InductionCellTag(t), fmt.Sprintf("Induction Cell (%s)", t)),
			NewCasing(block.InductionProviderID+block.BlockID(t), InductionProviderTag(t), fmt.Sprintf("Induction Provider (%s)", t)),
		)
	}
	for t := Basic; t <= Creative; t++ {
		behaviors = append(behaviors, NewEnergyCube(t))
	}

	for _, b := range behaviors {
		if err := r.Register(b); err != nil {
			return fmt.Errorf("регистрация блока %s: %w", b.Tag(), err)
		}
	}
	return nil
}

// NewDefaultRegistry создаёт реестр со встроенным набором блоков.
func NewDefaultRegistry(recipes *recipe.Registry) (*block.Registry, error) {
	r := block.NewRegistry()
	if err := RegisterDefaults(r, recipes); err != nil {
		return nil, err
	}
	return r, nil
}
