package implementations

import (
	"github.com/annel0/voxelforge/internal/multiblock"
)

// Теги блоков, из которых собираются структуры.
const (
	TankCasingTag      = "dynamic_tank"
	TankValveTag       = "dynamic_valve"
	GlassTag           = "structural_glass"
	InductionCasingTag = "induction_casing"
	InductionPortTag   = "induction_port"
	TurbineCasingTag   = "turbine_casing"
	TurbineValveTag    = "turbine_valve"
	TurbineRotorTag    = "turbine_rotor"
)

// DefaultGrammars возвращает встроенные формы структур: динамический бак,
// матрицу индукции и турбину. Конфигурация может заменить любую из них.
func DefaultGrammars() []*multiblock.Grammar {
	matrix := &multiblock.Grammar{
		Name: "induction_matrix",
		Casing: map[string]multiblock.Role{
			InductionCasingTag: multiblock.RoleFrame,
			InductionPortTag:   multiblock.RoleValve,
			GlassTag:           multiblock.RoleGlass,
		},
		Components: make(map[string]multiblock.Component),
		MinSize:    3,
		MaxSize:    18,
		TankName:   "energy",
	}
	for t := Basic; t <= Ultimate; t++ {
		matrix.Components[InductionCellTag(t)] = multiblock.Component{Capacity: InductionCellCapacity[t]}
		matrix.Components[InductionProviderTag(t)] = multiblock.Component{Throughput: InductionProviderOutput[t]}
	}

	grammars := []*multiblock.Grammar{
		{
			Name: "dynamic_tank",
			Casing: map[string]multiblock.Role{
				TankCasingTag: multiblock.RoleFrame,
				TankValveTag:  multiblock.RoleValve,
				GlassTag:      multiblock.RoleGlass,
			},
			MinSize:           3,
			MaxSize:           18,
			CapacityPerBlock:  16_000,
			ThroughputPerArea: 256,
			TankName:          "fluid",
		},
		matrix,
		{
			Name: "turbine",
			Casing: map[string]multiblock.Role{
				TurbineCasingTag: multiblock.RoleFrame,
				TurbineValveTag:  multiblock.RoleValve,
				GlassTag:         multiblock.RoleGlass,
			},
			Interior:          []string{TurbineRotorTag},
			MinSize:           5,
			MaxSize:           17,
			CapacityPerBlock:  64_000,
			ThroughputPerArea: 1_280,
			TankName:          "fluid",
		},
	}
	for _, g := range grammars {
		if err := g.Validate(); err != nil {
			panic(err)
		}
	}
	return grammars
}
