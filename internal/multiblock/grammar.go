package multiblock

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelforge/internal/resource"
)

// Role - роль тега оболочки.
type Role uint8

const (
	// RoleFrame может стоять где угодно на оболочке, включая рёбра и углы.
	RoleFrame Role = iota
	// RoleWall - только на гранях оболочки.
	RoleWall
	// RoleValve - порт структуры, только на гранях.
	RoleValve
	// RoleGlass - прозрачная стенка, только на гранях.
	RoleGlass
)

func (r Role) String() string {
	switch r {
	case RoleWall:
		return "wall"
	case RoleValve:
		return "valve"
	case RoleGlass:
		return "glass"
	}
	return "frame"
}

// FrameCapable сообщает, может ли роль стоять на ребре или в углу.
func (r Role) FrameCapable() bool { return r == RoleFrame }

// UnmarshalText разбирает роль из конфигурации.
func (r *Role) UnmarshalText(b []byte) error {
	switch string(b) {
	case "frame", "casing":
		*r = RoleFrame
	case "wall":
		*r = RoleWall
	case "valve", "port":
		*r = RoleValve
	case "glass":
		*r = RoleGlass
	default:
		return fmt.Errorf("unknown casing role %q", b)
	}
	return nil
}

// MarshalText нужен для симметричной записи конфигурации.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Component - вклад внутреннего блока в ёмкость и пропускную способность.
type Component struct {
	Capacity   int64 `yaml:"capacity"`
	Throughput int64 `yaml:"throughput"`
}

// Grammar описывает допустимую форму структуры одного вида.
type Grammar struct {
	Name string `yaml:"name"`
	// Casing - теги оболочки и их роли.
	Casing map[string]Role `yaml:"casing"`
	// Interior - теги, допустимые внутри помимо пустоты.
	Interior []string `yaml:"interior"`
	// Components - внутренние блоки, добавляющие ёмкость и пропускную способность.
	Components map[string]Component `yaml:"components"`

	MinSize  int `yaml:"min_size"`
	MaxSize  int `yaml:"max_size"`
	MaxCells int `yaml:"max_cells"`

	CapacityPerBlock  int64 `yaml:"capacity_per_block"`
	ThroughputPerArea int64 `yaml:"throughput_per_area"`

	// TankKind - вид ресурса общего бака структуры.
	TankKind resource.Kind `yaml:"-"`
	TankName string        `yaml:"tank"`

	interior map[string]struct{}
}

// Validate проверяет грамматику и подготавливает служебные индексы.
func (g *Grammar) Validate() error {
	var errs []error
	if g.Name == "" {
		errs = append(errs, errors.New("grammar: empty name"))
	}
	if len(g.Casing) == 0 {
		errs = append(errs, fmt.Errorf("grammar %s: no casing tags", g.Name))
	}
	frame := false
	for _, role := range g.Casing {
		if role.FrameCapable() {
			frame = true
		}
	}
	if len(g.Casing) > 0 && !frame {
		errs = append(errs, fmt.Errorf("grammar %s: no frame-capable casing", g.Name))
	}
	if g.MinSize <= 0 {
		g.MinSize = 3
	}
	if g.MaxSize < g.MinSize {
		errs = append(errs, fmt.Errorf("grammar %s: max_size %d < min_size %d", g.Name, g.MaxSize, g.MinSize))
	}
	if g.MaxCells <= 0 {
		g.MaxCells = g.MaxSize * g.MaxSize * g.MaxSize
	}
	if g.TankName != "" {
		kind, err := resource.ParseKind(g.TankName)
		if err != nil {
			errs = append(errs, fmt.Errorf("grammar %s: %w", g.Name, err))
		}
		g.TankKind = kind
	}
	g.interior = make(map[string]struct{}, len(g.Interior)+len(g.Components))
	for _, tag := range g.Interior {
		g.interior[tag] = struct{}{}
	}
	for tag := range g.Components {
		g.interior[tag] = struct{}{}
	}
	return errors.Join(errs...)
}

// IsCasing сообщает, является ли тег частью оболочки.
func (g *Grammar) IsCasing(tag string) bool {
	_, ok := g.Casing[tag]
	return ok
}

// allowedInside сообщает, допустим ли тег внутри. Пустота допустима всегда.
func (g *Grammar) allowedInside(tag string) bool {
	if tag == "" {
		return true
	}
	if g.interior == nil {
		for _, t := range g.Interior {
			if t == tag {
				return true
			}
		}
		_, ok := g.Components[tag]
		return ok
	}
	_, ok := g.interior[tag]
	return ok
}
