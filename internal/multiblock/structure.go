package multiblock

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/annel0/voxelforge/internal/resource"
	"github.com/annel0/voxelforge/internal/slot"
	"github.com/df-mc/dragonfly/server/block/cube"
)

// ID - идентификатор структуры внутри менеджера.
type ID uint64

// Structure - сформированная составная машина.
type Structure struct {
	ID      ID
	Grammar string

	Box         lattice.Box
	Interior    lattice.Box
	HasInterior bool
	Members     []cube.Pos
	Valves      []cube.Pos

	InteriorVolume int
	Capacity       int64
	Throughput     int64
	Fingerprint    uint64

	// Tank - общий бак структуры ёмкостью Capacity.
	Tank *slot.Basic

	validator *Validator
	members   map[cube.Pos]struct{}
}

func newStructure(id ID, v *Validator, res ScanResult) *Structure {
	g := v.Grammar()
	s := &Structure{
		ID:             id,
		Grammar:        g.Name,
		Box:            res.Box,
		Interior:       res.Interior,
		HasInterior:    res.HasInterior,
		Members:        res.Members,
		Valves:         res.Valves,
		InteriorVolume: res.InteriorVolume,
		Capacity:       res.Capacity,
		Throughput:     res.Throughput,
		Fingerprint:    res.Fingerprint,
		validator:      v,
		members:        make(map[cube.Pos]struct{}, len(res.Members)),
	}
	for _, p := range res.Members {
		s.members[p] = struct{}{}
	}
	if g.TankKind != resource.KindNone {
		s.Tank = slot.NewBasic(g.TankKind, res.Capacity)
	}
	return s
}

// State возвращает текущее состояние структуры.
func (s *Structure) State() State { return s.validator.State() }

// Formed сообщает, сформирована ли структура.
func (s *Structure) Formed() bool { return s.validator.State() == Formed }

// Reason возвращает причину последнего расформирования.
func (s *Structure) Reason() Reason { return s.validator.Reason() }

// IsMember сообщает, входит ли позиция в оболочку.
func (s *Structure) IsMember(p cube.Pos) bool {
	_, ok := s.members[p]
	return ok
}

// IsValve сообщает, является ли позиция портом структуры.
func (s *Structure) IsValve(p cube.Pos) bool {
	for _, v := range s.Valves {
		if v == p {
			return true
		}
	}
	return false
}

// Covers сообщает, затрагивает ли изменение позиции структуру:
// позиция в оболочке или во внутренности.
func (s *Structure) Covers(p cube.Pos) bool {
	return s.IsMember(p) || (s.HasInterior && s.Interior.Contains(p))
}

// Contents возвращает содержимое общего бака.
func (s *Structure) Contents() resource.Stack {
	if s.Tank == nil {
		return resource.Empty
	}
	return s.Tank.Stack()
}

func (s *Structure) String() string {
	return fmt.Sprintf("%s#%d %s (%d members, capacity %d)", s.Grammar, s.ID, s.Box, len(s.Members), s.Capacity)
}

// Salvage - содержимое бака расформированной структуры. Восстанавливается,
// когда структура, пересекающаяся с Members, снова формируется.
type Salvage struct {
	Grammar  string         `json:"grammar"`
	Members  []cube.Pos     `json:"members"`
	Contents resource.Stack `json:"contents"`
}

func (sv Salvage) overlaps(s *Structure) bool {
	for _, p := range sv.Members {
		if s.IsMember(p) {
			return true
		}
	}
	return false
}
