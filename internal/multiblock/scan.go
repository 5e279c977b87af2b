package multiblock

import (
	"encoding/binary"

	"github.com/annel0/voxelforge/internal/lattice"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/zeebo/xxh3"
)

// View - доступ сканера к решётке. Пустая строка - пустая позиция (воздух).
type View interface {
	TagAt(pos cube.Pos) string
}

// ViewFunc адаптирует функцию к View.
type ViewFunc func(pos cube.Pos) string

func (f ViewFunc) TagAt(pos cube.Pos) string { return f(pos) }

// Reason - причина, по которой структура не сформирована.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotCasing     Reason = "not_casing"
	ReasonRunaway       Reason = "runaway"
	ReasonSize          Reason = "size"
	ReasonGap           Reason = "gap"
	ReasonEdge          Reason = "edge"
	ReasonInterior      Reason = "interior"
	ReasonMemberChanged Reason = "member_changed"
	ReasonOverlap       Reason = "overlap"
)

// ScanResult - итог одного прохода сканера. Не зависит от состояния менеджера.
type ScanResult struct {
	Formed bool
	Reason Reason
	// Bad - позиция, на которой проверка провалилась.
	Bad cube.Pos

	Box         lattice.Box
	Interior    lattice.Box
	HasInterior bool
	Members     []cube.Pos
	Valves      []cube.Pos

	InteriorVolume int
	Capacity       int64
	Throughput     int64
	Fingerprint    uint64
}

// Scan проверяет, образует ли оболочка, содержащая seed, правильную структуру.
func Scan(view View, g *Grammar, seed cube.Pos) ScanResult {
	if !g.IsCasing(view.TagAt(seed)) {
		return ScanResult{Reason: ReasonNotCasing, Bad: seed}
	}

	visited := map[cube.Pos]struct{}{seed: {}}
	queue := []cube.Pos{seed}
	box := lattice.BoxOf([]cube.Pos{seed})
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, n := range lattice.Neighbours(p) {
			if _, ok := visited[n]; ok {
				continue
			}
			if !g.IsCasing(view.TagAt(n)) {
				continue
			}
			if len(visited) >= g.MaxCells {
				return ScanResult{Reason: ReasonRunaway, Bad: n, Box: box}
			}
			visited[n] = struct{}{}
			box = box.Extend(n)
			queue = append(queue, n)
		}
	}

	res := ScanResult{Box: box}
	for _, side := range box.Size() {
		if side < g.MinSize || side > g.MaxSize {
			res.Reason = ReasonSize
			res.Bad = box.Max
			return res
		}
	}

	var members []cube.Pos
	var fail bool
	box.Each(func(p cube.Pos) bool {
		if !box.OnShell(p) {
			return true
		}
		tag := view.TagAt(p)
		role, ok := g.Casing[tag]
		if _, reached := visited[p]; !ok || !reached {
			res.Reason, res.Bad, fail = ReasonGap, p, true
			return false
		}
		if box.OnEdge(p) && !role.FrameCapable() {
			res.Reason, res.Bad, fail = ReasonEdge, p, true
			return false
		}
		if role == RoleValve {
			res.Valves = append(res.Valves, p)
		}
		members = append(members, p)
		return true
	})
	if fail {
		res.Valves = nil
		return res
	}

	interior, hasInterior := box.Interior()
	res.Interior, res.HasInterior = interior, hasInterior
	if hasInterior {
		interior.Each(func(p cube.Pos) bool {
			tag := view.TagAt(p)
			if !g.allowedInside(tag) {
				res.Reason, res.Bad, fail = ReasonInterior, p, true
				return false
			}
			if c, ok := g.Components[tag]; ok {
				res.Capacity += c.Capacity
				res.Throughput += c.Throughput
			}
			return true
		})
		if fail {
			res.Valves = nil
			res.Capacity, res.Throughput = 0, 0
			return res
		}
		size := interior.Size()
		res.InteriorVolume = interior.Volume()
		res.Capacity += int64(res.InteriorVolume) * g.CapacityPerBlock
		res.Throughput += int64(size[0]*size[2]) * g.ThroughputPerArea
	}

	lattice.SortPositions(members)
	res.Members = members
	res.Fingerprint = fingerprint(view, members)
	res.Formed = true
	return res
}

// fingerprint хеширует отсортированные позиции оболочки вместе с тегами.
func fingerprint(view View, members []cube.Pos) uint64 {
	h := xxh3.New()
	var buf [24]byte
	for _, p := range members {
		binary.LittleEndian.PutUint64(buf[0:], uint64(int64(p[0])))
		binary.LittleEndian.PutUint64(buf[8:], uint64(int64(p[1])))
		binary.LittleEndian.PutUint64(buf[16:], uint64(int64(p[2])))
		_, _ = h.Write(buf[:])
		_, _ = h.WriteString(view.TagAt(p))
	}
	return h.Sum64()
}
