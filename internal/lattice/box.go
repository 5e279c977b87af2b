package lattice

import (
	"fmt"
	"sort"

	"github.com/df-mc/dragonfly/server/block/cube"
)

// Box - ограничивающий параллелепипед, границы включительно.
type Box struct {
	Min cube.Pos
	Max cube.Pos
}

// BoxOf строит минимальный Box, содержащий все позиции.
func BoxOf(positions []cube.Pos) Box {
	if len(positions) == 0 {
		return Box{}
	}
	b := Box{Min: positions[0], Max: positions[0]}
	for _, p := range positions[1:] {
		b = b.Extend(p)
	}
	return b
}

// Extend расширяет Box до позиции p.
func (b Box) Extend(p cube.Pos) Box {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

// Size возвращает длины сторон по X, Y, Z.
func (b Box) Size() [3]int {
	return [3]int{
		b.Max[0] - b.Min[0] + 1,
		b.Max[1] - b.Min[1] + 1,
		b.Max[2] - b.Min[2] + 1,
	}
}

// Volume возвращает число ячеек в Box.
func (b Box) Volume() int {
	s := b.Size()
	return s[0] * s[1] * s[2]
}

// Contains сообщает, лежит ли p внутри Box (включая границу).
func (b Box) Contains(p cube.Pos) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// boundaryAxes считает, на скольких осях p лежит на границе Box.
// 0 - внутренность, 1 - стена, 2 - ребро, 3 - угол.
func (b Box) boundaryAxes(p cube.Pos) int {
	n := 0
	for i := 0; i < 3; i++ {
		if p[i] == b.Min[i] || p[i] == b.Max[i] {
			n++
		}
	}
	return n
}

// OnShell сообщает, лежит ли p на оболочке Box.
func (b Box) OnShell(p cube.Pos) bool {
	return b.Contains(p) && b.boundaryAxes(p) > 0
}

// OnEdge сообщает, лежит ли p на ребре или в углу Box.
func (b Box) OnEdge(p cube.Pos) bool {
	return b.Contains(p) && b.boundaryAxes(p) >= 2
}

// Interior возвращает Box без оболочки. ok == false, если внутренности нет.
func (b Box) Interior() (Box, bool) {
	in := Box{
		Min: cube.Pos{b.Min[0] + 1, b.Min[1] + 1, b.Min[2] + 1},
		Max: cube.Pos{b.Max[0] - 1, b.Max[1] - 1, b.Max[2] - 1},
	}
	for i := 0; i < 3; i++ {
		if in.Min[i] > in.Max[i] {
			return Box{}, false
		}
	}
	return in, true
}

// Each вызывает fn для каждой позиции Box в порядке X, Z, Y.
// Если fn возвращает false, обход прекращается.
func (b Box) Each(fn func(p cube.Pos) bool) {
	for y := b.Min[1]; y <= b.Max[1]; y++ {
		for z := b.Min[2]; z <= b.Max[2]; z++ {
			for x := b.Min[0]; x <= b.Max[0]; x++ {
				if !fn(cube.Pos{x, y, z}) {
					return
				}
			}
		}
	}
}

func (b Box) String() string {
	return fmt.Sprintf("[%d %d %d]..[%d %d %d]", b.Min[0], b.Min[1], b.Min[2], b.Max[0], b.Max[1], b.Max[2])
}

// SortPositions сортирует позиции по Y, Z, X - детерминированный порядок
// для отпечатков и сохранения.
func SortPositions(ps []cube.Pos) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		if a[2] != b[2] {
			return a[2] < b[2]
		}
		return a[0] < b[0]
	})
}

// PosKey кодирует позицию в строковый ключ "x:y:z".
func PosKey(p cube.Pos) string {
	return fmt.Sprintf("%d:%d:%d", p[0], p[1], p[2])
}

// ParsePosKey разбирает ключ, записанный PosKey.
func ParsePosKey(s string) (cube.Pos, error) {
	var p cube.Pos
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &p[0], &p[1], &p[2]); err != nil {
		return cube.Pos{}, fmt.Errorf("ошибка парсинга позиции %q: %w", s, err)
	}
	return p, nil
}
