// Package lattice содержит геометрию решётки ячеек: позиции, грани,
// повороты граней и ограничивающие параллелепипеды.
//
// Позиции и грани берутся из dragonfly (cube.Pos, cube.Face), чтобы
// адаптер хоста на Bedrock-движке мог передавать их без конвертации.
package lattice

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/block/cube"
)

// Faces перечисляет шесть граней в фиксированном порядке.
var Faces = [6]cube.Face{
	cube.FaceDown,
	cube.FaceUp,
	cube.FaceNorth,
	cube.FaceSouth,
	cube.FaceWest,
	cube.FaceEast,
}

var faceNames = map[cube.Face]string{
	cube.FaceDown:  "down",
	cube.FaceUp:    "up",
	cube.FaceNorth: "north",
	cube.FaceSouth: "south",
	cube.FaceWest:  "west",
	cube.FaceEast:  "east",
}

// FaceName возвращает имя грани для сохранения.
func FaceName(f cube.Face) string {
	if n, ok := faceNames[f]; ok {
		return n
	}
	return "unknown"
}

// ParseFace разбирает имя грани, записанное FaceName.
func ParseFace(s string) (cube.Face, error) {
	for f, n := range faceNames {
		if n == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown face %q", s)
}

// ParseAxis разбирает имя оси ("x", "y", "z").
func ParseAxis(s string) (cube.Axis, error) {
	switch s {
	case "x", "X":
		return cube.X, nil
	case "y", "Y":
		return cube.Y, nil
	case "z", "Z":
		return cube.Z, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// Циклы поворота граней вокруг осей (по часовой стрелке, если смотреть
// со стороны положительного направления оси). Грани на самой оси не меняются.
var (
	cycleY = [4]cube.Face{cube.FaceNorth, cube.FaceEast, cube.FaceSouth, cube.FaceWest}
	cycleX = [4]cube.Face{cube.FaceNorth, cube.FaceDown, cube.FaceSouth, cube.FaceUp}
	cycleZ = [4]cube.Face{cube.FaceEast, cube.FaceDown, cube.FaceWest, cube.FaceUp}
)

func cycleFor(axis cube.Axis) [4]cube.Face {
	switch axis {
	case cube.X:
		return cycleX
	case cube.Z:
		return cycleZ
	default:
		return cycleY
	}
}

// RotateAround поворачивает грань на 90° вокруг оси.
// inverse задаёт поворот в обратную сторону.
func RotateAround(f cube.Face, axis cube.Axis, inverse bool) cube.Face {
	cycle := cycleFor(axis)
	for i, c := range cycle {
		if c != f {
			continue
		}
		if inverse {
			return cycle[(i+3)%4]
		}
		return cycle[(i+1)%4]
	}
	return f
}

// IsHorizontal сообщает, лежит ли грань в горизонтальной плоскости.
func IsHorizontal(f cube.Face) bool {
	return f != cube.FaceUp && f != cube.FaceDown
}

// Neighbours возвращает шесть соседних позиций в порядке Faces.
func Neighbours(p cube.Pos) [6]cube.Pos {
	var out [6]cube.Pos
	for i, f := range Faces {
		out[i] = p.Side(f)
	}
	return out
}

// FaceTowards возвращает грань p, смотрящую на соседнюю позицию q.
// ok == false, если позиции не соседние.
func FaceTowards(p, q cube.Pos) (cube.Face, bool) {
	for _, f := range Faces {
		if p.Side(f) == q {
			return f, true
		}
	}
	return 0, false
}
