package sideconfig

import "github.com/df-mc/dragonfly/server/block/cube"

// Ejector - автоматическая выдача ресурсов через выходные грани.
//
// StrictInput ограничивает цели соседями с собственной настройкой граней,
// у которых встречная грань помечена Input. Без него в цели годятся и
// пассивные соседи без настройки граней.
type Ejector struct {
	Enabled     bool
	StrictInput bool
}

// Targets возвращает грани, через которые ячейка выдаёт передачу t.
func (c *Config) Targets(t Transmission) []cube.Face {
	if !c.Ejector.Enabled {
		return nil
	}
	return c.FacesWith(t, Output)
}

// Accepts сообщает, примет ли сосед с настройкой neighbour передачу t,
// пришедшую из грани from ячейки-источника. neighbour == nil - пассивный сосед.
func (e Ejector) Accepts(neighbour *Config, t Transmission, from cube.Face) bool {
	if neighbour == nil {
		return !e.StrictInput
	}
	return neighbour.Channel(t, from.Opposite()) == Input
}
