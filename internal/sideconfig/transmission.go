package sideconfig

import (
	"fmt"

	"github.com/annel0/voxelforge/internal/resource"
)

// Transmission - вид передачи через грань.
type Transmission uint8

const (
	Item Transmission = iota
	Fluid
	Gas
	Energy
)

// Transmissions перечисляет все виды передачи в порядке сохранения.
var Transmissions = [...]Transmission{Item, Fluid, Gas, Energy}

func (t Transmission) String() string {
	switch t {
	case Item:
		return "item"
	case Fluid:
		return "fluid"
	case Gas:
		return "gas"
	case Energy:
		return "energy"
	}
	return fmt.Sprintf("transmission(%d)", uint8(t))
}

// ParseTransmission разбирает имя вида передачи.
func ParseTransmission(s string) (Transmission, error) {
	for _, t := range Transmissions {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transmission %q", s)
}

// ForKind возвращает вид передачи для ресурса.
func ForKind(k resource.Kind) (Transmission, bool) {
	switch k {
	case resource.KindItem:
		return Item, true
	case resource.KindFluid:
		return Fluid, true
	case resource.KindGas:
		return Gas, true
	case resource.KindEnergy:
		return Energy, true
	}
	return 0, false
}

// Kind возвращает вид ресурса, который переносит передача.
func (t Transmission) Kind() resource.Kind {
	switch t {
	case Item:
		return resource.KindItem
	case Fluid:
		return resource.KindFluid
	case Gas:
		return resource.KindGas
	case Energy:
		return resource.KindEnergy
	}
	return resource.KindNone
}

// Channel - режим грани для одного вида передачи.
type Channel uint8

const (
	Disabled Channel = iota
	Input
	Output
)

func (c Channel) String() string {
	switch c {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return "disabled"
}

// ParseChannel разбирает имя режима.
func ParseChannel(s string) (Channel, error) {
	switch s {
	case "disabled", "":
		return Disabled, nil
	case "input":
		return Input, nil
	case "output":
		return Output, nil
	}
	return Disabled, fmt.Errorf("unknown channel %q", s)
}
