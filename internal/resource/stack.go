// Package resource описывает ресурсы, которые переносят слоты: предметы,
// жидкости, газы и энергию.
package resource

import (
	"fmt"
	"sort"
	"strings"
)

// Kind - вид ресурса.
type Kind uint8

const (
	KindNone Kind = iota
	KindItem
	KindFluid
	KindGas
	KindEnergy
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindFluid:
		return "fluid"
	case KindGas:
		return "gas"
	case KindEnergy:
		return "energy"
	default:
		return "none"
	}
}

// ParseKind разбирает имя вида ресурса.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "item":
		return KindItem, nil
	case "fluid":
		return KindFluid, nil
	case "gas":
		return KindGas, nil
	case "energy":
		return KindEnergy, nil
	}
	return KindNone, fmt.Errorf("unknown resource kind %q", s)
}

// MarshalText пишет вид по имени (JSON, YAML).
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText разбирает имя вида; "none" и пустая строка дают KindNone.
func (k *Kind) UnmarshalText(b []byte) error {
	if s := string(b); s == "" || s == "none" {
		*k = KindNone
		return nil
	}
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Stack - партия ресурса одного типа.
// Для энергии Type пуст. Tag - произвольные данные партии (аналог NBT предмета).
type Stack struct {
	Kind   Kind              `json:"kind" yaml:"kind"`
	Type   string            `json:"type,omitempty" yaml:"type,omitempty"`
	Amount int64             `json:"amount" yaml:"amount"`
	Tag    map[string]string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// Empty - пустая партия.
var Empty = Stack{}

// Of создаёт партию без тегов.
func Of(kind Kind, typ string, amount int64) Stack {
	return Stack{Kind: kind, Type: typ, Amount: amount}
}

// Energy создаёт партию энергии.
func Energy(amount int64) Stack {
	return Stack{Kind: KindEnergy, Amount: amount}
}

// IsEmpty сообщает, пуста ли партия.
func (s Stack) IsEmpty() bool {
	return s.Kind == KindNone || s.Amount <= 0
}

// SameType сообщает, можно ли объединить партии: вид, тип и теги совпадают.
func (s Stack) SameType(o Stack) bool {
	if s.Kind != o.Kind || s.Type != o.Type {
		return false
	}
	if len(s.Tag) != len(o.Tag) {
		return false
	}
	for k, v := range s.Tag {
		if ov, ok := o.Tag[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// WithAmount возвращает копию партии с другим количеством.
func (s Stack) WithAmount(n int64) Stack {
	c := s.Copy()
	c.Amount = n
	if n <= 0 {
		return Empty
	}
	return c
}

// Copy возвращает глубокую копию партии.
func (s Stack) Copy() Stack {
	c := s
	if s.Tag != nil {
		c.Tag = make(map[string]string, len(s.Tag))
		for k, v := range s.Tag {
			c.Tag[k] = v
		}
	}
	return c
}

func (s Stack) String() string {
	if s.IsEmpty() {
		return "empty"
	}
	if s.Type == "" {
		return fmt.Sprintf("%d %s", s.Amount, s.Kind)
	}
	if len(s.Tag) == 0 {
		return fmt.Sprintf("%d×%s:%s", s.Amount, s.Kind, s.Type)
	}
	keys := make([]string, 0, len(s.Tag))
	for k := range s.Tag {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+s.Tag[k])
	}
	return fmt.Sprintf("%d×%s:%s{%s}", s.Amount, s.Kind, s.Type, strings.Join(parts, ","))
}
