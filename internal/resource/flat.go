package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// Flatten записывает партию в плоскую карту под префиксом prefix.
// Пустая партия не пишет ничего.
func (s Stack) Flatten(prefix string, m map[string]string) {
	if s.IsEmpty() {
		return
	}
	m[prefix+".kind"] = s.Kind.String()
	if s.Type != "" {
		m[prefix+".type"] = s.Type
	}
	m[prefix+".amount"] = strconv.FormatInt(s.Amount, 10)
	for k, v := range s.Tag {
		m[prefix+".tag."+k] = v
	}
}

// Unflatten читает партию, записанную Flatten. Отсутствие ключей даёт Empty.
func Unflatten(prefix string, m map[string]string) (Stack, error) {
	kindStr, ok := m[prefix+".kind"]
	if !ok {
		return Empty, nil
	}
	kind, err := ParseKind(kindStr)
	if err != nil {
		return Empty, err
	}
	amount, err := strconv.ParseInt(m[prefix+".amount"], 10, 64)
	if err != nil {
		return Empty, fmt.Errorf("%s.amount: %w", prefix, err)
	}
	s := Stack{Kind: kind, Type: m[prefix+".type"], Amount: amount}
	tagPrefix := prefix + ".tag."
	for k, v := range m {
		if strings.HasPrefix(k, tagPrefix) {
			if s.Tag == nil {
				s.Tag = make(map[string]string)
			}
			s.Tag[strings.TrimPrefix(k, tagPrefix)] = v
		}
	}
	return s, nil
}
