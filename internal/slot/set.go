package slot

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelforge/internal/resource"
)

// Named - слот с именем внутри набора.
type Named struct {
	Name string
	Slot Slot
}

// Set - упорядоченный набор слотов ячейки.
type Set struct {
	slots []Named
	index map[string]int
}

// NewSet создаёт пустой набор.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Add добавляет слот. Повторное имя заменяет прежний слот.
func (s *Set) Add(name string, sl Slot) *Set {
	if i, ok := s.index[name]; ok {
		s.slots[i].Slot = sl
		return s
	}
	s.index[name] = len(s.slots)
	s.slots = append(s.slots, Named{Name: name, Slot: sl})
	return s
}

// Get возвращает слот по имени.
func (s *Set) Get(name string) (Slot, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.slots[i].Slot, true
}

// Len возвращает количество слотов.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// All возвращает слоты в порядке добавления.
func (s *Set) All() []Named {
	if s == nil {
		return nil
	}
	out := make([]Named, len(s.slots))
	copy(out, s.slots)
	return out
}

// OfKind возвращает слоты заданного вида.
func (s *Set) OfKind(kind resource.Kind) []Slot {
	if s == nil {
		return nil
	}
	var out []Slot
	for _, n := range s.slots {
		if n.Slot.Kind() == kind {
			out = append(out, n.Slot)
		}
	}
	return out
}

// InsertAny вставляет партию в первый слот её вида, который примет её целиком.
// Если не принял ни один, возвращается ошибка последнего отказа.
func (s *Set) InsertAny(stack resource.Stack, action Action) error {
	candidates := s.OfKind(stack.Kind)
	if len(candidates) == 0 {
		return fmt.Errorf("%w: no %s slots", ErrIncompatible, stack.Kind)
	}
	var lastErr error
	for _, sl := range candidates {
		if err := sl.Insert(stack, Simulate); err != nil {
			lastErr = err
			continue
		}
		if action == Simulate {
			return nil
		}
		return sl.Insert(stack, Execute)
	}
	return lastErr
}

// ExtractAny извлекает до amount единиц вида kind из первого непустого слота.
func (s *Set) ExtractAny(kind resource.Kind, amount int64, action Action) resource.Stack {
	for _, sl := range s.OfKind(kind) {
		if out := sl.Extract(amount, action); !out.IsEmpty() {
			return out
		}
	}
	return resource.Empty
}

// Save записывает содержимое слотов в плоскую карту.
func (s *Set) Save(m map[string]string) {
	if s == nil {
		return
	}
	for _, n := range s.slots {
		n.Slot.Stack().Flatten("slot."+n.Name, m)
	}
}

// Load восстанавливает содержимое слотов из плоской карты.
// Слоты, отсутствующие в карте, очищаются.
func (s *Set) Load(m map[string]string) error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, n := range s.slots {
		st, err := resource.Unflatten("slot."+n.Name, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n.Slot.SetStack(st)
	}
	return errors.Join(errs...)
}
