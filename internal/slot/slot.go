// Package slot реализует слоты ресурсов: ограниченные контейнеры для одной
// партии предметов, жидкости, газа или энергии.
//
// Все изменяющие вызовы принимают Action. Simulate вычисляет то же решение,
// что и Execute, но не меняет состояние: обе ветки проходят через одну
// чистую функцию plan, и только Execute применяет её результат.
package slot

import (
	"errors"
	"fmt"

	"github.com/annel0/voxelforge/internal/resource"
)

// Action определяет, применяется ли операция или только проверяется.
type Action uint8

const (
	Simulate Action = iota
	Execute
)

// Commits сообщает, применяется ли операция.
func (a Action) Commits() bool { return a == Execute }

var (
	// ErrCapacityExceeded - вставка превысила бы ёмкость. Частичный приём не делается.
	ErrCapacityExceeded = errors.New("slot: capacity exceeded")
	// ErrIncompatible - вид, тип или теги партии не совпадают с содержимым слота.
	ErrIncompatible = errors.New("slot: incompatible resource")
	// ErrRejected - предикат слота отклонил партию.
	ErrRejected = errors.New("slot: rejected by predicate")
)

// Predicate проверяет партию ресурса.
type Predicate func(resource.Stack) bool

// AlwaysTrue и AlwaysFalse - готовые предикаты.
var (
	AlwaysTrue  Predicate = func(resource.Stack) bool { return true }
	AlwaysFalse Predicate = func(resource.Stack) bool { return false }
)

// Slot - общий контракт слота.
type Slot interface {
	Kind() resource.Kind
	Stack() resource.Stack
	Capacity() int64
	// Space возвращает, сколько ещё партии данного типа поместится.
	Space(stack resource.Stack) int64
	Insert(stack resource.Stack, action Action) error
	TryInsert(stack resource.Stack, action Action) bool
	// Extract извлекает до amount единиц через внешний порт (с проверкой canExtract).
	Extract(amount int64, action Action) resource.Stack
	// Take извлекает без проверки canExtract; для внутренней логики машины.
	Take(amount int64, action Action) resource.Stack
	IsValid(stack resource.Stack) bool
	SetStack(stack resource.Stack)
}

// Basic - базовая реализация Slot с настраиваемыми предикатами.
type Basic struct {
	kind       resource.Kind
	capacity   int64
	infinite   bool
	canInsert  Predicate
	canExtract Predicate
	validator  Predicate
	stack      resource.Stack
	onChange   func()
}

// Option настраивает Basic при создании.
type Option func(*Basic)

// WithInsert задаёт предикат внешней вставки.
func WithInsert(p Predicate) Option { return func(b *Basic) { b.canInsert = p } }

// WithExtract задаёт предикат внешнего извлечения.
func WithExtract(p Predicate) Option { return func(b *Basic) { b.canExtract = p } }

// WithValidator задаёт предикат допустимости содержимого.
func WithValidator(p Predicate) Option { return func(b *Basic) { b.validator = p } }

// WithOnChange задаёт колбэк, вызываемый после каждого применённого изменения.
func WithOnChange(fn func()) Option { return func(b *Basic) { b.onChange = fn } }

// Infinite делает слот креативным: извлечение не уменьшает запас,
// вставка совместимой партии принимается без изменений.
func Infinite() Option { return func(b *Basic) { b.infinite = true } }

// NewBasic создаёт слот вида kind с ёмкостью capacity.
func NewBasic(kind resource.Kind, capacity int64, opts ...Option) *Basic {
	b := &Basic{
		kind:       kind,
		capacity:   capacity,
		canInsert:  AlwaysTrue,
		canExtract: AlwaysTrue,
		validator:  AlwaysTrue,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Basic) Kind() resource.Kind   { return b.kind }
func (b *Basic) Stack() resource.Stack { return b.stack.Copy() }
func (b *Basic) Capacity() int64       { return b.capacity }
func (b *Basic) IsEmpty() bool         { return b.stack.IsEmpty() }
func (b *Basic) Amount() int64         { return b.stack.Amount }
func (b *Basic) IsInfinite() bool      { return b.infinite }
func (b *Basic) IsValid(s resource.Stack) bool {
	return s.Kind == b.kind && b.validator(s)
}

// SetStack заменяет содержимое без проверок (загрузка, внутренняя логика).
func (b *Basic) SetStack(s resource.Stack) {
	if s.IsEmpty() {
		b.stack = resource.Empty
	} else {
		b.stack = s.Copy()
	}
	b.changed()
}

func (b *Basic) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// Space возвращает свободное место для партии данного типа.
func (b *Basic) Space(s resource.Stack) int64 {
	if s.Kind != b.kind {
		return 0
	}
	if b.stack.IsEmpty() {
		return b.capacity
	}
	if !b.stack.SameType(s) {
		return 0
	}
	if b.infinite {
		return b.capacity
	}
	return b.capacity - b.stack.Amount
}

// plan вычисляет содержимое слота после вставки. Не меняет состояние.
func (b *Basic) plan(s resource.Stack, checkInsert bool) (resource.Stack, error) {
	if s.IsEmpty() {
		return b.stack, nil
	}
	if s.Kind != b.kind {
		return resource.Empty, fmt.Errorf("%w: slot holds %s, got %s", ErrIncompatible, b.kind, s.Kind)
	}
	if !b.stack.IsEmpty() && !b.stack.SameType(s) {
		return resource.Empty, fmt.Errorf("%w: slot holds %s, got %s", ErrIncompatible, b.stack, s)
	}
	if !b.validator(s) || (checkInsert && !b.canInsert(s)) {
		return resource.Empty, ErrRejected
	}
	if b.infinite {
		if b.stack.IsEmpty() {
			return s.WithAmount(b.capacity), nil
		}
		return b.stack, nil
	}
	total := s.Amount
	if !b.stack.IsEmpty() {
		total += b.stack.Amount
	}
	if total > b.capacity || total < 0 {
		return resource.Empty, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, total, b.capacity)
	}
	return s.WithAmount(total), nil
}

// Insert вставляет партию целиком или не вставляет ничего.
func (b *Basic) Insert(s resource.Stack, action Action) error {
	return b.insert(s, action, true)
}

// InsertInternal вставляет без проверки canInsert (выход рецепта и т.п.).
func (b *Basic) InsertInternal(s resource.Stack, action Action) error {
	return b.insert(s, action, false)
}

func (b *Basic) insert(s resource.Stack, action Action, checkInsert bool) error {
	next, err := b.plan(s, checkInsert)
	if err != nil {
		return err
	}
	if action.Commits() && !s.IsEmpty() {
		b.stack = next
		b.changed()
	}
	return nil
}

// TryInsert - булева форма Insert.
func (b *Basic) TryInsert(s resource.Stack, action Action) bool {
	return b.Insert(s, action) == nil
}

// Fill вставляет столько, сколько помещается, и возвращает принятое количество.
func (b *Basic) Fill(s resource.Stack, action Action) int64 {
	n := s.Amount
	if space := b.Space(s); n > space {
		n = space
	}
	if n <= 0 {
		return 0
	}
	if err := b.Insert(s.WithAmount(n), action); err != nil {
		return 0
	}
	return n
}

// Extract извлекает через внешний порт.
func (b *Basic) Extract(amount int64, action Action) resource.Stack {
	if b.stack.IsEmpty() || !b.canExtract(b.stack) {
		return resource.Empty
	}
	return b.Take(amount, action)
}

// Take извлекает до amount единиц без проверки canExtract.
func (b *Basic) Take(amount int64, action Action) resource.Stack {
	if amount <= 0 || b.stack.IsEmpty() {
		return resource.Empty
	}
	if b.infinite {
		return b.stack.WithAmount(amount)
	}
	n := amount
	if n > b.stack.Amount {
		n = b.stack.Amount
	}
	out := b.stack.WithAmount(n)
	if action.Commits() {
		b.stack = b.stack.WithAmount(b.stack.Amount - n)
		b.changed()
	}
	return out
}
