// Package multiblock распознаёт составные машины: замкнутые оболочки из
// блоков корпуса, которые вместе работают как одна машина с общим баком.
//
// Структура формируется только после полного успешного сканирования и
// инвалидируется целиком при изменении любой её ячейки. Производные
// значения (ёмкость, пропускная способность) кешируются и никогда не
// исправляются частично.
package multiblock

import "github.com/df-mc/dragonfly/server/block/cube"

// State - состояние распознавания структуры.
type State uint8

const (
	Unformed State = iota
	Scanning
	Formed
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Formed:
		return "formed"
	}
	return "unformed"
}

// Validator - конечный автомат одного кандидата в структуру.
//
// Допустимые переходы: Unformed → Scanning → Formed, Scanning → Unformed,
// Formed → Unformed. Изменение, пришедшее во время сканирования, помечает
// валидатор грязным, и проход повторяется после текущего.
type Validator struct {
	grammar *Grammar
	state   State
	dirty   bool
	reason  Reason
	passes  int
}

// NewValidator создаёт валидатор для грамматики g.
func NewValidator(g *Grammar) *Validator {
	return &Validator{grammar: g}
}

func (v *Validator) State() State      { return v.state }
func (v *Validator) Reason() Reason    { return v.reason }
func (v *Validator) Grammar() *Grammar { return v.grammar }

// Passes возвращает число проходов последней проверки.
func (v *Validator) Passes() int { return v.passes }

// MarkDirty сообщает об изменении решётки. Вне сканирования ничего не делает.
func (v *Validator) MarkDirty() {
	if v.state == Scanning {
		v.dirty = true
	}
}

// Run сканирует от seed, пока во время прохода приходят изменения.
// Повторный вызов во время сканирования только помечает валидатор грязным.
func (v *Validator) Run(view View, seed cube.Pos) (ScanResult, bool) {
	if v.state == Scanning {
		v.dirty = true
		return ScanResult{}, false
	}
	v.state = Scanning
	v.passes = 0
	var res ScanResult
	for {
		v.dirty = false
		v.passes++
		res = Scan(view, v.grammar, seed)
		if !v.dirty {
			break
		}
	}
	if res.Formed {
		v.state = Formed
		v.reason = ReasonNone
	} else {
		v.state = Unformed
		v.reason = res.Reason
	}
	return res, true
}

// Invalidate переводит сформированную структуру в Unformed.
// Возвращает false, если структура не была сформирована.
func (v *Validator) Invalidate(reason Reason) bool {
	if v.state != Formed {
		return false
	}
	v.state = Unformed
	v.reason = reason
	return true
}
