// Package signal переводит состояние ячейки в аналоговый уровень сигнала 0..15,
// который хост отдаёт компараторам.
package signal

import "math/bits"

// Max - наибольший уровень сигнала.
const Max = 15

// FromFill возвращает уровень заполненности: 0 - пусто, 15 - полно,
// иначе 1 + amount*14/capacity. Функция не убывает по amount.
func FromFill(amount, capacity int64) int {
	if amount <= 0 || capacity <= 0 {
		return 0
	}
	if amount >= capacity {
		return Max
	}
	// amount*14 не помещается в int64 у бесконечных накопителей.
	hi, lo := bits.Mul64(uint64(amount), 14)
	q, _ := bits.Div64(hi, lo, uint64(capacity))
	return 1 + int(q)
}

// FromFormed возвращает 15 для сформированной структуры и 0 иначе.
func FromFormed(formed bool) int {
	if formed {
		return Max
	}
	return 0
}
