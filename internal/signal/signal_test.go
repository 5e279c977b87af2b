package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFill_Bounds(t *testing.T) {
	assert.Equal(t, 0, FromFill(0, 1000))
	assert.Equal(t, 1, FromFill(1, 1000), "любое содержимое даёт хотя бы 1")
	assert.Equal(t, 8, FromFill(500, 1000))
	assert.Equal(t, 14, FromFill(999, 1000))
	assert.Equal(t, 15, FromFill(1000, 1000))
	assert.Equal(t, 0, FromFill(10, 0), "нулевая ёмкость")
}

func TestFromFill_MonotonicAndDeterministic(t *testing.T) {
	for _, capacity := range []int64{1, 7, 64, 1000, 2_000_000, math.MaxInt64 / 4} {
		step := capacity/500 + 1
		prev := 0
		for amount := int64(0); amount <= capacity; amount += step {
			level := FromFill(amount, capacity)
			assert.GreaterOrEqual(t, level, prev, "capacity=%d amount=%d", capacity, amount)
			assert.Equal(t, level, FromFill(amount, capacity))
			assert.LessOrEqual(t, level, Max)
			prev = level
		}
		assert.Equal(t, Max, FromFill(capacity, capacity))
	}
}

func TestFromFormed(t *testing.T) {
	assert.Equal(t, 15, FromFormed(true))
	assert.Equal(t, 0, FromFormed(false))
}
