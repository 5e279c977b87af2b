package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_SameTypeComparesTags(t *testing.T) {
	a := Stack{Kind: KindItem, Type: "osmium_ingot", Amount: 1, Tag: map[string]string{"q": "1"}}
	b := a.Copy()
	b.Amount = 40
	assert.True(t, a.SameType(b), "количество не влияет на совместимость")

	b.Tag["q"] = "2"
	assert.False(t, a.SameType(b))
	assert.Equal(t, "1", a.Tag["q"], "Copy должен копировать теги")

	assert.False(t, a.SameType(Of(KindFluid, "osmium_ingot", 1)))
}

func TestStack_WithAmount(t *testing.T) {
	s := Of(KindFluid, "water", 1000)
	assert.Equal(t, int64(10), s.WithAmount(10).Amount)
	assert.True(t, s.WithAmount(0).IsEmpty())
	assert.True(t, Empty.IsEmpty())
	assert.True(t, Energy(0).IsEmpty())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindItem, KindFluid, KindGas, KindEnergy} {
		parsed, err := ParseKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("plasma")
	assert.Error(t, err)
}

func TestKindText(t *testing.T) {
	data, err := json.Marshal(Of(KindGas, "hydrogen", 5))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"gas"`)

	var s Stack
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, Of(KindGas, "hydrogen", 5), s)

	require.NoError(t, json.Unmarshal([]byte(`{"kind":"none","amount":0}`), &s))
	assert.Equal(t, KindNone, s.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"plasma"}`), &s))
}
