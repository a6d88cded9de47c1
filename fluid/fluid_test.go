package fluid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstant(t *testing.T) {
	w := ReferenceWater()
	assert.Equal(t, w.At(10), w.At(130))
	assert.Equal(t, 971.78, w.At(0).Density)
}

func TestWater_Interpolation(t *testing.T) {
	w := Water()

	p := w.At(80)
	assert.InDelta(t, 971.8, p.Density, 1e-9)
	assert.InDelta(t, 0.355e-3, p.Viscosity, 1e-12)

	p = w.At(85)
	assert.InDelta(t, (971.8+965.3)/2, p.Density, 1e-9)
	assert.InDelta(t, (4197.0+4205.0)/2, p.HeatCapacity, 1e-9)

	// 区间外取端点值
	assert.Equal(t, w.At(0), w.At(-20))
	assert.Equal(t, w.At(150), w.At(200))
}

func TestWater_DensityDecreases(t *testing.T) {
	w := Water()
	prev := w.At(0).Density
	for temp := 5.0; temp <= 150; temp += 5 {
		d := w.At(temp).Density
		assert.Less(t, d, prev, "temp %v", temp)
		prev = d
	}
}

func TestNewTable(t *testing.T) {
	_, err := NewTable([]float64{1, 0}, []float64{1, 1}, []float64{1, 1}, []float64{1, 1})
	assert.Error(t, err)

	_, err = NewTable(nil, nil, nil, nil)
	assert.Error(t, err)

	tab, err := NewTable([]float64{0, 100}, []float64{1000, 900}, []float64{1e-3, 1e-4}, []float64{4200, 4200})
	require.NoError(t, err)
	assert.InDelta(t, 950, tab.At(50).Density, 1e-9)
}

func TestWater_IndependentCopies(t *testing.T) {
	w := Water()
	w.Temp[0] = -50
	w.Density[8] = 1
	w.HeatCapacity[8] = 1
	w.Viscosity[8] = 1

	fresh := Water()
	assert.Equal(t, 0.0, fresh.Temp[0])
	assert.InDelta(t, 971.8, fresh.At(80).Density, 1e-9)
	assert.InDelta(t, 4197.0, fresh.At(80).HeatCapacity, 1e-9)
	assert.InDelta(t, 0.355e-3, fresh.At(80).Viscosity, 1e-12)
}
